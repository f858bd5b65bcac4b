package pairing

import (
	"encoding/json"
	"math"
	"strings"
)

// Request is the input packaged by the presentation layer for one pairing.
type Request struct {
	Image       string `json:"image,omitempty"`
	Ingredients string `json:"ingredients"`
	Category    string `json:"category"`
	UserName    string `json:"userName"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for Request.
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request // Create an alias to avoid infinite recursion
	aux := (*Alias)(r)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	r.Image = strings.TrimSpace(r.Image)
	r.Ingredients = strings.TrimSpace(r.Ingredients)
	r.Category = strings.TrimSpace(r.Category)
	r.UserName = strings.TrimSpace(r.UserName)

	return nil
}

// Empty reports whether the request carries nothing to pair with.
func (r Request) Empty() bool {
	return r.Image == "" && r.Ingredients == "" && r.Category == ""
}

// Characteristics holds the structural attributes of the wine.
type Characteristics struct {
	Corpo   int `json:"corpo"`
	Acidez  int `json:"acidez"`
	Taninos int `json:"taninos"`
	Docura  int `json:"docura"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for
// Characteristics. Fractional levels are rounded to the nearest integer.
func (c *Characteristics) UnmarshalJSON(data []byte) error {
	var aux struct {
		Corpo   float64 `json:"corpo"`
		Acidez  float64 `json:"acidez"`
		Taninos float64 `json:"taninos"`
		Docura  float64 `json:"docura"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Corpo = int(math.Round(aux.Corpo))
	c.Acidez = int(math.Round(aux.Acidez))
	c.Taninos = int(math.Round(aux.Taninos))
	c.Docura = int(math.Round(aux.Docura))
	return nil
}

// Attribute is a single named characteristic.
type Attribute struct {
	Name  string
	Level int
}

// Attributes returns the characteristics in display order.
func (c Characteristics) Attributes() []Attribute {
	return []Attribute{
		{Name: "corpo", Level: c.Corpo},
		{Name: "acidez", Level: c.Acidez},
		{Name: "taninos", Level: c.Taninos},
		{Name: "docura", Level: c.Docura},
	}
}

// Result represents the structure of the generated pairing
type Result struct {
	Estilo          string          `json:"estilo"`
	Caracteristicas Characteristics `json:"caracteristicas"`
	Perfil          string          `json:"perfil"`
	Explicacao      string          `json:"explicacao"`
	Temperatura     string          `json:"temperatura"`
	Paises          []string        `json:"paises"`
}

// Category is one of the quick filters offered to the user.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

// Categories is the fixed list of quick filters.
var Categories = []Category{
	{ID: "carnes", Label: "Carnes", Emoji: "🥩"},
	{ID: "massas", Label: "Massas", Emoji: "🍝"},
	{ID: "peixes", Label: "Peixes", Emoji: "🐟"},
	{ID: "fastfood", Label: "Fast Food", Emoji: "🍔"},
	{ID: "brasileira", Label: "Brasileira", Emoji: "🇧🇷"},
	{ID: "sobremesas", Label: "Doces", Emoji: "🍰"},
}

// FindCategory looks up a category by id.
func FindCategory(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
