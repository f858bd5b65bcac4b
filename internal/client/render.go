package client

import (
	"fmt"
	"io"
	"strings"

	"easywine/internal/pairing"
)

// DotScale is the number of dots used to draw a characteristic.
const DotScale = 7

// Dots draws level on the DotScale scale, e.g. Dots(3) == "●●●○○○○".
func Dots(level int) string {
	if level < 0 {
		level = 0
	}
	if level > DotScale {
		level = DotScale
	}
	return strings.Repeat("●", level) + strings.Repeat("○", DotScale-level)
}

// ProfileTags splits the comma separated aroma profile.
func ProfileTags(perfil string) []string {
	var tags []string
	for _, t := range strings.Split(perfil, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Render writes a pairing for a terminal. Characteristics at zero are omitted.
func Render(w io.Writer, name string, r *pairing.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Para você, %s\n\n", name)
	fmt.Fprintf(&b, "  %s\n\n", r.Estilo)
	fmt.Fprintf(&b, "❝ O Veredito\n  %s\n\n", r.Explicacao)
	fmt.Fprintf(&b, "Temperatura: %s\n", r.Temperatura)
	fmt.Fprintf(&b, "Origem:      %s\n\n", strings.Join(r.Paises, ", "))
	if tags := ProfileTags(r.Perfil); len(tags) > 0 {
		fmt.Fprintf(&b, "Perfil do Vinho: [%s]\n", strings.Join(tags, "] ["))
	}
	for _, attr := range r.Caracteristicas.Attributes() {
		if attr.Level <= 0 {
			continue
		}
		fmt.Fprintf(&b, "  %-8s %s\n", attr.Name, Dots(attr.Level))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
