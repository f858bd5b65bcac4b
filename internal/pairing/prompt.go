package pairing

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"text/template"
)

//go:embed prompts/sommelier.tmpl
var DefaultTemplate string

// Fallback values used when the request leaves a field blank.
const (
	defaultUserName    = "Prezado"
	defaultCategory    = "Não informada"
	defaultIngredients = "Não informado"
)

// TemplateSource supplies the body of the prompt template.
type TemplateSource interface {
	Template(ctx context.Context) (string, error)
}

// PromptData is the set of values a prompt template can reference.
type PromptData struct {
	UserName    string
	Category    string
	Ingredients string
	HasImage    bool
}

// NewPromptData fills the template values from a request.
func NewPromptData(req Request) PromptData {
	data := PromptData{
		UserName:    req.UserName,
		Category:    req.Category,
		Ingredients: req.Ingredients,
		HasImage:    req.Image != "",
	}
	if data.UserName == "" {
		data.UserName = defaultUserName
	}
	if data.Category == "" {
		data.Category = defaultCategory
	}
	if data.Ingredients == "" {
		data.Ingredients = defaultIngredients
	}
	return data
}

// RenderPrompt executes the template body with the request values.
func RenderPrompt(body string, req Request) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, NewPromptData(req)); err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	return buf.String(), nil
}

// FileTemplateSource reads the template from disk on every call so edits
// take effect without a restart. An empty path serves DefaultTemplate.
type FileTemplateSource struct {
	Path string
}

// NewFileTemplateSource creates a new FileTemplateSource.
func NewFileTemplateSource(path string) *FileTemplateSource {
	return &FileTemplateSource{Path: path}
}

// Template returns the current template body.
func (s *FileTemplateSource) Template(ctx context.Context) (string, error) {
	if s.Path == "" {
		return DefaultTemplate, nil
	}
	body, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template %s: %w", s.Path, err)
	}
	return string(body), nil
}
