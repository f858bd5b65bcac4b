package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"easywine/internal/pairing"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// Client is a client for the Gemini API. The API key is supplied per call.
type Client struct {
	modelName   string
	temperature float32
	opts        []option.ClientOption
}

// NewClient creates a new Gemini client.
func NewClient(modelName string, opts ...option.ClientOption) *Client {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Client{modelName: modelName, temperature: 0.7, opts: opts}
}

// GenerateContent sends the prompt text and optional image to Gemini and
// returns the text of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, apiKey string, prompt pairing.Prompt) (string, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("error creating gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.modelName)
	model.SetTemperature(c.temperature)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, buildParts(prompt)...)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func buildParts(prompt pairing.Prompt) []genai.Part {
	parts := []genai.Part{genai.Text(prompt.Text)}
	if len(prompt.Image) > 0 {
		format := prompt.ImageFormat
		if format == "" {
			format = "jpeg"
		}
		parts = append(parts, genai.ImageData(format, prompt.Image))
	}
	return parts
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}
	return sb.String(), nil
}
