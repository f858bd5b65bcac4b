package localllm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/apex/log"

	"easywine/internal/pairing"
)

// DefaultURL is the chat completions endpoint of a local OpenAI-compatible server.
const DefaultURL = "http://localhost:1234/v1/chat/completions"

// Client represents a client for the local LLM.
type Client struct {
	httpClient *http.Client
	apiURL     string
	model      string
}

// NewClient creates a new client for the local LLM.
func NewClient(apiURL, model string) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	return &Client{
		httpClient: &http.Client{},
		apiURL:     apiURL,
		model:      model,
	}
}

// Request represents the request body for the local LLM.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a message in the request.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content represents the content of a message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents the image URL in the content.
type ImageURL struct {
	URL string `json:"url"`
}

// Response represents the response from the local LLM.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage represents a message in the response.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildRequest(model string, prompt pairing.Prompt) Request {
	content := []Content{{Type: "text", Text: prompt.Text}}
	if len(prompt.Image) > 0 {
		format := prompt.ImageFormat
		if format == "" {
			format = "jpeg"
		}
		content = append(content, Content{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(prompt.Image),
			},
		})
	}

	return Request{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: content}},
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// GenerateContent sends a request to the local LLM and returns the response.
// apiKey is optional and sent as a bearer token when set.
func (c *Client) GenerateContent(ctx context.Context, apiKey string, prompt pairing.Prompt) (string, error) {
	reqBytes, err := json.Marshal(buildRequest(c.model, prompt))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("received non-OK status code: %d: %s", resp.StatusCode, errBody)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(llmResp.Choices) > 0 {
		log.WithField("chars", len(llmResp.Choices[0].Message.Content)).Debug("local llm responded")
		return llmResp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("no content found in response")
}
