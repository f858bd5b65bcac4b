package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"easywine/internal/pairing"
)

// Gateway sends a pairing request to the recommendation gateway.
type Gateway interface {
	Harmonize(ctx context.Context, req pairing.Request) (*pairing.Result, error)
}

// HTTPGateway talks to the gateway over HTTP.
type HTTPGateway struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPGateway creates a gateway client for baseURL, e.g. "http://localhost:8080".
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Harmonize posts req to /api/harmonize and decodes the result.
func (g *HTTPGateway) Harmonize(ctx context.Context, req pairing.Request) (*pairing.Result, error) {
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/harmonize", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, errResp.Error)
	}

	var result pairing.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return &result, nil
}
