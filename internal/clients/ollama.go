package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lltshop/shoppost/internal/services"
)

// DefaultOllamaModel is used when no model is configured
const DefaultOllamaModel = "llama3"

// Compile-time interface compliance check
var _ services.TextGenerator = (*OllamaClient)(nil)

// OllamaClient calls an Ollama-compatible /api/generate endpoint.
// Deployments behind Cloudflare Access also need a service token.
type OllamaClient struct {
	baseURL    string
	model      string
	cfClientID string
	cfSecret   string
	client     *http.Client
}

// NewOllamaClient creates a client; model may be empty for DefaultOllamaModel
func NewOllamaClient(baseURL, model string) *OllamaClient {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

// WithAccessToken sets the Cloudflare Access service token headers
func (c *OllamaClient) WithAccessToken(clientID, secret string) *OllamaClient {
	c.cfClientID = clientID
	c.cfSecret = secret
	return c
}

// Generate sends one non-streaming prompt and returns the response text
func (c *OllamaClient) Generate(ctx context.Context, in services.TextRequest) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": in.Prompt,
		"stream": false,
	}
	if in.Temperature > 0 {
		payload["options"] = map[string]any{"temperature": in.Temperature}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfClientID != "" {
		req.Header.Set("CF-Access-Client-Id", c.cfClientID)
		req.Header.Set("CF-Access-Client-Secret", c.cfSecret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrTextBackendRateLimited, string(body))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama error: %s", response.Error)
	}
	if strings.TrimSpace(response.Response) == "" {
		return "", fmt.Errorf("empty response from model %s", c.model)
	}

	return response.Response, nil
}
