// Package clients provides HTTP clients for the external services the publish
// pipeline talks to: the Facebook Graph API, marketplace asset hosts, and the
// Ollama and OpenAI text backends.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lltshop/shoppost/internal/services"
)

// DefaultChatModel is a cheap model that handles short Vietnamese ad copy well
const DefaultChatModel = "gpt-4o-mini"

// copywriterPrompt frames every completion as Facebook sales copy
const copywriterPrompt = "Bạn là người viết nội dung bán hàng cho một Fanpage Facebook. Chỉ trả về nội dung được yêu cầu, không giải thích."

const (
	defaultOpenAITemperature = 0.7
	maxCompletionTokens      = 800
)

// ErrTextBackendRateLimited is returned when the text backend answers 429
var ErrTextBackendRateLimited = errors.New("text backend rate limited")

// Compile-time interface compliance check
var _ services.TextGenerator = (*OpenAIClient)(nil)

// OpenAIClient is the production client for the OpenAI chat completions API
type OpenAIClient struct {
	apiKey    string
	baseURL   string
	chatModel string
	client    *http.Client
}

// NewOpenAIClient creates a new OpenAI API client.
// baseURL and chatModel can be empty to use the defaults.
func NewOpenAIClient(apiKey, baseURL, chatModel string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	return &OpenAIClient{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		chatModel: chatModel,
		client:    &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements services.TextGenerator
func (c *OpenAIClient) Generate(ctx context.Context, req services.TextRequest) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultOpenAITemperature
	}
	return c.CreateChatCompletion(ctx, req.Prompt, temperature)
}

// CreateChatCompletion sends the prompt as the user turn after the copywriter system turn
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, prompt string, temperature float64) (string, error) {
	jsonData, err := json.Marshal(chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: copywriterPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxCompletionTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != nil && out.Error.Message != "" {
		return "", fmt.Errorf("openai error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
