package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/image-captioner/pkg/client"
	"github.com/menta2k/image-captioner/pkg/types"
)

// EnvAPIKey is the environment variable holding the OpenRouter API key.
const EnvAPIKey = "OPENROUTER_API_KEY"

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client calls the OpenRouter chat completions API. It serves both as a
// vision backend (image + prompt) and as the text-only backend for
// metadata extraction from a caption.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates an OpenRouter client. The API key is required.
func NewClient(apiKey string) (*Client, error) {
	return NewClientWithBaseURL(apiKey, defaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint.
func NewClientWithBaseURL(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, client.NewError(client.KindAuth, types.BackendOpenRouter, "",
			fmt.Errorf("OpenRouter API key not found, set %s", EnvAPIKey))
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// OpenAI-compatible message format.
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message responseMessage `json:"message"`
}

type responseMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// AnalyzeImage sends a prompt plus a base64-encoded JPEG to a vision model.
func (c *Client) AnalyzeImage(ctx context.Context, model, system, prompt, imgB64 string) (string, error) {
	content := []contentPart{
		{Type: "text", Text: prompt},
	}
	if imgB64 != "" {
		content = append(content, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imgB64},
		})
	}

	var messages []message
	if system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{Role: "user", Content: content})

	return c.complete(ctx, model, messages)
}

// Chat sends a text-only conversation. Used for the double-mode metadata
// step, which extracts structured data from the caption alone.
func (c *Client) Chat(ctx context.Context, model, system, prompt string) (string, error) {
	var messages []message
	if system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{Role: "user", Content: prompt})

	return c.complete(ctx, model, messages)
}

func (c *Client) complete(ctx context.Context, model string, messages []message) (string, error) {
	req := chatRequest{Model: model, Messages: messages}

	respBody, err := c.sendRequest(ctx, model, req)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", client.NewError(client.KindResponse, types.BackendOpenRouter, model,
			fmt.Errorf("failed to parse response: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", client.NewError(client.KindResponse, types.BackendOpenRouter, model,
			fmt.Errorf("no choices in response"))
	}

	text := extractText(resp.Choices[0].Message.Content)
	if text == "" {
		return "", client.NewError(client.KindResponse, types.BackendOpenRouter, model,
			fmt.Errorf("empty response content"))
	}
	return text, nil
}

// extractText handles both string and content-part array responses.
func extractText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		for _, item := range v {
			if part, ok := item.(map[string]any); ok {
				if text, ok := part["text"].(string); ok && text != "" {
					return text
				}
			}
		}
	}
	return ""
}

// sendRequest posts the payload, retrying on HTTP 429 with exponential
// backoff. Auth failures and other error statuses map to typed errors.
func (c *Client) sendRequest(ctx context.Context, model string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, client.NewError(client.KindResponse, types.BackendOpenRouter, model,
			fmt.Errorf("failed to marshal request: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, c.ctxError(ctx, model)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return nil, client.NewError(client.KindResponse, types.BackendOpenRouter, model, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
				return nil, c.ctxError(ctx, model)
			}
			lastErr = client.NewError(client.KindUnavailable, types.BackendOpenRouter, model,
				fmt.Errorf("request failed: %w", err))
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, client.NewError(client.KindResponse, types.BackendOpenRouter, model,
				fmt.Errorf("failed to read response: %w", readErr))
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, client.NewError(client.KindAuth, types.BackendOpenRouter, model,
				fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body)))
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = client.NewError(client.KindUnavailable, types.BackendOpenRouter, model,
				fmt.Errorf("rate limited: HTTP %d: %s", resp.StatusCode, string(body)))
			continue
		default:
			return nil, client.NewError(client.KindResponse, types.BackendOpenRouter, model,
				fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body)))
		}
	}
	return nil, lastErr
}

func (c *Client) ctxError(ctx context.Context, model string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return client.NewError(client.KindTimeout, types.BackendOpenRouter, model, ctx.Err())
	}
	return client.NewError(client.KindUnavailable, types.BackendOpenRouter, model, ctx.Err())
}
