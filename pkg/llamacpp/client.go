package llamacpp

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

// DefaultServerURL is the conventional llama.cpp server address.
const DefaultServerURL = "http://localhost:8080"

// Client talks to a llama.cpp server over its OpenAI-compatible endpoint.
// This is the "local" backend: inference runs on the same machine.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// OpenAI-compatible message format
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// NewClient creates a llama.cpp client. An empty serverURL falls back to
// DefaultServerURL.
func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// AnalyzeImage sends a prompt plus a base64-encoded JPEG to the local
// vision model and returns the raw text response.
func (c *Client) AnalyzeImage(ctx context.Context, model, system, prompt, imgB64 string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	content := []ContentPart{
		{Type: "text", Text: prompt},
	}
	if imgB64 != "" {
		content = append(content, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: "data:image/jpeg;base64," + imgB64},
		})
	}

	var messages []Message
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: content})

	req := ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   2048,
		TopP:        0.9,
		Stream:      false,
	}

	respBody, err := c.sendRequest(ctx, model, "/v1/chat/completions", req)
	if err != nil {
		return "", err
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", client.NewError(client.KindResponse, types.BackendLocal, model,
			fmt.Errorf("failed to parse response: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", client.NewError(client.KindResponse, types.BackendLocal, model,
			fmt.Errorf("no choices in response"))
	}

	text := extractText(resp.Choices[0].Message.Content)
	if text == "" {
		return "", client.NewError(client.KindResponse, types.BackendLocal, model,
			fmt.Errorf("no text content in response"))
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

func (c *Client) sendRequest(ctx context.Context, model, endpoint string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, client.NewError(client.KindResponse, types.BackendLocal, model,
			fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, client.NewError(client.KindResponse, types.BackendLocal, model, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, client.NewError(client.KindTimeout, types.BackendLocal, model, err)
		}
		return nil, client.NewError(client.KindUnavailable, types.BackendLocal, model,
			fmt.Errorf("server unreachable: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, client.NewError(client.KindResponse, types.BackendLocal, model,
			fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, client.NewError(client.KindResponse, types.BackendLocal, model,
			fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body)))
	}

	return body, nil
}
