package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-captioner/pkg/client"
	"github.com/menta2k/image-captioner/pkg/types"
)

// DefaultHost is the conventional Ollama daemon address.
const DefaultHost = "http://localhost:11434"

// Client wraps the Ollama API client. This is the "daemon" backend:
// a locally running Ollama instance serving vision models.
type Client struct {
	client *api.Client
}

// NewClient creates an Ollama client for the given host URL.
func NewClient(host string) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}

	parsedURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid daemon host URL: %w", err)
	}

	// Strip any path (e.g. /api/chat); the SDK appends its own.
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, http.DefaultClient)}, nil
}

// AnalyzeImage sends a prompt plus a base64-encoded image to a vision
// model served by the daemon and returns the raw text response.
func (c *Client) AnalyzeImage(ctx context.Context, model, system, prompt, imgB64 string) (string, error) {
	// Vision inference on CPU can be slow, so allow a long deadline
	// when the caller did not set one.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", client.NewError(client.KindResponse, types.BackendOllama, model,
			fmt.Errorf("failed to decode base64 image: %w", err))
	}

	var messages []api.Message
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	messages = append(messages, api.Message{
		Role:    "user",
		Content: prompt,
		Images:  []api.ImageData{api.ImageData(imgBytes)},
	})

	streamFalse := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &streamFalse,
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", client.NewError(client.KindTimeout, types.BackendOllama, model, err)
		}
		return "", client.NewError(client.KindUnavailable, types.BackendOllama, model,
			fmt.Errorf("daemon chat error: %w", err))
	}

	if responseContent == "" {
		return "", client.NewError(client.KindResponse, types.BackendOllama, model,
			fmt.Errorf("empty response from daemon"))
	}

	return responseContent, nil
}
