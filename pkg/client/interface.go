package client

import (
	"context"
)

// Vision is a backend that answers a prompt about a base64-encoded image.
type Vision interface {
	AnalyzeImage(ctx context.Context, model, system, prompt, imgB64 string) (string, error)
}

// Text is a backend that answers a text-only prompt. Only the remote
// backend implements this; local vision backends cannot serve the
// text-only metadata step.
type Text interface {
	Chat(ctx context.Context, model, system, prompt string) (string, error)
}
