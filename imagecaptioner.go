// Package imagecaptioner produces image captions and structured metadata
// by orchestrating vision and text model backends.
//
// A pipeline run executes a fixed step sequence: a caption step (one
// vision call returning alt text and a dense caption) followed by a
// metadata step (a text-only call in double mode, a vision call in
// triple mode). Backends are interchangeable: the remote OpenRouter
// API, a local llama.cpp server, or an Ollama daemon.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		imagecaptioner "github.com/menta2k/image-captioner"
//		"github.com/menta2k/image-captioner/pkg/types"
//	)
//
//	func main() {
//		cap, err := imagecaptioner.New(imagecaptioner.Options{})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := cap.Run(context.Background(), types.Request{
//			ImageURL: "https://example.com/photo.jpg",
//			Mode:     types.ModeDouble,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Println(result.AltText)
//		fmt.Println(result.Caption)
//	}
//
// Configuration is resolved per call to New from packaged defaults, an
// optional project config file, and per-call overrides (see
// internal/config for precedence and legacy key aliases).
package imagecaptioner

import (
	"context"
	"log/slog"
	"os"

	"github.com/menta2k/image-captioner/internal/config"
	"github.com/menta2k/image-captioner/pkg/llamacpp"
	"github.com/menta2k/image-captioner/pkg/ollama"
	"github.com/menta2k/image-captioner/pkg/openrouter"
	"github.com/menta2k/image-captioner/pkg/pipeline"
	"github.com/menta2k/image-captioner/pkg/types"
)

// Version of the image captioner library
const Version = "1.0.0"

// Options configures a Captioner.
type Options struct {
	// ConfigPath explicitly selects a config file. Empty means
	// environment/auto-discovery per internal/config.
	ConfigPath string
	// Overrides are per-call configuration overrides, highest precedence.
	Overrides config.Overrides
	// APIKey is the OpenRouter credential. Empty falls back to the
	// OPENROUTER_API_KEY environment variable. A missing key is only an
	// error once a run routes a step to the remote backend.
	APIKey string
	// LocalServerURL is the llama.cpp server address for the "local"
	// backend. Empty uses the configured local_server_url, which defaults
	// to the conventional localhost address.
	LocalServerURL string
	// Logger receives per-run structured logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// CaptionOptions tunes a single standalone caption call.
type CaptionOptions struct {
	Prompt  string        // empty uses the default caption prompt
	Backend types.Backend // empty uses the configured caption backend
	Model   string        // empty uses the backend's configured model
	Context string        // appended to the prompt when set
}

// Captioner is the high-level entry point wiring configuration,
// backends, and the pipeline runner.
type Captioner struct {
	cfg    config.Effective
	runner *pipeline.Runner
}

// New resolves configuration and constructs a Captioner.
func New(opts Options) (*Captioner, error) {
	cfg, err := config.Resolve(opts.ConfigPath, opts.Overrides)
	if err != nil {
		return nil, err
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(openrouter.EnvAPIKey)
	}

	var backends pipeline.Backends
	if apiKey != "" {
		remote, err := openrouter.NewClient(apiKey)
		if err != nil {
			return nil, err
		}
		backends.Remote = remote
		backends.RemoteText = remote
	}

	localURL := opts.LocalServerURL
	if localURL == "" {
		localURL = cfg.LocalServerURL
	}

	local, err := llamacpp.NewClient(localURL)
	if err != nil {
		return nil, err
	}
	backends.Local = local

	daemon, err := ollama.NewClient(cfg.DaemonHost)
	if err != nil {
		return nil, err
	}
	backends.Daemon = daemon

	return &Captioner{
		cfg:    cfg,
		runner: pipeline.NewRunner(cfg, backends, opts.Logger),
	}, nil
}

// Config returns the effective configuration this Captioner runs with.
func (c *Captioner) Config() config.Effective {
	return c.cfg
}

// Run executes the full caption + metadata pipeline for one request.
func (c *Captioner) Run(ctx context.Context, req types.Request) (types.Result, error) {
	return c.runner.Run(ctx, req)
}

// Caption produces a single free-form caption for an image.
func (c *Captioner) Caption(ctx context.Context, imageRef string, opts CaptionOptions) (string, error) {
	return c.runner.CaptionOnly(ctx, imageRef, opts.Backend, opts.Model, opts.Prompt, opts.Context)
}

// CaptionWithPrompt produces a single caption using a custom prompt.
func (c *Captioner) CaptionWithPrompt(ctx context.Context, imageRef, prompt, contextStr string) (string, error) {
	return c.Caption(ctx, imageRef, CaptionOptions{Prompt: prompt, Context: contextStr})
}

// AltText produces one accessibility-oriented sentence of at most
// maxWords words. maxWords <= 0 uses the default bound.
func (c *Captioner) AltText(ctx context.Context, imageRef string, maxWords int, contextStr string) (string, error) {
	return c.runner.AltText(ctx, imageRef, maxWords, contextStr)
}

// DenseCaption produces a detailed multi-sentence caption.
func (c *Captioner) DenseCaption(ctx context.Context, imageRef string, contextStr string) (string, error) {
	return c.runner.DenseCaption(ctx, imageRef, contextStr)
}

// GetVersion returns the library version.
func GetVersion() string {
	return Version
}
