// Package pipeline runs the fixed caption -> metadata step sequence
// against the resolved configuration and assembles the typed result.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/google/uuid"

	"github.com/menta2k/image-captioner/internal/config"
	"github.com/menta2k/image-captioner/pkg/client"
	"github.com/menta2k/image-captioner/pkg/processing"
	"github.com/menta2k/image-captioner/pkg/prompts"
	"github.com/menta2k/image-captioner/pkg/schema"
	"github.com/menta2k/image-captioner/pkg/types"
)

// DefaultMaxAltWords bounds alt-text length.
const DefaultMaxAltWords = 20

// Image preparation settings for model submission.
const (
	sendFormat  = "jpg"
	sendMaxDim  = 1536
	sendQuality = 85
)

// Backends holds the concrete clients the runner dispatches to. Remote
// may be nil when no credential is available; runs that route a step to
// it then fail with an auth error before any call is made.
type Backends struct {
	Remote     client.Vision
	RemoteText client.Text
	Local      client.Vision
	Daemon     client.Vision
}

// Runner executes pipeline requests. Steps run strictly in order; the
// metadata step never starts before the caption step completes.
type Runner struct {
	cfg         config.Effective
	backends    Backends
	proc        *processing.Processor
	logger      *slog.Logger
	maxAltWords int
}

// NewRunner creates a runner for one effective configuration.
func NewRunner(cfg config.Effective, backends Backends, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:         cfg,
		backends:    backends,
		proc:        processing.NewProcessor(),
		logger:      logger,
		maxAltWords: DefaultMaxAltWords,
	}
}

// RequiresRemote reports whether the request's mode, under the given
// configuration, routes at least one step to the remote backend. The
// double-mode metadata step is text-only and always remote; a caption
// override removes the caption step's backend call from consideration.
func RequiresRemote(cfg config.Effective, req types.Request) bool {
	if req.Mode == types.ModeDouble {
		return true
	}
	if req.CaptionOverride == "" && cfg.CaptionBackend == types.BackendOpenRouter {
		return true
	}
	return cfg.MetadataVisionBackend == types.BackendOpenRouter
}

// Run executes the caption and metadata steps for one request.
func (r *Runner) Run(ctx context.Context, req types.Request) (types.Result, error) {
	if err := req.Validate(); err != nil {
		return types.Result{}, err
	}

	runID := uuid.NewString()
	log := r.logger.With("run_id", runID, "mode", req.Mode)

	// The image is loaded once and reused by every vision step.
	// Caption-override double-mode runs never touch it.
	var imgB64 string
	if r.needsImage(req) {
		b64, err := r.prepareImage(req.ImageRef())
		if err != nil {
			return types.Result{}, err
		}
		imgB64 = b64
	}

	log.Info("caption step starting", "backend", r.cfg.CaptionBackend)
	captionOut, err := r.captionStep(ctx, req, imgB64)
	if err != nil {
		return types.Result{}, fmt.Errorf("caption step: %w", err)
	}
	log.Info("caption step done", "skipped", req.CaptionOverride != "")

	log.Info("metadata step starting")
	meta, metaStep, err := r.metadataStep(ctx, req, captionOut.Caption, imgB64)
	if err != nil {
		return types.Result{}, err
	}
	log.Info("metadata step done", "backend", metaStep.Backend, "model", metaStep.Model)

	return assemble(captionOut, meta)
}

// needsImage reports whether any step of this run submits the image to
// a backend.
func (r *Runner) needsImage(req types.Request) bool {
	if req.CaptionOverride == "" {
		return true
	}
	return req.Mode == types.ModeTriple
}

func (r *Runner) prepareImage(ref string) (string, error) {
	img, err := r.proc.LoadImageSmart(ref)
	if err != nil {
		return "", fmt.Errorf("failed to load image %s: %w", ref, err)
	}
	return r.encodeImage(img)
}

func (r *Runner) encodeImage(img image.Image) (string, error) {
	b64, err := r.proc.PrepareImageForModel(img, sendFormat, sendMaxDim, sendQuality)
	if err != nil {
		return "", fmt.Errorf("failed to prepare image for model: %w", err)
	}
	return b64, nil
}

// captionOutput carries the caption step's products to assembly.
type captionOutput struct {
	AltText string
	Caption string
	Step    types.StepResult
}

// captionStep produces alt text and a dense caption. A caller-supplied
// caption override short-circuits the backend call entirely: the
// override is used verbatim as the caption and, word-capped, as the alt
// text source.
func (r *Runner) captionStep(ctx context.Context, req types.Request, imgB64 string) (captionOutput, error) {
	if req.CaptionOverride != "" {
		return captionOutput{
			AltText: truncateWords(req.CaptionOverride, r.maxAltWords),
			Caption: req.CaptionOverride,
		}, nil
	}

	vision, err := r.visionFor(r.cfg.CaptionBackend)
	if err != nil {
		return captionOutput{}, err
	}
	model := r.visionModel(r.cfg.CaptionBackend, r.cfg.CaptionModel)

	prompt := prompts.WithContext(prompts.CombinedUser(r.maxAltWords), req.Context)
	raw, err := vision.AnalyzeImage(ctx, model, prompts.CombinedSystem, prompt, imgB64)
	if err != nil {
		return captionOutput{}, err
	}

	ac, err := parseAltCaption(raw)
	if err != nil {
		return captionOutput{}, client.NewError(client.KindResponse, r.cfg.CaptionBackend, model,
			fmt.Errorf("invalid alt+caption JSON: %w", err))
	}

	return captionOutput{
		AltText: truncateWords(ac.AltText, r.maxAltWords),
		Caption: ac.Caption,
		Step: types.StepResult{
			Text:    raw,
			Backend: r.cfg.CaptionBackend,
			Model:   model,
		},
	}, nil
}

// metadataStep extracts structured metadata. Double mode sends the
// caption to the remote text backend; triple mode sends the image plus
// caption to the configured vision backend. The output is parsed as
// JSON after fence stripping and normalized against the schema.
func (r *Runner) metadataStep(ctx context.Context, req types.Request, caption, imgB64 string) (types.Metadata, types.StepResult, error) {
	var (
		raw     string
		backend types.Backend
		model   string
		err     error
	)

	switch req.Mode {
	case types.ModeDouble:
		backend = types.BackendOpenRouter
		model = r.cfg.MetadataTextModel
		if r.backends.RemoteText == nil {
			return nil, types.StepResult{}, r.missingRemote(model)
		}
		prompt := prompts.StructuredTextUser(caption)
		raw, err = r.backends.RemoteText.Chat(ctx, model, prompts.StructuredTextSystem, prompt)

	case types.ModeTriple:
		backend = r.cfg.MetadataVisionBackend
		model = r.visionModel(backend, r.cfg.MetadataVisionModel)
		var vision client.Vision
		vision, err = r.visionFor(backend)
		if err == nil {
			prompt := prompts.WithContext(prompts.StructuredVisionUser(caption), req.Context)
			raw, err = vision.AnalyzeImage(ctx, model, prompts.StructuredVisionSystem, prompt, imgB64)
		}

	default:
		return nil, types.StepResult{}, fmt.Errorf("unknown mode %q", req.Mode)
	}
	if err != nil {
		return nil, types.StepResult{}, fmt.Errorf("metadata step: %w", err)
	}

	meta, err := decodeObject(raw)
	if err != nil {
		return nil, types.StepResult{}, &MetadataParseError{
			Backend: backend,
			Model:   model,
			Output:  raw,
			Err:     err,
		}
	}
	schema.Normalize(meta)

	return meta, types.StepResult{Text: raw, Backend: backend, Model: model}, nil
}

// visionFor maps the closed backend enum to a concrete client. Unknown
// values are rejected at config resolution, so the default arm only
// guards against a runner built with an unvalidated configuration.
func (r *Runner) visionFor(b types.Backend) (client.Vision, error) {
	switch b {
	case types.BackendOpenRouter:
		if r.backends.Remote == nil {
			return nil, r.missingRemote("")
		}
		return r.backends.Remote, nil
	case types.BackendLocal:
		if r.backends.Local == nil {
			return nil, client.NewError(client.KindUnavailable, b, "", fmt.Errorf("local backend not configured"))
		}
		return r.backends.Local, nil
	case types.BackendOllama:
		if r.backends.Daemon == nil {
			return nil, client.NewError(client.KindUnavailable, b, "", fmt.Errorf("daemon backend not configured"))
		}
		return r.backends.Daemon, nil
	default:
		return nil, &config.Error{Err: fmt.Errorf("unknown backend %q", b)}
	}
}

// visionModel picks the model id a backend expects: the local backend
// loads its own VLM, everything else uses the configured model name.
func (r *Runner) visionModel(b types.Backend, configured string) string {
	if b == types.BackendLocal {
		return r.cfg.LocalVLMID
	}
	return configured
}

func (r *Runner) missingRemote(model string) error {
	return client.NewError(client.KindAuth, types.BackendOpenRouter, model,
		fmt.Errorf("remote backend not configured, set %s", "OPENROUTER_API_KEY"))
}

// CaptionOnly performs a single vision call with an arbitrary prompt,
// outside the full pipeline. An empty backend uses the configured
// caption backend; an empty model uses the backend's configured model.
func (r *Runner) CaptionOnly(ctx context.Context, imageRef string, backend types.Backend, model, prompt, contextStr string) (string, error) {
	if backend == "" {
		backend = r.cfg.CaptionBackend
	}
	vision, err := r.visionFor(backend)
	if err != nil {
		return "", err
	}
	if model == "" {
		model = r.visionModel(backend, r.cfg.CaptionModel)
	}
	if prompt == "" {
		prompt = prompts.DefaultCaption
	}

	imgB64, err := r.prepareImage(imageRef)
	if err != nil {
		return "", err
	}
	return vision.AnalyzeImage(ctx, model, "", prompts.WithContext(prompt, contextStr), imgB64)
}

// AltText produces a single bounded-length alt-text sentence.
func (r *Runner) AltText(ctx context.Context, imageRef string, maxWords int, contextStr string) (string, error) {
	if maxWords <= 0 {
		maxWords = r.maxAltWords
	}
	vision, err := r.visionFor(r.cfg.CaptionBackend)
	if err != nil {
		return "", err
	}
	model := r.visionModel(r.cfg.CaptionBackend, r.cfg.CaptionModel)

	imgB64, err := r.prepareImage(imageRef)
	if err != nil {
		return "", err
	}

	prompt := prompts.WithContext(prompts.AltUser(maxWords), contextStr)
	out, err := vision.AnalyzeImage(ctx, model, prompts.AltSystem, prompt, imgB64)
	if err != nil {
		return "", err
	}
	return truncateWords(out, maxWords), nil
}

// DenseCaption produces a multi-sentence factual caption.
func (r *Runner) DenseCaption(ctx context.Context, imageRef string, contextStr string) (string, error) {
	vision, err := r.visionFor(r.cfg.CaptionBackend)
	if err != nil {
		return "", err
	}
	model := r.visionModel(r.cfg.CaptionBackend, r.cfg.CaptionModel)

	imgB64, err := r.prepareImage(imageRef)
	if err != nil {
		return "", err
	}

	prompt := prompts.WithContext(prompts.CaptionUser, contextStr)
	return vision.AnalyzeImage(ctx, model, prompts.CaptionSystem, prompt, imgB64)
}
