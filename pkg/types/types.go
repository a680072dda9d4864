package types

import (
	"fmt"
	"strings"
)

// Backend identifies a model-serving backend that turns an image and a
// prompt into text.
type Backend string

const (
	// BackendOpenRouter is the remote OpenRouter API.
	BackendOpenRouter Backend = "openrouter"
	// BackendLocal is a local llama.cpp server with an OpenAI-compatible endpoint.
	BackendLocal Backend = "local"
	// BackendOllama is a local Ollama daemon.
	BackendOllama Backend = "ollama"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case BackendOpenRouter:
		return BackendOpenRouter, nil
	case BackendLocal:
		return BackendLocal, nil
	case BackendOllama:
		return BackendOllama, nil
	default:
		return "", fmt.Errorf("unknown backend %q (use 'openrouter', 'local' or 'ollama')", s)
	}
}

// Mode selects the pipeline variant.
type Mode string

const (
	// ModeDouble runs a vision call for the caption and a text-only call for metadata.
	ModeDouble Mode = "double"
	// ModeTriple runs vision calls for both the caption and metadata.
	ModeTriple Mode = "triple"
)

// ParseMode validates a pipeline mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDouble:
		return ModeDouble, nil
	case ModeTriple:
		return ModeTriple, nil
	default:
		return "", fmt.Errorf("unknown mode %q (use 'double' or 'triple')", s)
	}
}

// Request is the caller-supplied input for one pipeline run.
// Exactly one of ImageURL and FilePath must be set.
type Request struct {
	ImageURL        string
	FilePath        string
	Mode            Mode
	CaptionOverride string
	Context         string
}

// Validate checks the image reference and mode.
func (r Request) Validate() error {
	if r.ImageURL == "" && r.FilePath == "" {
		return fmt.Errorf("provide either an image URL or a file path")
	}
	if r.ImageURL != "" && r.FilePath != "" {
		return fmt.Errorf("provide only one of image URL or file path, not both")
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	return nil
}

// ImageRef returns whichever image reference is set.
func (r Request) ImageRef() string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	return r.FilePath
}

// Metadata is the structured metadata object produced by the metadata step.
type Metadata map[string]any

// StepResult is the output of a single pipeline step.
type StepResult struct {
	Text    string
	Backend Backend
	Model   string
}

// Result is the final pipeline output.
type Result struct {
	AltText  string   `json:"alt_text"`
	Caption  string   `json:"caption"`
	Metadata Metadata `json:"metadata"`
}
