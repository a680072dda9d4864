// Package config resolves the effective pipeline configuration from
// three layers: packaged defaults, a project config file (auto-discovered
// or explicitly selected), and per-call overrides. Higher layers win.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/menta2k/image-captioner/pkg/types"
)

// EnvConfigPath selects an explicit config file, overriding auto-discovery.
const EnvConfigPath = "IMAGE_CAPTIONER_CONFIG"

// ProjectFileName is the auto-discovered config file in the working directory.
const ProjectFileName = "captioner.json"

// Error reports a bad or unreadable configuration.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// File is the on-disk config document. It accepts two generations of
// key names; when both are present for the same concept, the current
// name wins. Pointer fields distinguish "absent" from "empty".
type File struct {
	CaptionModel          *string `json:"caption_model"`
	MetadataTextModel     *string `json:"metadata_text_model"`
	MetadataVisionModel   *string `json:"metadata_vision_model"`
	CaptionBackend        *string `json:"caption_backend"`
	MetadataVisionBackend *string `json:"metadata_vision_backend"`
	LocalVLMID            *string `json:"local_vlm_id"`
	LocalServerURL        *string `json:"local_server_url"`
	DaemonHost            *string `json:"daemon_host"`

	// Legacy aliases.
	ACModel                 *string `json:"ac_model"`
	MetaTextModel           *string `json:"meta_text_model"`
	MetaVisionModel         *string `json:"meta_vision_model"`
	ACBackend               *string `json:"ac_backend"`
	LegacyMetaVisionBackend *string `json:"meta_vision_backend"`
	LocalModelID            *string `json:"local_model_id"`
}

// normalized maps legacy keys onto current ones where the current key
// is absent, so later merging only deals with current names.
func (f File) normalized() File {
	out := f
	if out.CaptionModel == nil {
		out.CaptionModel = f.ACModel
	}
	if out.MetadataTextModel == nil {
		out.MetadataTextModel = f.MetaTextModel
	}
	if out.MetadataVisionModel == nil {
		out.MetadataVisionModel = f.MetaVisionModel
	}
	if out.CaptionBackend == nil {
		out.CaptionBackend = f.ACBackend
	}
	if out.MetadataVisionBackend == nil {
		out.MetadataVisionBackend = f.LegacyMetaVisionBackend
	}
	if out.LocalVLMID == nil {
		out.LocalVLMID = f.LocalModelID
	}
	return out
}

// Overrides carries per-call settings. Empty strings mean "not supplied".
type Overrides struct {
	CaptionModel          string
	MetadataTextModel     string
	MetadataVisionModel   string
	CaptionBackend        string
	MetadataVisionBackend string
	LocalVLMID            string
	LocalServerURL        string
	DaemonHost            string
}

// Effective is the fully merged, default-filled configuration for one
// pipeline run. Every field is non-empty after Resolve.
type Effective struct {
	CaptionModel          string
	MetadataTextModel     string
	MetadataVisionModel   string
	CaptionBackend        types.Backend
	MetadataVisionBackend types.Backend
	LocalVLMID            string
	LocalServerURL        string
	DaemonHost            string
}

// defaults are the packaged fallback values, matching the models the
// project ships with.
func defaults() Effective {
	return Effective{
		CaptionModel:          "google/gemini-2.5-flash",
		MetadataTextModel:     "google/gemini-2.5-pro",
		MetadataVisionModel:   "google/gemini-2.5-pro",
		CaptionBackend:        types.BackendOpenRouter,
		MetadataVisionBackend: types.BackendOpenRouter,
		LocalVLMID:            "Qwen/Qwen2-VL-2B-Instruct",
		LocalServerURL:        "http://localhost:8080",
		DaemonHost:            "http://localhost:11434",
	}
}

// Resolve merges packaged defaults, the project config file, and
// per-call overrides into one effective configuration.
//
// The file is located by precedence: explicitPath argument, then the
// EnvConfigPath variable, then ProjectFileName in the working directory.
// A missing explicitly requested file is an error; a missing
// auto-discovered file is not.
func Resolve(explicitPath string, overrides Overrides) (Effective, error) {
	eff := defaults()

	path, explicit := configPath(explicitPath)
	if path != "" {
		file, err := load(path)
		if err != nil {
			if explicit || !os.IsNotExist(err) {
				return Effective{}, &Error{Path: path, Err: err}
			}
			// Auto-discovered file absent: defaults apply.
		} else {
			applyFile(&eff, file.normalized())
		}
	}

	applyOverrides(&eff, overrides)

	if err := validateBackends(&eff, overrides); err != nil {
		return Effective{}, err
	}
	return eff, nil
}

// configPath picks the config file path and reports whether it was
// explicitly requested (argument or environment variable).
func configPath(explicitPath string) (string, bool) {
	if explicitPath != "" {
		return explicitPath, true
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath, true
	}
	return ProjectFileName, false
}

func load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return file, nil
}

func applyFile(eff *Effective, f File) {
	setString(&eff.CaptionModel, f.CaptionModel)
	setString(&eff.MetadataTextModel, f.MetadataTextModel)
	setString(&eff.MetadataVisionModel, f.MetadataVisionModel)
	setString(&eff.LocalVLMID, f.LocalVLMID)
	setString(&eff.LocalServerURL, f.LocalServerURL)
	setString(&eff.DaemonHost, f.DaemonHost)
	if f.CaptionBackend != nil && *f.CaptionBackend != "" {
		eff.CaptionBackend = types.Backend(*f.CaptionBackend)
	}
	if f.MetadataVisionBackend != nil && *f.MetadataVisionBackend != "" {
		eff.MetadataVisionBackend = types.Backend(*f.MetadataVisionBackend)
	}
}

func applyOverrides(eff *Effective, o Overrides) {
	if o.CaptionModel != "" {
		eff.CaptionModel = o.CaptionModel
	}
	if o.MetadataTextModel != "" {
		eff.MetadataTextModel = o.MetadataTextModel
	}
	if o.MetadataVisionModel != "" {
		eff.MetadataVisionModel = o.MetadataVisionModel
	}
	if o.CaptionBackend != "" {
		eff.CaptionBackend = types.Backend(o.CaptionBackend)
	}
	if o.MetadataVisionBackend != "" {
		eff.MetadataVisionBackend = types.Backend(o.MetadataVisionBackend)
	}
	if o.LocalVLMID != "" {
		eff.LocalVLMID = o.LocalVLMID
	}
	if o.LocalServerURL != "" {
		eff.LocalServerURL = o.LocalServerURL
	}
	if o.DaemonHost != "" {
		eff.DaemonHost = o.DaemonHost
	}
}

// validateBackends rejects unknown backend names at resolution time so
// dispatch never sees an unmapped value.
func validateBackends(eff *Effective, _ Overrides) error {
	b, err := types.ParseBackend(string(eff.CaptionBackend))
	if err != nil {
		return &Error{Err: fmt.Errorf("caption_backend: %w", err)}
	}
	eff.CaptionBackend = b

	b, err = types.ParseBackend(string(eff.MetadataVisionBackend))
	if err != nil {
		return &Error{Err: fmt.Errorf("metadata_vision_backend: %w", err)}
	}
	eff.MetadataVisionBackend = b
	return nil
}

func setString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}
