package imagecaptioner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/image-captioner/internal/config"
	"github.com/menta2k/image-captioner/pkg/openrouter"
	"github.com/menta2k/image-captioner/pkg/types"
)

func TestNew(t *testing.T) {
	t.Chdir(t.TempDir()) // no auto-discovered config
	t.Setenv(openrouter.EnvAPIKey, "")

	captioner, err := New(Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if captioner == nil {
		t.Fatal("New() returned nil")
	}

	cfg := captioner.Config()
	if cfg.CaptionBackend != types.BackendOpenRouter {
		t.Errorf("unexpected default caption backend %s", cfg.CaptionBackend)
	}
	if cfg.CaptionModel == "" || cfg.DaemonHost == "" {
		t.Error("expected defaults to be filled")
	}
}

func TestNewWithOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	captioner, err := New(Options{
		Overrides: config.Overrides{
			CaptionModel:   "override/model",
			CaptionBackend: "ollama",
			LocalVLMID:     "custom/vlm",
			LocalServerURL: "http://gpu-box:8080",
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	cfg := captioner.Config()
	if cfg.CaptionModel != "override/model" {
		t.Errorf("override not applied, got %q", cfg.CaptionModel)
	}
	if cfg.CaptionBackend != types.BackendOllama {
		t.Errorf("backend override not applied, got %s", cfg.CaptionBackend)
	}
	if cfg.LocalVLMID != "custom/vlm" {
		t.Errorf("local model id override not applied, got %q", cfg.LocalVLMID)
	}
	if cfg.LocalServerURL != "http://gpu-box:8080" {
		t.Errorf("local server URL override not applied, got %q", cfg.LocalServerURL)
	}
}

func TestNewWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"caption_model": "from-file"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	captioner, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if captioner.Config().CaptionModel != "from-file" {
		t.Errorf("config file not applied, got %q", captioner.Config().CaptionModel)
	}
}

func TestNewBadConfigPath(t *testing.T) {
	if _, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("GetVersion() = %q, want %q", GetVersion(), Version)
	}
}
