// Command caption-image captions a single image using the configured
// vision backend and prints the caption to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	imagecaptioner "github.com/menta2k/image-captioner"
	"github.com/menta2k/image-captioner/internal/config"
	"github.com/menta2k/image-captioner/pkg/openrouter"
	"github.com/menta2k/image-captioner/pkg/types"
)

func main() {
	var imageURL, filePath, prompt, backend, model, localModelID, localServerURL, contextStr, configPath string

	flag.StringVar(&imageURL, "image-url", "", "HTTP/HTTPS URL of the image")
	flag.StringVar(&filePath, "file-path", "", "local file path to the image")
	flag.StringVar(&prompt, "prompt", "", "custom caption prompt")
	flag.StringVar(&backend, "backend", "", "backend to use: openrouter, local or ollama (default: configured)")
	flag.StringVar(&model, "model", "", "model id override")
	flag.StringVar(&localModelID, "local-model-id", "", "model id for the local backend")
	flag.StringVar(&localServerURL, "local-server-url", "", "llama.cpp server URL for the local backend")
	flag.StringVar(&contextStr, "context", "", "extra context appended to the prompt")
	flag.StringVar(&configPath, "config", "", "path to config JSON (default: auto-discovered)")
	flag.Parse()

	if imageURL == "" && filePath == "" {
		log.Fatalf("usage: caption-image -image-url URL | -file-path PATH [-backend openrouter|local|ollama] [-model id] [-prompt text]")
	}
	if imageURL != "" && filePath != "" {
		log.Fatal("provide only one of -image-url or -file-path, not both")
	}

	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	var b types.Backend
	if backend != "" {
		parsed, err := types.ParseBackend(backend)
		if err != nil {
			log.Fatal(err)
		}
		b = parsed
	}

	captioner, err := imagecaptioner.New(imagecaptioner.Options{
		ConfigPath: configPath,
		Overrides: config.Overrides{
			LocalVLMID:     localModelID,
			LocalServerURL: localServerURL,
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	useBackend := b
	if useBackend == "" {
		useBackend = captioner.Config().CaptionBackend
	}
	if useBackend == types.BackendOpenRouter && os.Getenv(openrouter.EnvAPIKey) == "" {
		log.Fatalf("%s is not set. Add it to your environment or a .env file.", openrouter.EnvAPIKey)
	}

	ref := imageURL
	if ref == "" {
		ref = filePath
	}

	caption, err := captioner.Caption(context.Background(), ref, imagecaptioner.CaptionOptions{
		Prompt:  prompt,
		Backend: b,
		Model:   model,
		Context: contextStr,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(caption)
}
