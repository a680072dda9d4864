// Command image-metadata runs the caption + metadata pipeline for one
// image and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	imagecaptioner "github.com/menta2k/image-captioner"
	"github.com/menta2k/image-captioner/internal/config"
	"github.com/menta2k/image-captioner/pkg/openrouter"
	"github.com/menta2k/image-captioner/pkg/pipeline"
	"github.com/menta2k/image-captioner/pkg/types"
)

func main() {
	var imageURL, filePath, mode, captionOverride, configPath string
	var captionModel, metadataTextModel, metadataVisionModel string
	var captionBackend, metadataVisionBackend, localServerURL, daemonHost, contextStr string
	var indent int

	flag.StringVar(&imageURL, "image-url", "", "HTTP/HTTPS URL of the image")
	flag.StringVar(&filePath, "file-path", "", "local file path to the image")
	flag.StringVar(&mode, "mode", "double", "pipeline mode: double (text metadata) or triple (vision metadata)")
	flag.StringVar(&captionOverride, "caption-override", "", "existing dense caption; skips the caption step")
	flag.StringVar(&configPath, "config", "", "path to config JSON (default: auto-discovered)")
	flag.StringVar(&captionModel, "caption-model", "", "caption model override")
	flag.StringVar(&metadataTextModel, "metadata-text-model", "", "text metadata model override")
	flag.StringVar(&metadataVisionModel, "metadata-vision-model", "", "vision metadata model override")
	flag.StringVar(&captionBackend, "caption-backend", "", "caption backend override: openrouter|local|ollama")
	flag.StringVar(&metadataVisionBackend, "metadata-vision-backend", "", "vision metadata backend override: openrouter|local|ollama")
	flag.StringVar(&localServerURL, "local-server-url", "", "llama.cpp server URL for the local backend")
	flag.StringVar(&daemonHost, "daemon-host", "", "Ollama daemon host URI override")
	flag.StringVar(&contextStr, "context", "", "extra context appended to every vision prompt")
	flag.IntVar(&indent, "indent", 2, "JSON indent width")
	flag.Parse()

	if imageURL == "" && filePath == "" {
		log.Fatalf("usage: image-metadata -image-url URL | -file-path PATH [-mode double|triple] [-caption-override text]")
	}
	if imageURL != "" && filePath != "" {
		log.Fatal("provide only one of -image-url or -file-path, not both")
	}

	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	parsedMode, err := types.ParseMode(mode)
	if err != nil {
		log.Fatal(err)
	}

	captioner, err := imagecaptioner.New(imagecaptioner.Options{
		ConfigPath: configPath,
		Overrides: config.Overrides{
			CaptionModel:          captionModel,
			MetadataTextModel:     metadataTextModel,
			MetadataVisionModel:   metadataVisionModel,
			CaptionBackend:        captionBackend,
			MetadataVisionBackend: metadataVisionBackend,
			LocalServerURL:        localServerURL,
			DaemonHost:            daemonHost,
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	req := types.Request{
		ImageURL:        imageURL,
		FilePath:        filePath,
		Mode:            parsedMode,
		CaptionOverride: captionOverride,
		Context:         contextStr,
	}

	// Early credential check for a clearer error message.
	if pipeline.RequiresRemote(captioner.Config(), req) && os.Getenv(openrouter.EnvAPIKey) == "" {
		log.Fatalf("%s is not set. Add it to your environment or a .env file.", openrouter.EnvAPIKey)
	}

	result, err := captioner.Run(context.Background(), req)
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	if indent > 0 {
		pad := make([]byte, indent)
		for i := range pad {
			pad[i] = ' '
		}
		enc.SetIndent("", string(pad))
	}
	if err := enc.Encode(result); err != nil {
		log.Fatal(err)
	}
}
