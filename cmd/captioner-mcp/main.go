// Command captioner-mcp serves the captioning pipeline as MCP tools
// over stdio.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	imagecaptioner "github.com/menta2k/image-captioner"
	"github.com/menta2k/image-captioner/internal/config"
	"github.com/menta2k/image-captioner/pkg/mcpserver"
)

func main() {
	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	factory := func(configPath string, overrides config.Overrides) (mcpserver.Service, error) {
		return imagecaptioner.New(imagecaptioner.Options{
			ConfigPath: configPath,
			Overrides:  overrides,
		})
	}

	server := mcpserver.New("image-captioner", imagecaptioner.Version, factory)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
