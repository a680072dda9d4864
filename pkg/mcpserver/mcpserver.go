// Package mcpserver exposes the captioning pipeline as MCP tools using
// the official MCP Go SDK. Each tool call resolves its own effective
// configuration, so per-call model and backend overrides work the same
// way they do on the library surface.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/menta2k/image-captioner/internal/config"
	"github.com/menta2k/image-captioner/pkg/types"
)

// Service is the pipeline surface the tools call. *imagecaptioner.Captioner
// satisfies it.
type Service interface {
	Run(ctx context.Context, req types.Request) (types.Result, error)
	AltText(ctx context.Context, imageRef string, maxWords int, contextStr string) (string, error)
	DenseCaption(ctx context.Context, imageRef string, contextStr string) (string, error)
}

// CaptionService is implemented by services that also support free-form
// single-call captions.
type CaptionService interface {
	Service
	CaptionWithPrompt(ctx context.Context, imageRef, prompt, contextStr string) (string, error)
}

// Factory builds a Service for one tool call's config path and overrides.
type Factory func(configPath string, overrides config.Overrides) (Service, error)

// Server serves the captioning tools over the MCP protocol.
type Server struct {
	server  *mcp.Server
	factory Factory
}

// New creates a Server with the given name and version. The factory is
// invoked once per tool call with that call's overrides.
func New(name, version string, factory Factory) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	s := &Server{server: server, factory: factory}
	s.registerTools()
	return s
}

// Serve starts serving MCP requests. It reads requests from in and
// writes responses to out, blocking until ctx is cancelled or the
// transport closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}
	return s.run(ctx, transport)
}

// run starts the server with the given transport. Exported via Serve
// for production use; called directly by tests with InMemoryTransport.
func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "caption_image",
		Description: "Caption a single image with an optional custom prompt.",
		InputSchema: json.RawMessage(captionImageSchema),
	}, s.handler(s.captionImage))

	s.server.AddTool(&mcp.Tool{
		Name:        "alt_text",
		Description: "Generate one short accessibility alt-text sentence for an image.",
		InputSchema: json.RawMessage(altTextSchema),
	}, s.handler(s.altText))

	s.server.AddTool(&mcp.Tool{
		Name:        "dense_caption",
		Description: "Generate a detailed factual caption (2-6 sentences) for an image.",
		InputSchema: json.RawMessage(denseCaptionSchema),
	}, s.handler(s.denseCaption))

	s.server.AddTool(&mcp.Tool{
		Name:        "image_metadata",
		Description: "Run the full caption + metadata pipeline and return alt_text, caption and metadata as JSON.",
		InputSchema: json.RawMessage(imageMetadataSchema),
	}, s.handler(s.imageMetadata))
}

// handler adapts a typed tool function to the SDK handler shape,
// converting errors into error-flagged text results.
func (s *Server) handler(fn func(ctx context.Context, args json.RawMessage) (string, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if args == nil {
			args = json.RawMessage("{}")
		}
		result, err := fn(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

// imageRefArgs is the common image reference pair. Exactly one of the
// two must be supplied.
type imageRefArgs struct {
	ImageURL string `json:"image_url"`
	FilePath string `json:"file_path"`
}

func (a imageRefArgs) ref() (string, error) {
	if a.ImageURL == "" && a.FilePath == "" {
		return "", fmt.Errorf("provide either image_url or file_path")
	}
	if a.ImageURL != "" && a.FilePath != "" {
		return "", fmt.Errorf("provide only one of image_url or file_path, not both")
	}
	if a.ImageURL != "" {
		return a.ImageURL, nil
	}
	return a.FilePath, nil
}

type captionImageArgs struct {
	imageRefArgs
	Prompt       string `json:"prompt"`
	Backend      string `json:"backend"`
	LocalModelID string `json:"local_model_id"`
	Model        string `json:"model"`
	Context      string `json:"context"`
}

func (s *Server) captionImage(ctx context.Context, raw json.RawMessage) (string, error) {
	var args captionImageArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	ref, err := args.ref()
	if err != nil {
		return "", err
	}

	svc, err := s.factory("", config.Overrides{
		CaptionBackend: args.Backend,
		CaptionModel:   args.Model,
		LocalVLMID:     args.LocalModelID,
	})
	if err != nil {
		return "", err
	}

	if cs, ok := svc.(CaptionService); ok {
		return cs.CaptionWithPrompt(ctx, ref, args.Prompt, args.Context)
	}
	return svc.DenseCaption(ctx, ref, args.Context)
}

type altTextArgs struct {
	imageRefArgs
	MaxWords int    `json:"max_words"`
	Model    string `json:"model"`
	Context  string `json:"context"`
}

func (s *Server) altText(ctx context.Context, raw json.RawMessage) (string, error) {
	var args altTextArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	ref, err := args.ref()
	if err != nil {
		return "", err
	}

	svc, err := s.factory("", config.Overrides{CaptionModel: args.Model})
	if err != nil {
		return "", err
	}
	return svc.AltText(ctx, ref, args.MaxWords, args.Context)
}

type denseCaptionArgs struct {
	imageRefArgs
	Model   string `json:"model"`
	Context string `json:"context"`
}

func (s *Server) denseCaption(ctx context.Context, raw json.RawMessage) (string, error) {
	var args denseCaptionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	ref, err := args.ref()
	if err != nil {
		return "", err
	}

	svc, err := s.factory("", config.Overrides{CaptionModel: args.Model})
	if err != nil {
		return "", err
	}
	return svc.DenseCaption(ctx, ref, args.Context)
}

type imageMetadataArgs struct {
	imageRefArgs
	CaptionOverride     string `json:"caption_override"`
	ConfigPath          string `json:"config_path"`
	Mode                string `json:"mode"`
	CaptionModel        string `json:"caption_model"`
	MetadataTextModel   string `json:"metadata_text_model"`
	MetadataVisionModel string `json:"metadata_vision_model"`
	Context             string `json:"context"`
}

func (s *Server) imageMetadata(ctx context.Context, raw json.RawMessage) (string, error) {
	var args imageMetadataArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if _, err := args.ref(); err != nil {
		return "", err
	}

	mode := args.Mode
	if mode == "" {
		mode = string(types.ModeDouble)
	}

	svc, err := s.factory(args.ConfigPath, config.Overrides{
		CaptionModel:        args.CaptionModel,
		MetadataTextModel:   args.MetadataTextModel,
		MetadataVisionModel: args.MetadataVisionModel,
	})
	if err != nil {
		return "", err
	}

	result, err := svc.Run(ctx, types.Request{
		ImageURL:        args.ImageURL,
		FilePath:        args.FilePath,
		Mode:            types.Mode(mode),
		CaptionOverride: args.CaptionOverride,
		Context:         args.Context,
	})
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(out), nil
}

// nopWriteCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
