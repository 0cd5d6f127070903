package imagegen

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
	"imagebot/internal/providers/grok"
	"imagebot/internal/storage"
)

// Aspect ratios and resolution tiers accepted by the Grok image API.
var (
	ValidAspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4", "2:1", "1:2", "19.5:9", "9:19.5", "20:9", "9:20", "auto"}
	ValidResolutions  = []string{"1k", "2k"}
)

// Client is the subset of the Grok client the pipeline needs.
type Client interface {
	Generate(ctx context.Context, req grok.GenerateRequest) (*grok.ImageResult, error)
	Edit(ctx context.Context, req grok.EditRequest) (*grok.ImageResult, error)
}

// Saver persists a result image given its remote URL.
type Saver interface {
	SaveFromURL(ctx context.Context, imageURL string) (*storage.SavedImage, error)
}

// Options configures the pipeline service.
type Options struct {
	Client             Client
	Store              Saver
	DefaultAspectRatio string
	DefaultResolution  string
	Logger             *infra.Logger
}

// Service runs the full locate → encode → call → save pipeline. It holds no
// mutable state, so concurrent invocations need no synchronization.
type Service struct {
	client        Client
	store         Saver
	defaultAspect string
	defaultRes    string
	logger        *infra.Logger
}

// Result is the outcome of a successful pipeline run.
type Result struct {
	SavedPath string
	RemoteURL string
}

// NewService wires the pipeline dependencies.
func NewService(opts Options) *Service {
	aspect := opts.DefaultAspectRatio
	if aspect == "" {
		aspect = "1:1"
	}
	res := opts.DefaultResolution
	if res == "" {
		res = "1k"
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Service{
		client:        opts.Client,
		store:         opts.Store,
		defaultAspect: aspect,
		defaultRes:    res,
		logger:        logger,
	}
}

// Generate creates a new image from the prompt, saves it locally and
// returns both the saved path and the remote URL.
func (s *Service) Generate(ctx context.Context, prompt, aspectRatio, resolution string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt must not be empty: %w", domain.ErrValidation)
	}
	aspectRatio, err := s.normalizeAspect(aspectRatio)
	if err != nil {
		return nil, err
	}
	resolution, err = s.normalizeResolution(resolution)
	if err != nil {
		return nil, err
	}

	result, err := s.client.Generate(ctx, grok.GenerateRequest{
		Prompt:      prompt,
		AspectRatio: aspectRatio,
		Resolution:  resolution,
	})
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result.URL)
}

// Edit modifies the image named by sourceArg (URL or local path) or, when
// sourceArg is empty, the first attached image. The edited result is saved
// locally like a generation.
func (s *Service) Edit(ctx context.Context, sourceArg string, attached []string, prompt, aspectRatio, resolution string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt must not be empty: %w", domain.ErrValidation)
	}
	aspectRatio, err := s.normalizeAspect(aspectRatio)
	if err != nil {
		return nil, err
	}
	resolution, err = s.normalizeResolution(resolution)
	if err != nil {
		return nil, err
	}

	source, err := ResolveSource(sourceArg, attached)
	if err != nil {
		return nil, err
	}
	req := grok.EditRequest{
		Prompt:      prompt,
		AspectRatio: aspectRatio,
		Resolution:  resolution,
	}
	switch source.Kind {
	case SourceURL:
		req.ImageURL = source.URL
	case SourceBase64:
		req.ImageBase64 = source.Data
		req.ImageMIME = source.MIME
	default:
		return nil, fmt.Errorf("an image source is required: give a URL, a local path, or attach an image: %w", domain.ErrValidation)
	}

	result, err := s.client.Edit(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result.URL)
}

// persist downloads the result image. On failure the remote URL is folded
// into the error so the user still gets a usable link.
func (s *Service) persist(ctx context.Context, remoteURL string) (*Result, error) {
	saved, err := s.store.SaveFromURL(ctx, remoteURL)
	if err != nil {
		return nil, fmt.Errorf("image ready at %s but saving failed: %w", remoteURL, err)
	}
	return &Result{SavedPath: saved.AbsolutePath, RemoteURL: remoteURL}, nil
}

func (s *Service) normalizeAspect(aspectRatio string) (string, error) {
	aspectRatio = strings.TrimSpace(aspectRatio)
	if aspectRatio == "" {
		return s.defaultAspect, nil
	}
	for _, valid := range ValidAspectRatios {
		if aspectRatio == valid {
			return aspectRatio, nil
		}
	}
	return "", fmt.Errorf("aspect ratio %q is not supported (valid: %s): %w",
		aspectRatio, strings.Join(ValidAspectRatios, ", "), domain.ErrValidation)
}

func (s *Service) normalizeResolution(resolution string) (string, error) {
	resolution = strings.TrimSpace(strings.ToLower(resolution))
	if resolution == "" {
		return s.defaultRes, nil
	}
	for _, valid := range ValidResolutions {
		if resolution == valid {
			return resolution, nil
		}
	}
	return "", fmt.Errorf("resolution %q is not supported (valid: %s): %w",
		resolution, strings.Join(ValidResolutions, ", "), domain.ErrValidation)
}

// IsValidAspectRatio reports whether the value is in the supported enum.
func IsValidAspectRatio(v string) bool {
	for _, valid := range ValidAspectRatios {
		if v == valid {
			return true
		}
	}
	return false
}

// IsValidResolution reports whether the value is in the supported enum.
func IsValidResolution(v string) bool {
	for _, valid := range ValidResolutions {
		if strings.ToLower(v) == valid {
			return true
		}
	}
	return false
}
