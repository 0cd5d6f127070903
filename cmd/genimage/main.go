package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"imagebot/internal/imagegen"
	"imagebot/internal/infra"
	"imagebot/internal/providers/grok"
	"imagebot/internal/storage"
)

func main() {
	var (
		promptFlag string
		sourceFlag string
		aspectFlag string
		resFlag    string
	)
	flag.StringVar(&promptFlag, "prompt", "", "Prompt describing the image to create or the edit to apply")
	flag.StringVar(&sourceFlag, "source", "", "Image to edit: a URL or a local file path (omit to generate from scratch)")
	flag.StringVar(&aspectFlag, "aspect", "", "Aspect ratio (defaults to configuration)")
	flag.StringVar(&resFlag, "resolution", "", "Resolution tier, 1k or 2k (defaults to configuration)")
	flag.Parse()

	prompt := strings.TrimSpace(promptFlag)
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "a prompt is required via -prompt")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "genimage").Logger()

	client, err := grok.NewClient(grok.Options{
		APIKey:         cfg.GrokAPIKey,
		BaseURL:        cfg.GrokBaseURL,
		Model:          cfg.GrokModel,
		ProxyURL:       cfg.ProxyURL(),
		Logger:         &logger,
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build grok client: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewImageStore(storage.ImageStoreOptions{
		Directory:       infra.ResolveSaveDir(cfg),
		FilenamePrefix:  cfg.FilenamePrefix,
		ProxyURL:        cfg.ProxyURL(),
		Logger:          &logger,
		DownloadTimeout: cfg.DownloadTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize image store: %v\n", err)
		os.Exit(1)
	}

	svc := imagegen.NewService(imagegen.Options{
		Client:             client,
		Store:              store,
		DefaultAspectRatio: cfg.DefaultAspectRatio,
		DefaultResolution:  cfg.DefaultResolution,
		Logger:             &logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+cfg.DownloadTimeout)
	defer cancel()

	var result *imagegen.Result
	if source := strings.TrimSpace(sourceFlag); source != "" {
		result, err = svc.Edit(ctx, source, nil, prompt, aspectFlag, resFlag)
	} else {
		result, err = svc.Generate(ctx, prompt, aspectFlag, resFlag)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "image request failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.SavedPath)
}
