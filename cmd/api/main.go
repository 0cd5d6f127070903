package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"imagebot/internal/bot"
	"imagebot/internal/http/handlers"
	httpapi "imagebot/internal/http/httpapi"
	"imagebot/internal/imagegen"
	"imagebot/internal/infra"
	"imagebot/internal/mcpserver"
	"imagebot/internal/providers/grok"
	"imagebot/internal/storage"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

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
		logger.Fatal().Err(err).Msg("failed to build grok client")
	}

	store, err := storage.NewImageStore(storage.ImageStoreOptions{
		Directory:       infra.ResolveSaveDir(cfg),
		FilenamePrefix:  cfg.FilenamePrefix,
		ProxyURL:        cfg.ProxyURL(),
		Logger:          &logger,
		DownloadTimeout: cfg.DownloadTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize image store")
	}

	svc := imagegen.NewService(imagegen.Options{
		Client:             client,
		Store:              store,
		DefaultAspectRatio: cfg.DefaultAspectRatio,
		DefaultResolution:  cfg.DefaultResolution,
		Logger:             &logger,
	})

	commands := bot.NewHandler(bot.Options{
		Service: svc,
		Logger:  &logger,
		Help: bot.HelpInfo{
			SaveDirectory:   store.Directory(),
			ProxyConfigured: cfg.ProxyURL() != "",
			RequestTimeout:  cfg.RequestTimeout,
		},
		DefaultLocale: cfg.DefaultLocale,
	})

	app := handlers.NewApp(commands, svc, store, logger)
	mcp := mcpserver.NewServer(svc)

	router := httpapi.NewRouter(cfg, logger, app, mcp)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
