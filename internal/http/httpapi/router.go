package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"imagebot/internal/http/handlers"
	"imagebot/internal/infra"
	"imagebot/internal/mcpserver"
	"imagebot/internal/middleware"
)

// NewRouter assembles the full HTTP surface: chat webhook, structured image
// endpoints, saved-asset access and the tool-calling endpoint.
func NewRouter(cfg *infra.Config, logger infra.Logger, app *handlers.App, mcp *mcpserver.Server) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Locale(cfg.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SharedToken(cfg.AuthToken))
		if cfg.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		}

		r.Post("/v1/messages", app.Messages)
		r.Route("/v1/images", func(r chi.Router) {
			r.Post("/generate", app.ImagesGenerate)
			r.Post("/edit", app.ImagesEdit)
		})
		r.Get("/v1/assets", app.AssetsList)
		r.Get("/v1/assets/archive", app.AssetsArchive)
		r.Method(http.MethodPost, "/v1/tools", mcp.Handler())
	})

	return r
}
