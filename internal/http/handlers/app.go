package handlers

import (
	"encoding/json"
	"net/http"

	"imagebot/internal/bot"
	"imagebot/internal/imagegen"
	"imagebot/internal/infra"
	"imagebot/internal/storage"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Bot    *bot.Handler
	Svc    *imagegen.Service
	Store  *storage.ImageStore
	Logger infra.Logger
}

// NewApp builds the handler container.
func NewApp(b *bot.Handler, svc *imagegen.Service, store *storage.ImageStore, logger infra.Logger) *App {
	return &App{Bot: b, Svc: svc, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
