package handlers

import (
	"encoding/json"
	"net/http"

	"imagebot/internal/domain"
)

type generateRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

type editRequest struct {
	Prompt      string   `json:"prompt"`
	Source      string   `json:"source,omitempty"` // URL or local path
	Images      []string `json:"images,omitempty"` // attached image URLs
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	Resolution  string   `json:"resolution,omitempty"`
}

type imageResponse struct {
	SavedPath string `json:"saved_path"`
	RemoteURL string `json:"remote_url"`
}

// ImagesGenerate runs a structured text-to-image request.
func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	result, err := a.Svc.Generate(r.Context(), req.Prompt, req.AspectRatio, req.Resolution)
	if err != nil {
		a.pipelineError(w, err)
		return
	}
	a.json(w, http.StatusOK, imageResponse{SavedPath: result.SavedPath, RemoteURL: result.RemoteURL})
}

// ImagesEdit runs a structured image-edit request.
func (a *App) ImagesEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	result, err := a.Svc.Edit(r.Context(), req.Source, req.Images, req.Prompt, req.AspectRatio, req.Resolution)
	if err != nil {
		a.pipelineError(w, err)
		return
	}
	a.json(w, http.StatusOK, imageResponse{SavedPath: result.SavedPath, RemoteURL: result.RemoteURL})
}

// pipelineError maps pipeline failure kinds onto HTTP statuses.
func (a *App) pipelineError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation, domain.KindUnsupportedFormat, domain.KindFileNotFound:
		status = http.StatusBadRequest
	case domain.KindAPI, domain.KindDownload:
		status = http.StatusBadGateway
	case domain.KindIO:
		status = http.StatusInternalServerError
	}
	a.Logger.Error().Err(err).Str("kind", kind).Msg("handlers: pipeline failed")
	a.error(w, status, kind, err.Error())
}
