package handlers

import (
	"fmt"
	"net/http"
	"time"

	"imagebot/pkg/zip"
)

type assetItem struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Extension string    `json:"extension"`
	Size      int64     `json:"size"`
	SavedAt   time.Time `json:"saved_at"`
}

type assetsResponse struct {
	Directory string      `json:"directory"`
	Assets    []assetItem `json:"assets"`
}

// AssetsList returns the saved images, newest first.
func (a *App) AssetsList(w http.ResponseWriter, r *http.Request) {
	images, err := a.Store.List()
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list assets failed")
		a.error(w, http.StatusInternalServerError, "internal_error", "could not list saved images")
		return
	}
	items := make([]assetItem, 0, len(images))
	for _, img := range images {
		items = append(items, assetItem{
			Filename:  img.Filename,
			Path:      img.AbsolutePath,
			Extension: img.Extension,
			Size:      img.Size,
			SavedAt:   img.SavedAt,
		})
	}
	a.json(w, http.StatusOK, assetsResponse{Directory: a.Store.Directory(), Assets: items})
}

// AssetsArchive streams every saved image as a single zip download.
func (a *App) AssetsArchive(w http.ResponseWriter, r *http.Request) {
	images, err := a.Store.List()
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: archive assets failed")
		a.error(w, http.StatusInternalServerError, "internal_error", "could not list saved images")
		return
	}
	entries := make([]zip.Entry, 0, len(images))
	for _, img := range images {
		data, err := a.Store.Read(img.Filename)
		if err != nil {
			a.Logger.Warn().Err(err).Str("filename", img.Filename).Msg("handlers: skipping unreadable asset")
			continue
		}
		entries = append(entries, zip.Entry{Filename: img.Filename, Data: data})
	}
	archive, err := zip.Archive(entries)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: build archive failed")
		a.error(w, http.StatusInternalServerError, "internal_error", "could not build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "images_"+time.Now().Format("20060102_150405")+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
