package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"imagebot/internal/domain"
)

func newTestStore(t *testing.T) *ImageStore {
	t.Helper()
	store, err := NewImageStore(ImageStoreOptions{
		Directory:      t.TempDir(),
		FilenamePrefix: "grok_",
	})
	if err != nil {
		t.Fatalf("NewImageStore error: %v", err)
	}
	return store
}

func TestSaveFromURLWritesFileWithContentTypeExtension(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	store := newTestStore(t)
	saved, err := store.SaveFromURL(context.Background(), ts.URL+"/img")
	if err != nil {
		t.Fatalf("SaveFromURL error: %v", err)
	}
	if saved.Extension != "png" || !strings.HasSuffix(saved.Filename, ".png") {
		t.Fatalf("extension mismatch: %+v", saved)
	}
	if !strings.HasPrefix(saved.Filename, "grok_") {
		t.Fatalf("filename %q lacks prefix", saved.Filename)
	}
	if saved.OriginURL != ts.URL+"/img" {
		t.Fatalf("origin url mismatch: %q", saved.OriginURL)
	}
	if !filepath.IsAbs(saved.AbsolutePath) {
		t.Fatalf("path %q is not absolute", saved.AbsolutePath)
	}
	data, err := os.ReadFile(saved.AbsolutePath)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("saved bytes mismatch")
	}
}

func TestSaveFromURLUnknownContentTypeDefaultsToJpg(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("bytes"))
	}))
	defer ts.Close()

	store := newTestStore(t)
	saved, err := store.SaveFromURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("SaveFromURL error: %v", err)
	}
	if saved.Extension != "jpg" {
		t.Fatalf("extension = %q, want jpg", saved.Extension)
	}
}

func TestSaveFromURLReportsDownloadError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	store := newTestStore(t)
	_, err := store.SaveFromURL(context.Background(), ts.URL)
	if !errors.Is(err, domain.ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
}

func TestConcurrentSavesProduceUniqueFilenames(t *testing.T) {
	store := newTestStore(t)

	const n = 1000
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		names = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			saved, err := store.save([]byte("x"), "jpg", "http://mock/img.jpg")
			if err != nil {
				t.Errorf("save error: %v", err)
				return
			}
			mu.Lock()
			names[saved.Filename] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(names) != n {
		t.Fatalf("unique filenames = %d, want %d", len(names), n)
	}
	entries, err := os.ReadDir(store.Directory())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != n {
		t.Fatalf("files on disk = %d, want %d", len(entries), n)
	}
}

func TestListReturnsSavedImages(t *testing.T) {
	store := newTestStore(t)
	first, err := store.save([]byte("a"), "png", "")
	if err != nil {
		t.Fatalf("save error: %v", err)
	}
	if _, err := store.save([]byte("bb"), "jpg", ""); err != nil {
		t.Fatalf("save error: %v", err)
	}

	images, err := store.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("len = %d, want 2", len(images))
	}
	found := false
	for _, img := range images {
		if img.Filename == first.Filename {
			found = true
			if img.Extension != "png" || img.Size != 1 {
				t.Fatalf("listed image mismatch: %+v", img)
			}
		}
	}
	if !found {
		t.Fatalf("first save missing from listing")
	}
}

func TestReadRejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Read("../escape.jpg"); err == nil {
		t.Fatalf("expected error for traversal filename")
	}
	if _, err := store.Read(""); err == nil {
		t.Fatalf("expected error for empty filename")
	}
}

func TestNewImageStoreRequiresDirectory(t *testing.T) {
	if _, err := NewImageStore(ImageStoreOptions{}); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
