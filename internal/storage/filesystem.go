package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
)

// SavedImage describes an image persisted to the local filesystem. It is
// created once after a successful download and never mutated.
type SavedImage struct {
	AbsolutePath string
	Filename     string
	OriginURL    string
	Extension    string
	Size         int64
	SavedAt      time.Time
}

// ImageStoreOptions configures an ImageStore.
type ImageStoreOptions struct {
	Directory       string
	FilenamePrefix  string
	ProxyURL        string
	HTTPClient      *http.Client
	Logger          *infra.Logger
	DownloadTimeout time.Duration
}

// ImageStore downloads result images and persists them under a single
// directory. Filenames combine a timestamp with a random identifier, so
// concurrent saves never collide and no locking is needed.
type ImageStore struct {
	dir        string
	prefix     string
	httpClient *http.Client
	logger     *infra.Logger
	timeout    time.Duration
}

// NewImageStore initializes an ImageStore rooted at the configured
// directory, creating it if absent.
func NewImageStore(opts ImageStoreOptions) (*ImageStore, error) {
	dir := strings.TrimSpace(opts.Directory)
	if dir == "" {
		return nil, errors.New("storage: save directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure save directory: %w", err)
	}
	timeout := opts.DownloadTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if proxy := strings.TrimSpace(opts.ProxyURL); proxy != "" {
			parsed, err := url.Parse(proxy)
			if err != nil {
				return nil, fmt.Errorf("storage: invalid proxy url: %w", err)
			}
			transport.Proxy = http.ProxyURL(parsed)
		}
		httpClient = &http.Client{Transport: transport}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &ImageStore{
		dir:        dir,
		prefix:     opts.FilenamePrefix,
		httpClient: httpClient,
		logger:     logger,
		timeout:    timeout,
	}, nil
}

// Directory returns the configured save directory.
func (s *ImageStore) Directory() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// SaveFromURL fetches the image at the given URL with one GET bounded by the
// download timeout and writes it under the save directory. The extension
// comes from the response content type; unknown types default to jpg.
func (s *ImageStore) SaveFromURL(ctx context.Context, imageURL string) (*SavedImage, error) {
	if s == nil {
		return nil, errors.New("storage: no store configured")
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build download request: %w", domain.ErrDownload)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: fetch %s: %v: %w", imageURL, err, domain.ErrDownload)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage: fetch %s: status %d: %w", imageURL, resp.StatusCode, domain.ErrDownload)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: read image body: %v: %w", err, domain.ErrDownload)
	}

	return s.save(data, extensionFor(resp.Header.Get("Content-Type")), imageURL)
}

func (s *ImageStore) save(data []byte, ext, originURL string) (*SavedImage, error) {
	now := time.Now()
	filename := fmt.Sprintf("%s%s_%s.%s", s.prefix, now.Format("20060102_150405"), uuid.NewString()[:8], ext)
	fullPath := filepath.Join(s.dir, filename)

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("storage: write %s: %v: %w", fullPath, err, domain.ErrIO)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		absPath = fullPath
	}
	s.logger.Info().
		Str("path", absPath).
		Int("bytes", len(data)).
		Msg("storage: image saved")
	return &SavedImage{
		AbsolutePath: absPath,
		Filename:     filename,
		OriginURL:    originURL,
		Extension:    ext,
		Size:         int64(len(data)),
		SavedAt:      now,
	}, nil
}

// List returns the images currently present in the save directory, newest
// first. Subdirectories are ignored.
func (s *ImageStore) List() ([]SavedImage, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: list save directory: %w", err)
	}
	images := make([]SavedImage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		fullPath := filepath.Join(s.dir, entry.Name())
		absPath, err := filepath.Abs(fullPath)
		if err != nil {
			absPath = fullPath
		}
		images = append(images, SavedImage{
			AbsolutePath: absPath,
			Filename:     entry.Name(),
			Extension:    strings.TrimPrefix(filepath.Ext(entry.Name()), "."),
			Size:         info.Size(),
			SavedAt:      info.ModTime(),
		})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].SavedAt.After(images[j].SavedAt) })
	return images, nil
}

// Read returns the raw bytes of a previously saved image by filename. The
// name is restricted to a bare filename so callers cannot escape the save
// directory.
func (s *ImageStore) Read(filename string) ([]byte, error) {
	if filename != filepath.Base(filename) || filename == "." || filename == "" {
		return nil, errors.New("storage: invalid filename")
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", filename, err)
	}
	return data, nil
}

// extensionFor maps a response content type onto a file extension. Anything
// unrecognized falls back to jpg, mirroring the remote API's default output.
func extensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "image/jpeg"), strings.Contains(ct, "image/jpg"):
		return "jpg"
	case strings.Contains(ct, "image/png"):
		return "png"
	case strings.Contains(ct, "image/gif"):
		return "gif"
	case strings.Contains(ct, "image/webp"):
		return "webp"
	default:
		return "jpg"
	}
}
