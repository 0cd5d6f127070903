package imagegen

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imagebot/internal/domain"
)

// SourceKind discriminates the input variants of an edit request.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceURL
	SourceBase64
)

// Source is the resolved input image for an edit request. Exactly one
// variant is populated; SourceNone is valid only for pure generation.
type Source struct {
	Kind SourceKind
	URL  string
	Data string // base64-encoded file contents
	MIME string
}

var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// IsRemoteURL reports whether the argument names an http(s) resource.
// URL-shaped arguments always win over filesystem state.
func IsRemoteURL(arg string) bool {
	lower := strings.ToLower(strings.TrimSpace(arg))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// EncodeFile reads a local image file and returns its base64 payload plus
// the MIME type inferred from the extension. Unknown extensions are refused
// rather than guessed.
func EncodeFile(path string) (data, mime string, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return "", "", fmt.Errorf("encode %s: %w", path, domain.ErrFileNotFound)
	}
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeByExt[ext]
	if !ok {
		return "", "", fmt.Errorf("encode %s: extension %q: %w", path, ext, domain.ErrUnsupportedFormat)
	}
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return "", "", fmt.Errorf("encode %s: %w", path, domain.ErrFileNotFound)
	}
	return base64.StdEncoding.EncodeToString(raw), mime, nil
}

// ResolveSource classifies a command argument and/or attached chat images
// into exactly one source variant. An explicit non-URL argument is always
// treated as a local path, so a missing file surfaces as a file error
// instead of silently falling back to an attachment.
func ResolveSource(arg string, attached []string) (Source, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case IsRemoteURL(arg):
		return Source{Kind: SourceURL, URL: arg}, nil
	case arg != "":
		data, mime, err := EncodeFile(arg)
		if err != nil {
			return Source{}, err
		}
		return Source{Kind: SourceBase64, Data: data, MIME: mime}, nil
	}
	for _, img := range attached {
		if img = strings.TrimSpace(img); img != "" {
			return Source{Kind: SourceURL, URL: img}, nil
		}
	}
	return Source{Kind: SourceNone}, nil
}

// SupportedExtensions lists the local file extensions the encoder accepts.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(mimeByExt))
	for ext := range mimeByExt {
		exts = append(exts, ext)
	}
	return exts
}
