package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"imagebot/internal/imagegen"
	"imagebot/internal/providers/grok"
	"imagebot/internal/storage"
)

// e2eEnv wires a real pipeline (grok client + image store) against a mock
// API server that serves both the generation endpoints and the result image.
type e2eEnv struct {
	handler  *Handler
	saveDir  string
	apiCalls *atomic.Int32
	imageURL string
}

func newE2EEnv(t *testing.T) *e2eEnv {
	t.Helper()
	var calls atomic.Int32

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	})
	apiHandler := func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": server.URL + "/img.png"}},
		})
	}
	mux.HandleFunc("/images/generations", apiHandler)
	mux.HandleFunc("/images/edits", apiHandler)
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := grok.NewClient(grok.Options{
		APIKey:         "xai-test-key",
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
		RetryBaseWait:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("grok.NewClient error: %v", err)
	}
	saveDir := t.TempDir()
	store, err := storage.NewImageStore(storage.ImageStoreOptions{
		Directory:      saveDir,
		FilenamePrefix: "grok_",
	})
	if err != nil {
		t.Fatalf("NewImageStore error: %v", err)
	}
	svc := imagegen.NewService(imagegen.Options{Client: client, Store: store})
	handler := NewHandler(Options{
		Service: svc,
		Help: HelpInfo{
			SaveDirectory:  saveDir,
			RequestTimeout: 180 * time.Second,
		},
	})
	return &e2eEnv{handler: handler, saveDir: saveDir, apiCalls: &calls, imageURL: server.URL + "/img.png"}
}

func TestGenerateEndToEnd(t *testing.T) {
	env := newE2EEnv(t)

	reply, handled := env.handler.HandleMessage(context.Background(), Message{Text: "/generate a red apple 1:1 1k"})
	if !handled {
		t.Fatalf("message not recognized as a command")
	}
	if !strings.Contains(reply, env.imageURL) {
		t.Fatalf("reply lacks remote url: %q", reply)
	}
	entries, err := os.ReadDir(env.saveDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one saved file, got %d (err %v)", len(entries), err)
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "grok_") || !strings.HasSuffix(name, ".png") {
		t.Fatalf("saved filename %q does not match {prefix}_{timestamp}_{id}.png", name)
	}
	absPath, _ := filepath.Abs(filepath.Join(env.saveDir, name))
	if !strings.Contains(reply, absPath) {
		t.Fatalf("reply %q lacks saved path %q", reply, absPath)
	}
}

func TestEditEndToEndWithLocalFile(t *testing.T) {
	env := newE2EEnv(t)
	catPath := filepath.Join(t.TempDir(), "cat.jpg")
	if err := os.WriteFile(catPath, []byte{0xff, 0xd8, 0xff}, 0o644); err != nil {
		t.Fatalf("write cat.jpg: %v", err)
	}

	reply, handled := env.handler.HandleMessage(context.Background(), Message{Text: "/edit " + catPath + " make it a dog"})
	if !handled {
		t.Fatalf("message not recognized as a command")
	}
	if strings.HasPrefix(reply, "❌") {
		t.Fatalf("unexpected failure reply: %q", reply)
	}
	if n := env.apiCalls.Load(); n != 1 {
		t.Fatalf("api calls = %d, want 1", n)
	}
}

func TestEditMissingFileYieldsFileNotFoundWithoutAPICall(t *testing.T) {
	env := newE2EEnv(t)

	reply, handled := env.handler.HandleMessage(context.Background(), Message{Text: "/edit /nonexistent/path.jpg make it a dog"})
	if !handled {
		t.Fatalf("message not recognized as a command")
	}
	if !strings.Contains(reply, "FileNotFoundError") {
		t.Fatalf("reply %q lacks FileNotFoundError kind", reply)
	}
	if n := env.apiCalls.Load(); n != 0 {
		t.Fatalf("api calls = %d, want 0", n)
	}
}

func TestEditUsesAttachedImageWhenSourceOmitted(t *testing.T) {
	env := newE2EEnv(t)

	reply, handled := env.handler.HandleMessage(context.Background(), Message{
		Text:   "/edit make it a dog",
		Images: []string{"http://chat.example.com/attached.jpg"},
	})
	if !handled {
		t.Fatalf("message not recognized as a command")
	}
	if strings.HasPrefix(reply, "❌") {
		t.Fatalf("unexpected failure reply: %q", reply)
	}
}

func TestHandleMessageIgnoresNonCommands(t *testing.T) {
	env := newE2EEnv(t)
	for _, text := range []string{"hello there", "/unknown_cmd foo", ""} {
		if reply, handled := env.handler.HandleMessage(context.Background(), Message{Text: text}); handled {
			t.Fatalf("text %q unexpectedly handled with reply %q", text, reply)
		}
	}
}

func TestGenerateUsageReply(t *testing.T) {
	env := newE2EEnv(t)
	reply, handled := env.handler.HandleMessage(context.Background(), Message{Text: "/generate"})
	if !handled || !strings.Contains(reply, "Usage") {
		t.Fatalf("expected usage reply, got %q (handled=%v)", reply, handled)
	}
}

func TestHelpLocalized(t *testing.T) {
	env := newE2EEnv(t)

	en, handled := env.handler.HandleMessage(context.Background(), Message{Text: "/help"})
	if !handled || !strings.Contains(en, "Commands") {
		t.Fatalf("unexpected english help: %q", en)
	}
	zh, handled := env.handler.HandleMessage(context.Background(), Message{Text: "/help", Locale: "zh-CN"})
	if !handled || !strings.Contains(zh, "命令") {
		t.Fatalf("unexpected chinese help: %q", zh)
	}
	if !strings.Contains(en, env.saveDir) {
		t.Fatalf("help lacks save directory: %q", en)
	}
}

func TestSplitGenerateArgs(t *testing.T) {
	cases := []struct {
		args       string
		prompt     string
		aspect     string
		resolution string
	}{
		{"a red apple", "a red apple", "", ""},
		{"a red apple 16:9", "a red apple", "16:9", ""},
		{"a red apple 16:9 2k", "a red apple", "16:9", "2k"},
		{"a red apple 2k", "a red apple", "", "2k"},
		{"16:9", "16:9", "", ""}, // single token stays a prompt
		{"", "", "", ""},
	}
	for _, tc := range cases {
		prompt, aspect, resolution := splitGenerateArgs(tc.args)
		if prompt != tc.prompt || aspect != tc.aspect || resolution != tc.resolution {
			t.Fatalf("splitGenerateArgs(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.args, prompt, aspect, resolution, tc.prompt, tc.aspect, tc.resolution)
		}
	}
}

func TestSplitEditArgs(t *testing.T) {
	src, prompt := splitEditArgs("http://example.com/a.jpg make it a dog", false)
	if src != "http://example.com/a.jpg" || prompt != "make it a dog" {
		t.Fatalf("unexpected split: %q %q", src, prompt)
	}

	src, prompt = splitEditArgs("make it a dog", true)
	if src != "" || prompt != "make it a dog" {
		t.Fatalf("attachment case split: %q %q", src, prompt)
	}

	src, prompt = splitEditArgs("/tmp/cat.jpg make it a dog", true)
	if src != "/tmp/cat.jpg" || prompt != "make it a dog" {
		t.Fatalf("explicit source with attachment: %q %q", src, prompt)
	}

	if _, prompt = splitEditArgs("onlyprompt", false); prompt != "" {
		t.Fatalf("source required without attachment, got prompt %q", prompt)
	}
}
