package imagegen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"imagebot/internal/domain"
	"imagebot/internal/providers/grok"
	"imagebot/internal/storage"
)

type fakeClient struct {
	generateCalls int
	editCalls     int
	lastGenerate  grok.GenerateRequest
	lastEdit      grok.EditRequest
	result        *grok.ImageResult
	err           error
}

func (f *fakeClient) Generate(ctx context.Context, req grok.GenerateRequest) (*grok.ImageResult, error) {
	f.generateCalls++
	f.lastGenerate = req
	return f.result, f.err
}

func (f *fakeClient) Edit(ctx context.Context, req grok.EditRequest) (*grok.ImageResult, error) {
	f.editCalls++
	f.lastEdit = req
	return f.result, f.err
}

type fakeSaver struct {
	saved *storage.SavedImage
	err   error
	calls int
}

func (f *fakeSaver) SaveFromURL(ctx context.Context, imageURL string) (*storage.SavedImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.saved
	out.OriginURL = imageURL
	return &out, nil
}

func newTestService(client *fakeClient, saver *fakeSaver) *Service {
	return NewService(Options{
		Client:             client,
		Store:              saver,
		DefaultAspectRatio: "1:1",
		DefaultResolution:  "1k",
	})
}

func TestGenerateAppliesDefaults(t *testing.T) {
	client := &fakeClient{result: &grok.ImageResult{URL: "http://mock/img.png"}}
	saver := &fakeSaver{saved: &storage.SavedImage{AbsolutePath: "/data/grok_x.png"}}
	svc := newTestService(client, saver)

	result, err := svc.Generate(context.Background(), "a red apple", "", "")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if client.lastGenerate.AspectRatio != "1:1" || client.lastGenerate.Resolution != "1k" {
		t.Fatalf("defaults not applied: %+v", client.lastGenerate)
	}
	if result.SavedPath != "/data/grok_x.png" || result.RemoteURL != "http://mock/img.png" {
		t.Fatalf("result mismatch: %+v", result)
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	client := &fakeClient{}
	svc := newTestService(client, &fakeSaver{})

	_, err := svc.Generate(context.Background(), "   ", "", "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if client.generateCalls != 0 {
		t.Fatalf("client must not be called on validation failure")
	}
}

func TestGenerateRejectsUnknownEnums(t *testing.T) {
	client := &fakeClient{}
	svc := newTestService(client, &fakeSaver{})

	if _, err := svc.Generate(context.Background(), "apple", "7:5", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for aspect ratio, got %v", err)
	}
	if _, err := svc.Generate(context.Background(), "apple", "", "4k"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for resolution, got %v", err)
	}
	if client.generateCalls != 0 {
		t.Fatalf("client must not be called on validation failure")
	}
}

func TestEditLocalFileSendsBase64(t *testing.T) {
	client := &fakeClient{result: &grok.ImageResult{URL: "http://mock/edited.png"}}
	saver := &fakeSaver{saved: &storage.SavedImage{AbsolutePath: "/data/grok_y.png"}}
	svc := newTestService(client, saver)

	path := writeTempImage(t, "cat.jpg", []byte{0xff, 0xd8, 0xff})
	result, err := svc.Edit(context.Background(), path, nil, "make it a dog", "", "")
	if err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if client.lastEdit.ImageMIME != "image/jpeg" || client.lastEdit.ImageBase64 == "" {
		t.Fatalf("edit request lacks base64 source: %+v", client.lastEdit)
	}
	if client.lastEdit.ImageURL != "" {
		t.Fatalf("edit request must not carry a url for a local file")
	}
	if result.SavedPath == "" {
		t.Fatalf("expected saved path")
	}
}

func TestEditMissingFileSkipsAPICall(t *testing.T) {
	client := &fakeClient{}
	svc := newTestService(client, &fakeSaver{})

	_, err := svc.Edit(context.Background(), "/nonexistent/path.jpg", nil, "make it a dog", "", "")
	if !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if client.editCalls != 0 {
		t.Fatalf("client must not be called when the source file is missing")
	}
}

func TestEditWithoutAnySourceFails(t *testing.T) {
	svc := newTestService(&fakeClient{}, &fakeSaver{})

	_, err := svc.Edit(context.Background(), "", nil, "make it a dog", "", "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEditUsesAttachedImage(t *testing.T) {
	client := &fakeClient{result: &grok.ImageResult{URL: "http://mock/edited.png"}}
	saver := &fakeSaver{saved: &storage.SavedImage{AbsolutePath: "/data/grok_z.png"}}
	svc := newTestService(client, saver)

	if _, err := svc.Edit(context.Background(), "", []string{"http://chat.example.com/attached.jpg"}, "beautify", "", ""); err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if client.lastEdit.ImageURL != "http://chat.example.com/attached.jpg" {
		t.Fatalf("attached source not used: %+v", client.lastEdit)
	}
}

func TestSaveFailureKeepsRemoteURL(t *testing.T) {
	client := &fakeClient{result: &grok.ImageResult{URL: "http://mock/img.png"}}
	saver := &fakeSaver{err: domain.ErrIO}
	svc := newTestService(client, saver)

	_, err := svc.Generate(context.Background(), "apple", "", "")
	if !errors.Is(err, domain.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !strings.Contains(err.Error(), "http://mock/img.png") {
		t.Fatalf("error should keep the remote url: %v", err)
	}
}
