package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func resolveLocale(t *testing.T, mutate func(*http.Request)) string {
	t.Helper()
	var got string
	handler := Locale("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mutate(req)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestLocaleExplicitHeaderWins(t *testing.T) {
	got := resolveLocale(t, func(r *http.Request) {
		r.Header.Set("X-Locale", "zh-CN")
		r.Header.Set("Accept-Language", "en-US")
	})
	if got != "zh" {
		t.Fatalf("locale = %q, want zh", got)
	}
}

func TestLocaleFromAcceptLanguage(t *testing.T) {
	cases := map[string]string{
		"zh-CN,zh;q=0.9,en;q=0.8": "zh",
		"en-GB,en;q=0.9":          "en",
		"fr-FR,fr;q=0.9":          "en", // unsupported falls back
	}
	for accept, want := range cases {
		got := resolveLocale(t, func(r *http.Request) {
			r.Header.Set("Accept-Language", accept)
		})
		if got != want {
			t.Fatalf("Accept-Language %q resolved to %q, want %q", accept, got, want)
		}
	}
}

func TestLocaleDefaultsWithoutHeaders(t *testing.T) {
	if got := resolveLocale(t, func(r *http.Request) {}); got != "en" {
		t.Fatalf("locale = %q, want en", got)
	}
}

func TestLocaleFromContextFallback(t *testing.T) {
	if got := LocaleFromContext(context.Background()); got != "en" {
		t.Fatalf("LocaleFromContext on empty context = %q, want en", got)
	}
}

func TestLocaleBadHeaderFallsBack(t *testing.T) {
	got := resolveLocale(t, func(r *http.Request) {
		r.Header.Set("X-Locale", "not-a-locale!!")
	})
	if got != "en" {
		t.Fatalf("locale = %q, want en", got)
	}
}
