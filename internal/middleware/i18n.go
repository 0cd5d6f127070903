package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the resolved reply locale in the request context.
var LocaleKey = localeContextKey{}

var supportedLocales = []language.Tag{
	language.English, // first tag is the fallback
	language.Chinese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Locale resolves the reply language for each request. An explicit X-Locale
// header wins; otherwise Accept-Language is matched against the supported
// set; otherwise the configured default applies.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	fallback := normalizeLocale(defaultLocale)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, fallback)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the resolved locale, defaulting to English.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok && v != "" {
		return v
	}
	return "en"
}

func detectLocale(r *http.Request, fallback string) string {
	if v := r.Header.Get("X-Locale"); v != "" {
		return normalizeLocale(v)
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			tag, _, conf := localeMatcher.Match(tags...)
			if conf > language.No {
				return normalizeTag(tag)
			}
		}
	}
	return fallback
}

func normalizeLocale(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "en"
	}
	matched, _, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return "en"
	}
	return normalizeTag(matched)
}

func normalizeTag(tag language.Tag) string {
	base, _ := tag.Base()
	if base.String() == "zh" {
		return "zh"
	}
	return "en"
}
