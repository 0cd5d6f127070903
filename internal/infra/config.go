package infra

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents plugin configuration loaded from environment variables.
// It is constructed once at startup and treated as read-only afterwards;
// every component receives it (or the fields it needs) explicitly.
type Config struct {
	AppEnv string
	Port   string

	// Grok API
	GrokAPIKey  string
	GrokBaseURL string
	GrokModel   string

	// Generation defaults
	DefaultAspectRatio string
	DefaultResolution  string

	// Network
	HTTPProxy       string
	HTTPSProxy      string
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
	MaxRetries      int

	// Storage
	DataDir        string
	SaveDirectory  string
	FilenamePrefix string

	// HTTP server
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AuthToken        string
	AllowedOrigins   []string
	DefaultLocale    string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		GrokAPIKey:  os.Getenv("GROK_API_KEY"),
		GrokBaseURL: getEnv("GROK_BASE_URL", "https://api.x.ai/v1"),
		GrokModel:   getEnv("GROK_IMAGE_MODEL", "grok-imagine-image"),

		DefaultAspectRatio: getEnv("GROK_DEFAULT_ASPECT_RATIO", "1:1"),
		DefaultResolution:  getEnv("GROK_DEFAULT_RESOLUTION", "1k"),

		HTTPProxy:       os.Getenv("HTTP_PROXY_URL"),
		HTTPSProxy:      os.Getenv("HTTPS_PROXY_URL"),
		RequestTimeout:  time.Second * time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)),
		DownloadTimeout: time.Second * time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 60)),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),

		DataDir:        getEnv("DATA_DIR", "data"),
		SaveDirectory:  os.Getenv("SAVE_DIRECTORY"),
		FilenamePrefix: getEnv("FILENAME_PREFIX", "grok_"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AuthToken:        os.Getenv("PLUGIN_AUTH_TOKEN"),
		AllowedOrigins:   splitList(os.Getenv("ALLOWED_ORIGINS")),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
	}

	if cfg.GrokAPIKey == "" {
		return nil, fmt.Errorf("GROK_API_KEY is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must not be negative")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	for _, proxy := range []string{cfg.HTTPProxy, cfg.HTTPSProxy} {
		if proxy == "" {
			continue
		}
		if _, err := url.Parse(proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", proxy, err)
		}
	}

	return cfg, nil
}

// ProxyURL returns the proxy to use for outbound traffic. The HTTPS proxy
// wins; the HTTP proxy is the fallback. Empty means a direct connection.
func (c *Config) ProxyURL() string {
	if c.HTTPSProxy != "" {
		return c.HTTPSProxy
	}
	return c.HTTPProxy
}

// ResolveSaveDir computes the directory downloaded images are written to.
// It is a pure function of configuration: an explicit SAVE_DIRECTORY wins,
// otherwise images land under the data directory.
func ResolveSaveDir(cfg *Config) string {
	if dir := strings.TrimSpace(cfg.SaveDirectory); dir != "" {
		return dir
	}
	return filepath.Join(cfg.DataDir, "plugin_data", "grok_image")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
