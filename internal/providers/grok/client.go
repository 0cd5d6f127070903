package grok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("grok: api key is required")

// Options configures the Grok image API client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	ProxyURL       string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration // per attempt
	MaxRetries     int           // additional attempts after the first
	RetryBaseWait  time.Duration // wait before the first retry, doubles each retry
}

// Client performs HTTP calls to the Grok image generation API.
type Client struct {
	apiKey         string
	baseURL        string
	model          string
	httpClient     *http.Client
	logger         *infra.Logger
	requestTimeout time.Duration
	maxRetries     int
	retryBaseWait  time.Duration
}

// GenerateRequest carries the inputs for a text-to-image call.
type GenerateRequest struct {
	Prompt      string
	AspectRatio string
	Resolution  string
}

// EditRequest carries the inputs for an image edit call. Exactly one of
// ImageURL or ImageBase64 (with ImageMIME) must be set.
type EditRequest struct {
	Prompt      string
	AspectRatio string
	Resolution  string
	ImageURL    string
	ImageBase64 string
	ImageMIME   string
}

// ImageResult is the normalized outcome of a successful API call.
type ImageResult struct {
	URL string
}

type imagePayload struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageMIME   string `json:"image_mime,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.x.ai/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "grok-imagine-image"
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	retryWait := opts.RetryBaseWait
	if retryWait <= 0 {
		retryWait = time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if proxy := strings.TrimSpace(opts.ProxyURL); proxy != "" {
			parsed, err := url.Parse(proxy)
			if err != nil {
				return nil, fmt.Errorf("grok: invalid proxy url: %w", err)
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
	return &Client{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        baseURL,
		model:          model,
		httpClient:     httpClient,
		logger:         logger,
		requestTimeout: timeout,
		maxRetries:     max(opts.MaxRetries, 0),
		retryBaseWait:  retryWait,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate requests a new image for the prompt and returns its remote URL.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("grok: prompt is required: %w", domain.ErrValidation)
	}
	payload := imagePayload{
		Model:       c.model,
		Prompt:      prompt,
		AspectRatio: strings.TrimSpace(req.AspectRatio),
		Resolution:  strings.TrimSpace(req.Resolution),
	}
	return c.post(ctx, "/images/generations", payload)
}

// Edit requests a modified version of the source image and returns the new
// remote URL. The source must be either a URL or a base64 payload, never both.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("grok: prompt is required: %w", domain.ErrValidation)
	}
	hasURL := strings.TrimSpace(req.ImageURL) != ""
	hasData := req.ImageBase64 != ""
	if hasURL == hasData {
		return nil, fmt.Errorf("grok: edit needs exactly one image source: %w", domain.ErrValidation)
	}
	if hasData && strings.TrimSpace(req.ImageMIME) == "" {
		return nil, fmt.Errorf("grok: base64 source needs a mime type: %w", domain.ErrValidation)
	}
	payload := imagePayload{
		Model:       c.model,
		Prompt:      prompt,
		AspectRatio: strings.TrimSpace(req.AspectRatio),
		Resolution:  strings.TrimSpace(req.Resolution),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		ImageBase64: req.ImageBase64,
		ImageMIME:   strings.TrimSpace(req.ImageMIME),
	}
	return c.post(ctx, "/images/edits", payload)
}

// post issues the API call with a bounded retry loop. Network failures,
// timeouts and 5xx responses retry with exponential waits; 4xx responses and
// malformed successes fail immediately without consuming retry budget.
func (c *Client) post(ctx context.Context, endpoint string, payload imagePayload) (*ImageResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("grok: encode request: %w", err)
	}

	attempts := c.maxRetries + 1
	lastStatus := 0
	lastMsg := ""
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := c.retryBaseWait << (attempt - 2)
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("grok: retrying request")
			select {
			case <-ctx.Done():
				return nil, &domain.APIError{Status: lastStatus, Message: ctx.Err().Error(), Attempts: attempt - 1}
			case <-time.After(wait):
			}
		}

		result, outcome := c.attempt(ctx, endpoint, body)
		if result != nil {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Str("url", result.URL).
				Msg("grok: request succeeded")
			return result, nil
		}
		lastStatus, lastMsg = outcome.status, outcome.message
		if !outcome.retriable {
			return nil, &domain.APIError{Status: outcome.status, Message: outcome.message, Attempts: attempt}
		}
		if err := ctx.Err(); err != nil {
			return nil, &domain.APIError{Status: lastStatus, Message: err.Error(), Attempts: attempt}
		}
	}
	return nil, &domain.APIError{Status: lastStatus, Message: lastMsg, Attempts: attempts}
}

type attemptOutcome struct {
	retriable bool
	status    int
	message   string
}

func (c *Client) attempt(ctx context.Context, endpoint string, body []byte) (*ImageResult, attemptOutcome) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, attemptOutcome{retriable: false, message: "build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failure or per-attempt timeout: retriable.
		return nil, attemptOutcome{retriable: true, message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, attemptOutcome{retriable: true, message: "read response: " + err.Error()}
	}

	if resp.StatusCode >= 500 {
		return nil, attemptOutcome{retriable: true, status: resp.StatusCode, message: apiMessage(raw)}
	}
	if resp.StatusCode >= 300 {
		return nil, attemptOutcome{retriable: false, status: resp.StatusCode, message: apiMessage(raw)}
	}

	var decoded imageResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, attemptOutcome{retriable: false, status: resp.StatusCode, message: "decode response: " + err.Error()}
	}
	imageURL := ""
	if len(decoded.Data) > 0 {
		imageURL = strings.TrimSpace(decoded.Data[0].URL)
	}
	if imageURL == "" {
		return nil, attemptOutcome{retriable: false, status: resp.StatusCode, message: "response carries no image url"}
	}
	return &ImageResult{URL: imageURL}, attemptOutcome{}
}

func apiMessage(raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
		if detail.Error.Code != "" {
			return fmt.Sprintf("%s (%s)", detail.Error.Message, detail.Error.Code)
		}
		return detail.Error.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}
