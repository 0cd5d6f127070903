package bot

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"imagebot/internal/domain"
	"imagebot/internal/imagegen"
	"imagebot/internal/infra"
)

// Message is a chat message forwarded by the host platform.
type Message struct {
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"` // URLs of images attached to the message
	Locale string   `json:"locale,omitempty"`
}

// Pipeline is the image pipeline surface the command handlers drive.
type Pipeline interface {
	Generate(ctx context.Context, prompt, aspectRatio, resolution string) (*imagegen.Result, error)
	Edit(ctx context.Context, sourceArg string, attached []string, prompt, aspectRatio, resolution string) (*imagegen.Result, error)
}

// HelpInfo is the static configuration summary shown by the help command.
type HelpInfo struct {
	SaveDirectory   string
	ProxyConfigured bool
	RequestTimeout  time.Duration
}

// Options configures a command Handler.
type Options struct {
	Service       Pipeline
	Logger        *infra.Logger
	Help          HelpInfo
	DefaultLocale string
}

// Handler turns chat commands into pipeline calls and reply strings. It
// holds no per-invocation state; concurrent messages are independent.
type Handler struct {
	svc           Pipeline
	logger        *infra.Logger
	help          HelpInfo
	defaultLocale string
}

// NewHandler wires a command handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	locale := normalizeLocale(opts.DefaultLocale)
	return &Handler{
		svc:           opts.Service,
		logger:        logger,
		help:          opts.Help,
		defaultLocale: locale,
	}
}

// HandleMessage dispatches a chat message to the matching command. The
// second return value reports whether the message was a known command.
func (h *Handler) HandleMessage(ctx context.Context, msg Message) (string, bool) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	locale := normalizeLocale(msg.Locale)
	if msg.Locale == "" {
		locale = h.defaultLocale
	}

	command, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	switch strings.ToLower(command) {
	case "generate", "grok_gen":
		return h.Generate(ctx, args, locale), true
	case "edit", "grok_edit":
		return h.Edit(ctx, args, msg.Images, locale), true
	case "help", "grok_help":
		return h.Help(locale), true
	default:
		return "", false
	}
}

// Generate handles `generate <prompt> [aspect_ratio] [resolution]`. Trailing
// tokens matching the enums are peeled off so prompts may contain spaces.
func (h *Handler) Generate(ctx context.Context, args, locale string) string {
	prompt, aspectRatio, resolution := splitGenerateArgs(args)
	if prompt == "" {
		return tr(locale, msgUsageGenerate)
	}

	result, err := h.svc.Generate(ctx, prompt, aspectRatio, resolution)
	if err != nil {
		h.logger.Error().Err(err).Str("kind", domain.Kind(err)).Msg("bot: generate failed")
		return formatFailure(locale, err)
	}
	h.logger.Info().Str("path", result.SavedPath).Msg("bot: image generated")
	return formatSuccess(locale, msgGenerated, result)
}

// Edit handles `edit <source> <prompt>`, where source may be omitted when
// the message carries an attached image.
func (h *Handler) Edit(ctx context.Context, args string, attached []string, locale string) string {
	sourceArg, prompt := splitEditArgs(args, len(attached) > 0)
	if prompt == "" {
		return tr(locale, msgUsageEdit)
	}

	result, err := h.svc.Edit(ctx, sourceArg, attached, prompt, "", "")
	if err != nil {
		h.logger.Error().Err(err).Str("kind", domain.Kind(err)).Msg("bot: edit failed")
		return formatFailure(locale, err)
	}
	h.logger.Info().Str("path", result.SavedPath).Msg("bot: image edited")
	return formatSuccess(locale, msgEdited, result)
}

// Help returns the static help text.
func (h *Handler) Help(locale string) string {
	return helpText(normalizeLocale(locale), h.help)
}

// splitGenerateArgs peels an optional resolution and aspect ratio off the
// end of the argument list; everything remaining is the prompt. A prompt
// genuinely ending in an enum token needs quoting by other means, which the
// chat surface does not offer; that matches the upstream command grammar.
func splitGenerateArgs(args string) (prompt, aspectRatio, resolution string) {
	tokens := strings.Fields(args)
	if len(tokens) > 1 && imagegen.IsValidResolution(tokens[len(tokens)-1]) {
		resolution = strings.ToLower(tokens[len(tokens)-1])
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) > 1 && imagegen.IsValidAspectRatio(tokens[len(tokens)-1]) {
		aspectRatio = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " "), aspectRatio, resolution
}

// splitEditArgs separates the source argument from the edit prompt. With an
// attached image the source may be omitted entirely.
func splitEditArgs(args string, hasAttachment bool) (sourceArg, prompt string) {
	tokens := strings.Fields(args)
	switch {
	case len(tokens) == 0:
		return "", ""
	case hasAttachment && !(len(tokens) >= 2 && looksLikeSource(tokens[0])):
		return "", strings.Join(tokens, " ")
	case len(tokens) < 2:
		return "", ""
	default:
		return tokens[0], strings.Join(tokens[1:], " ")
	}
}

// looksLikeSource reports whether the token is URL-shaped or path-shaped.
func looksLikeSource(token string) bool {
	if imagegen.IsRemoteURL(token) {
		return true
	}
	switch {
	case strings.HasPrefix(token, "/"), strings.HasPrefix(token, "\\"),
		strings.HasPrefix(token, "./"), strings.HasPrefix(token, "../"),
		strings.HasPrefix(token, "~"):
		return true
	case len(token) > 1 && token[1] == ':':
		return true // windows drive path
	}
	return false
}
