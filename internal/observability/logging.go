package observability

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Logger wraps log/slog with the two things every log line in this core
// needs: correlation fields (session, prompt, user) pulled from the
// context, and redaction of the credentials that flow through an agent
// session — LLM API keys, the Jira token, store DSNs — before they can
// reach a log record.
type Logger struct {
	slog  *slog.Logger
	rules []redactRule
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is the minimum level emitted: "debug", "info", "warn",
	// "error". Empty or unrecognized values mean "info".
	Level string
	// Format selects the handler: "json" (default) or "text".
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
	// AddSource includes file/line in every record.
	AddSource bool
	// RedactPatterns are extra regexes applied on top of the built-in
	// rules. Matches are replaced wholesale with "[REDACTED]".
	RedactPatterns []string
}

type contextKey string

const (
	// SessionIDKey carries the agent session id through a Run.
	SessionIDKey contextKey = "session_id"
	// PromptIDKey carries the prompt the session is generating for.
	PromptIDKey contextKey = "prompt_id"
	// UserIDKey carries the requesting user's id.
	UserIDKey contextKey = "user_id"
)

const redactedMark = "[REDACTED]"

// redactRule pairs a pattern with its replacement, so rules that need to
// keep surrounding text (the DSN rule keeps scheme and user) can use a
// capture group instead of erasing the whole match.
type redactRule struct {
	re   *regexp.Regexp
	repl string
}

// builtinRules covers the secrets this process actually holds: the two LLM
// providers' API keys, the Jira API token and Authorization headers built
// from it, inline passwords in Postgres/SQLite DSNs, JWTs, and generic
// key=value secret spellings as a backstop.
var builtinRules = []redactRule{
	{regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{24,}`), redactedMark},
	{regexp.MustCompile(`sk-[A-Za-z0-9]{32,}`), redactedMark},
	{regexp.MustCompile(`(?i)\b(authorization|bearer|basic)[=:\s]+[A-Za-z0-9+/=_.-]{8,}`), redactedMark},
	{regexp.MustCompile(`([a-z][a-z0-9+]*://[^/\s:@]+:)[^@\s]+@`), "${1}" + redactedMark + "@"},
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), redactedMark},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|api[_-]?token|secret|password|passwd)[=:\s]+["']?[^\s"',}]{6,}`), "${1}=" + redactedMark},
}

// sensitiveArgKeys are log-argument names whose values are replaced
// unconditionally, regardless of what the value looks like.
var sensitiveArgKeys = map[string]bool{
	"api_key":       true,
	"api_token":     true,
	"authorization": true,
	"dsn":           true,
	"password":      true,
	"secret":        true,
	"token":         true,
}

// NewLogger builds a Logger. Invalid entries in config.RedactPatterns are
// skipped rather than failing construction; the built-in rules always
// apply.
func NewLogger(config LogConfig) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(config.Level),
		AddSource: config.AddSource,
	}
	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	rules := make([]redactRule, 0, len(builtinRules)+len(config.RedactPatterns))
	rules = append(rules, builtinRules...)
	for _, pattern := range config.RedactPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			rules = append(rules, redactRule{re: re, repl: redactedMark})
		}
	}

	return &Logger{slog: slog.New(handler), rules: rules}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args...)
}

// WithFields returns a Logger carrying the given key-value pairs on every
// record, e.g. a per-component logger.
func (l *Logger) WithFields(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), rules: l.rules}
}

// Slog returns the underlying *slog.Logger, for components built against
// plain slog (the cache janitor) rather than this redacting wrapper. Lines
// logged through it bypass redaction, so nothing secret may be passed to
// such a component.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	attrs := contextAttrs(ctx)
	attrs = append(attrs, l.redactArgs(args)...)
	l.slog.Log(ctx, level, l.redact(msg), attrs...)
}

// redactArgs walks the alternating key-value list: values under a
// sensitive key are dropped outright, everything else is scrubbed through
// the pattern rules.
func (l *Logger) redactArgs(args []any) []any {
	out := make([]any, len(args))
	for i := 0; i < len(args); i++ {
		key, isKey := args[i].(string)
		if isKey && i%2 == 0 && sensitiveArgKeys[strings.ToLower(strings.ReplaceAll(key, "-", "_"))] {
			out[i] = args[i]
			if i+1 < len(args) {
				out[i+1] = redactedMark
				i++
			}
			continue
		}
		out[i] = l.redactValue(args[i])
	}
	return out
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redact(val)
	case error:
		return l.redact(val.Error())
	case []byte:
		return l.redact(string(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if sensitiveArgKeys[strings.ToLower(strings.ReplaceAll(k, "-", "_"))] {
				out[k] = redactedMark
			} else {
				out[k] = l.redactValue(inner)
			}
		}
		return out
	default:
		// Leave other types alone unless their JSON form trips a rule.
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		if s := l.redact(string(b)); s != string(b) {
			return s
		}
		return v
	}
}

func (l *Logger) redact(s string) string {
	for _, rule := range l.rules {
		s = rule.re.ReplaceAllString(s, rule.repl)
	}
	return s
}

func contextAttrs(ctx context.Context) []any {
	attrs := make([]any, 0, 6)
	for _, key := range [...]contextKey{SessionIDKey, PromptIDKey, UserIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, string(key), v)
		}
	}
	return attrs
}

// WithSessionID stamps the agent session id onto ctx so every log line in
// that Run carries it.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// WithPromptID stamps the prompt id onto ctx.
func WithPromptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, PromptIDKey, id)
}

// WithUserID stamps the requesting user's id onto ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}
