package instrument

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	masked          = "***"
	truncatedSuffix = "...(truncated)"
)

// LogConfig controls the default slog logger.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	// MaskFields are attribute and JSON keys whose values are replaced, case-insensitively.
	MaskFields []string
	// MaxValueLen truncates long string values such as encoded templates. Zero disables.
	MaxValueLen int
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewLogger is the logger New installs, minus OTLP export. Command line
// tools use it to get the same redaction.
func NewLogger(w io.Writer, serviceName string, cfg LogConfig) *slog.Logger {
	return newLogger(w, serviceName, cfg, nil)
}

// newLogger builds the handler chain: context attrs, then redaction, then
// stdout plus the OTLP bridge when lp is set.
func newLogger(w io.Writer, serviceName string, cfg LogConfig, lp *sdklog.LoggerProvider) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   true,
		ReplaceAttr: renameAttr,
	}

	var out slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		out = slog.NewTextHandler(w, opts)
	} else {
		out = slog.NewJSONHandler(w, opts)
	}
	if lp != nil {
		out = fanout{out, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp))}
	}

	r := &redactor{keys: map[string]struct{}{}, maxLen: cfg.MaxValueLen}
	for _, f := range cfg.MaskFields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			r.keys[f] = struct{}{}
		}
	}

	return slog.New(&contextHandler{
		Handler: &redactHandler{next: out, r: r},
		service: serviceName,
	})
}

func renameAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		_, rel, found := strings.Cut(src.File, "/internal/")
		if !found {
			return slog.Attr{}
		}
		return slog.String("file", "internal/"+rel+":"+strconv.Itoa(src.Line))
	}
	return a
}

type contextHandler struct {
	slog.Handler
	service string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cID := GetCorrelationID(ctx); cID != "" {
		r.AddAttrs(slog.String("_cID", cID))
	}
	r.AddAttrs(slog.String("service", h.service))
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), service: h.service}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), service: h.service}
}

// fanout sends each record to every enabled handler.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

type redactHandler struct {
	next slog.Handler
	r    *redactor
}

func (h *redactHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.r.noop() {
		return h.next.Handle(ctx, r)
	}
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.r.attr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleaned[i] = h.r.attr(a)
	}
	return &redactHandler{next: h.next.WithAttrs(cleaned), r: h.r}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), r: h.r}
}

type redactor struct {
	keys   map[string]struct{}
	maxLen int
}

func (r *redactor) noop() bool { return len(r.keys) == 0 && r.maxLen <= 0 }

func (r *redactor) hides(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

func (r *redactor) attr(a slog.Attr) slog.Attr {
	if r.hides(a.Key) {
		return slog.String(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = r.attr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		return slog.String(a.Key, r.text(a.Value.String()))
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case []byte:
			return slog.String(a.Key, r.text(string(v)))
		case map[string]any, []any:
			return slog.Any(a.Key, r.walk(v))
		case map[string]string:
			m := make(map[string]any, len(v))
			for k, s := range v {
				m[k] = s
			}
			return slog.Any(a.Key, r.walk(m))
		}
	}
	return a
}

// text redacts JSON payloads by key and truncates everything else.
func (r *redactor) text(s string) string {
	if len(r.keys) > 0 && s != "" && (s[0] == '{' || s[0] == '[') {
		var doc any
		if err := json.UnmarshalFromString(s, &doc); err == nil {
			if out, err := json.MarshalToString(r.walk(doc)); err == nil {
				return r.truncate(out)
			}
		}
	}
	return r.truncate(s)
}

func (r *redactor) truncate(s string) string {
	if r.maxLen > 0 && len(s) > r.maxLen {
		return s[:r.maxLen] + truncatedSuffix
	}
	return s
}

func (r *redactor) walk(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if r.hides(k) {
				out[k] = masked
				continue
			}
			out[k] = r.walk(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = r.walk(child)
		}
		return out
	case string:
		return r.truncate(val)
	default:
		return v
	}
}
