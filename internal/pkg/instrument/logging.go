package instrument

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

const (
	maskedValue  = "***"
	keptTailSize = 4
)

// logOptions carries everything the default handler needs.
type logOptions struct {
	level       slog.Level
	serviceName string
	provider    *sdklog.LoggerProvider
	maskFields  []string
	tailFields  []string
}

func initLogging(w io.Writer, opts logOptions) {
	slog.SetDefault(slog.New(newLogHandler(w, opts)))
}

func newLogHandler(w io.Writer, opts logOptions) slog.Handler {
	var sink slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       opts.level,
		AddSource:   true,
		ReplaceAttr: renameBuiltin,
	})

	if opts.provider != nil {
		sink = fanout{sink, otelslog.NewHandler(opts.serviceName, otelslog.WithLoggerProvider(opts.provider))}
	}

	return &relayHandler{
		next:    sink,
		service: opts.serviceName,
		redact:  newRedactor(opts.maskFields, opts.tailFields),
	}
}

// renameBuiltin shortens builtin keys and keeps source paths relative to the
// module's internal tree. Sources outside internal/ are dropped.
func renameBuiltin(_ []string, a slog.Attr) slog.Attr {
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
		return slog.String("file", fmt.Sprintf("internal/%s:%d", rel, src.Line))
	}
	return a
}

// relayHandler adds request scoped attributes and redacts sensitive values
// before handing records to the sink.
type relayHandler struct {
	next    slog.Handler
	service string
	redact  redactor
}

func (h *relayHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *relayHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact.attr(a))
		return true
	})

	if cid := GetCorrelationID(ctx); cid != "" {
		out.AddAttrs(slog.String("_cID", cid))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out.AddAttrs(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
	}
	out.AddAttrs(slog.String("service", h.service))

	return h.next.Handle(ctx, out)
}

func (h *relayHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &relayHandler{
		next:    h.next.WithAttrs(lo.Map(attrs, func(a slog.Attr, _ int) slog.Attr { return h.redact.attr(a) })),
		service: h.service,
		redact:  h.redact,
	}
}

func (h *relayHandler) WithGroup(name string) slog.Handler {
	return &relayHandler{next: h.next.WithGroup(name), service: h.service, redact: h.redact}
}

// fanout writes every record to each enabled handler.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return lo.ContainsBy(f, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanout(lo.Map(f, func(h slog.Handler, _ int) slog.Handler { return h.WithAttrs(attrs) }))
}

func (f fanout) WithGroup(name string) slog.Handler {
	return fanout(lo.Map(f, func(h slog.Handler, _ int) slog.Handler { return h.WithGroup(name) }))
}

// redactor hides values by key. Keys in full are replaced entirely; keys in
// tail keep their last four characters so phone numbers stay traceable.
type redactor struct {
	full map[string]struct{}
	tail map[string]struct{}
}

func newRedactor(full, tail []string) redactor {
	keys := func(fields []string) map[string]struct{} {
		return lo.SliceToMap(
			lo.Compact(lo.Map(fields, func(f string, _ int) string { return strings.ToLower(strings.TrimSpace(f)) })),
			func(f string) (string, struct{}) { return f, struct{}{} },
		)
	}
	return redactor{full: keys(full), tail: keys(tail)}
}

func (r redactor) empty() bool {
	return len(r.full) == 0 && len(r.tail) == 0
}

// scalar returns the replacement for a value stored under key, if any.
func (r redactor) scalar(key string, v any) (any, bool) {
	key = strings.ToLower(key)
	if _, ok := r.full[key]; ok {
		return maskedValue, true
	}
	if _, ok := r.tail[key]; ok {
		s := fmt.Sprint(v)
		if len(s) <= keptTailSize {
			return maskedValue, true
		}
		return maskedValue + s[len(s)-keptTailSize:], true
	}
	return nil, false
}

func (r redactor) attr(a slog.Attr) slog.Attr {
	if r.empty() {
		return a
	}

	if a.Value.Kind() != slog.KindGroup {
		if v, ok := r.scalar(a.Key, a.Value.Resolve().Any()); ok {
			return slog.Any(a.Key, v)
		}
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		a.Value = slog.GroupValue(lo.Map(a.Value.Group(), func(g slog.Attr, _ int) slog.Attr { return r.attr(g) })...)
	case slog.KindString:
		if s, ok := r.json([]byte(a.Value.String())); ok {
			a.Value = slog.StringValue(s)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, []any:
			a.Value = slog.AnyValue(r.walk(v))
		case map[string]string:
			a.Value = slog.AnyValue(r.walk(lo.MapValues(v, func(s string, _ string) any { return s })))
		case []byte:
			if s, ok := r.json(v); ok {
				a.Value = slog.StringValue(s)
			}
		}
	}
	return a
}

// json redacts a JSON object or array payload. Anything else is left alone.
func (r redactor) json(raw []byte) (string, bool) {
	if len(raw) == 0 || (raw[0] != '{' && raw[0] != '[') {
		return "", false
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", false
	}
	out, err := json.Marshal(r.walk(doc))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (r redactor) walk(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if masked, ok := r.scalar(k, child); ok {
				out[k] = masked
				continue
			}
			out[k] = r.walk(child)
		}
		return out
	case []any:
		return lo.Map(val, func(child any, _ int) any { return r.walk(child) })
	default:
		return v
	}
}
