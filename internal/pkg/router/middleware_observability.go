package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"
	"github.com/shandysiswandi/gorelay/internal/pkg/config"
	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// maxLoggedBody bounds how much of a request or response body is kept for logs.
const maxLoggedBody = 8 << 10

const masked = "***"

// masker hides sensitive values in logged JSON bodies and headers. Fields in
// full are replaced entirely; fields in tail keep their last four characters,
// which is enough to tell phone numbers apart in logs.
type masker struct {
	full map[string]struct{}
	tail map[string]struct{}
}

func newMasker(cfg config.Config) masker {
	keyset := func(key string) map[string]struct{} {
		if cfg == nil {
			return map[string]struct{}{}
		}
		return lo.SliceToMap(cfg.GetArray(key), func(f string) (string, struct{}) {
			return strings.ToLower(f), struct{}{}
		})
	}

	return masker{
		full: keyset("instrument.log_mask_fields"),
		tail: keyset("instrument.log_partial_mask_fields"),
	}
}

func (m masker) value(key string, v any) (any, bool) {
	key = strings.ToLower(key)
	if _, ok := m.full[key]; ok {
		return masked, true
	}
	if _, ok := m.tail[key]; ok {
		s, isString := v.(string)
		if !isString || len(s) <= 4 {
			return masked, true
		}
		return masked + s[len(s)-4:], true
	}
	return v, false
}

func (m masker) walk(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if mv, hit := m.value(k, inner); hit {
				out[k] = mv
				continue
			}
			out[k] = m.walk(inner)
		}
		return out
	case []any:
		return lo.Map(val, func(inner any, _ int) any { return m.walk(inner) })
	default:
		return v
	}
}

func (m masker) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		v := h.Get(k)
		if mv, hit := m.value(k, v); hit {
			v = mv.(string)
		}
		out[k] = v
	}
	return out
}

// body decodes a JSON payload for logging. Anything else is summarized.
func (m masker) body(raw []byte, truncated bool) any {
	if len(raw) == 0 {
		return nil
	}
	if truncated {
		return map[string]any{"truncated": true, "size": len(raw)}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]any{"non_json": true, "size": len(raw)}
	}
	return m.walk(decoded)
}

type responseRecorder struct {
	http.ResponseWriter
	status    int
	written   int
	body      bytes.Buffer
	truncated bool
	err       error
}

func (w *responseRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	if room := maxLoggedBody - w.body.Len(); room >= len(p) {
		w.body.Write(p)
	} else {
		w.truncated = true
	}

	n, err := w.ResponseWriter.Write(p)
	w.written += n
	return n, err
}

// SetError lets the router hand the handler error to the span.
func (w *responseRecorder) SetError(err error) {
	w.err = err
}

func (w *responseRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// peekBody reads up to maxLoggedBody bytes and restores r.Body so handlers see
// the full stream.
func peekBody(r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}

	//nolint:errcheck // logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))

	if len(head) > maxLoggedBody {
		return head[:maxLoggedBody], true
	}
	return head, false
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	mask := newMasker(cfg)
	tracer := ins.Tracer("relay.http.server")
	meter := ins.Meter("relay.http.server")

	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of HTTP requests handled"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	duration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}
	inflight, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP requests currently being served"))
	if err != nil {
		slog.Error("failed to create http active requests counter", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			start := time.Now()

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
					semconv.ClientAddress(r.RemoteAddr),
					semconv.UserAgentOriginal(r.UserAgent()),
				),
			)
			defer span.End()

			routeAttrs := metric.WithAttributes(semconv.HTTPRouteKey.String(route))
			if inflight != nil {
				inflight.Add(ctx, 1, routeAttrs)
				defer inflight.Add(ctx, -1, routeAttrs)
			}

			reqBody, reqTruncated := peekBody(r)

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			elapsed := time.Since(start)

			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}
			span.SetAttributes(attrs...)
			span.SetAttributes(attribute.Int("http.response.body.size", rec.written))

			switch {
			case status >= http.StatusInternalServerError && rec.err != nil:
				span.RecordError(rec.err)
				span.SetStatus(codes.Error, rec.err.Error())
			case status >= http.StatusInternalServerError:
				span.SetStatus(codes.Error, http.StatusText(status))
			case rec.err != nil:
				span.AddEvent("handler rejected request", trace.WithAttributes(attribute.String("reason", rec.err.Error())))
			}

			if requests != nil {
				requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if duration != nil {
				duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attrs...))
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			} else if status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}

			slog.Log(ctx, level, "http request",
				"method", r.Method,
				"route", route,
				"uri", r.RequestURI,
				"client_ip", r.RemoteAddr,
				"status", status,
				"bytes", rec.written,
				"latency_ms", elapsed.Milliseconds(),
				"headers", mask.headers(r.Header),
				"request", mask.body(reqBody, reqTruncated),
				"response", mask.body(rec.body.Bytes(), rec.truncated),
			)
		})
	}
}
