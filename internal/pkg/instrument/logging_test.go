package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	buf.Reset()
	return out
}

func TestLogHandler_MaskAndContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newLogHandler(&buf, logOptions{
		level:       slog.LevelInfo,
		serviceName: "gorelay",
		maskFields:  []string{"Code", " salt ", ""},
	}))

	ctx := SetCorrelationID(context.Background(), "cid-1")
	log.InfoContext(ctx, "otp sent",
		"code", "123456",
		"phone_suffix", "1234",
		"body", map[string]any{"salt": "s3cr3t", "name": "Jo"},
		"raw", `{"code":"654321"}`,
	)

	line := decodeLine(t, &buf)
	assert.Equal(t, "otp sent", line["msg"])
	assert.Equal(t, "INFO", line["severity"])
	assert.Contains(t, line, "ts")
	assert.Equal(t, "cid-1", line["_cID"])
	assert.Equal(t, "gorelay", line["service"])
	assert.Equal(t, "***", line["code"])
	assert.Equal(t, "1234", line["phone_suffix"])
	assert.Equal(t, map[string]any{"salt": "***", "name": "Jo"}, line["body"])
	assert.JSONEq(t, `{"code":"***"}`, line["raw"].(string))
}

func TestLogHandler_WithAttrsKeepsContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newLogHandler(&buf, logOptions{level: slog.LevelInfo, serviceName: "gorelay"})).With("module", "relay")

	log.DebugContext(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	log.WarnContext(SetCorrelationID(context.Background(), "cid-2"), "visible")

	line := decodeLine(t, &buf)
	assert.Equal(t, "relay", line["module"])
	assert.Equal(t, "cid-2", line["_cID"])
	assert.Equal(t, "gorelay", line["service"])
}

func TestLogHandler_TailMask(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newLogHandler(&buf, logOptions{
		level:       slog.LevelInfo,
		serviceName: "gorelay",
		tailFields:  []string{"phone_number"},
	})).With("phone_number", "2065551234")

	log.Info("otp requested", "body", map[string]any{"phone_number": "2065559876"}, "short", map[string]any{"phone_number": "12"})

	line := decodeLine(t, &buf)
	assert.Equal(t, "***1234", line["phone_number"])
	assert.Equal(t, map[string]any{"phone_number": "***9876"}, line["body"])
	assert.Equal(t, map[string]any{"phone_number": "***"}, line["short"])
}

func TestLogHandler_TraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newLogHandler(&buf, logOptions{level: slog.LevelInfo, serviceName: "gorelay"}))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	log.InfoContext(trace.ContextWithSpanContext(context.Background(), sc), "traced")

	line := decodeLine(t, &buf)
	assert.Equal(t, sc.TraceID().String(), line["trace_id"])
	assert.Equal(t, sc.SpanID().String(), line["span_id"])

	log.Info("untraced")
	assert.NotContains(t, decodeLine(t, &buf), "trace_id")
}

func TestRenameBuiltin_Source(t *testing.T) {
	in := slog.Any(slog.SourceKey, &slog.Source{File: "/src/gorelay/internal/relay/module.go", Line: 42})
	got := renameBuiltin(nil, in)
	assert.Equal(t, "file", got.Key)
	assert.Equal(t, "internal/relay/module.go:42", got.Value.String())

	outside := slog.Any(slog.SourceKey, &slog.Source{File: "/go/pkg/mod/x.go", Line: 1})
	assert.True(t, renameBuiltin(nil, outside).Equal(slog.Attr{}))
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Equal(t, "abc", GetCorrelationID(SetCorrelationID(context.Background(), "abc")))
}

func TestNew_Disabled(t *testing.T) {
	ins, err := New(context.Background(), &Config{ServiceName: "gorelay"})
	require.NoError(t, err)

	assert.NotNil(t, ins.Tracer("x"))
	assert.NotNil(t, ins.Meter("x"))
	assert.NoError(t, ins.Shutdown(context.Background()))
}
