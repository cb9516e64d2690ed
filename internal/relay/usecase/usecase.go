package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/clock"
	"github.com/shandysiswandi/gorelay/internal/pkg/hash"
	"github.com/shandysiswandi/gorelay/internal/pkg/idempotency"
	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"github.com/shandysiswandi/gorelay/internal/pkg/otp"
	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/shandysiswandi/gorelay/internal/relay/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type limiter interface {
	IsSubmissionRateLimited(identity string) bool
	RecordSubmission(identity string)
	IsOTPRateLimited(identity string) bool
	RecordOTPRequest(identity string)

	SubmissionRetryAfter(identity string) time.Duration
	OTPRetryAfter(identity string) time.Duration
	SubmissionMax() int
	OTPMax() int
	SubmissionWindow() time.Duration
	OTPWindow() time.Duration
	Stats() map[string]ratelimit.Stats
}

type gateway interface {
	Send(ctx context.Context, msg smsgateway.Message) (*smsgateway.Receipt, error)
	GetState(ctx context.Context, id string) (*smsgateway.Receipt, error)
}

type prober interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	Probe(ctx context.Context, target string, viaProxy, withAuth bool) (int, error)
}

// Settings are the relay options resolved once at startup.
type Settings struct {
	Salt           string
	OwnerPhone     entity.PhoneNumber
	GatewayBypass  bool
	MessageSource  string
	IdempotencyTTL time.Duration
	Diagnostics    DiagnosticsSettings
}

// DiagnosticsSettings configures the connectivity report.
type DiagnosticsSettings struct {
	Enabled    bool
	ProxyURL   string
	GatewayURL string
	HasAuth    bool
	DNSHosts   []string
	Endpoints  []string
}

type Usecase struct {
	settings  Settings
	totp      otp.OTP
	limiter   limiter
	gateway   gateway
	prober    prober
	idemp     idempotency.Idempotency
	keyHash   hash.Hash
	clock     clock.Clocker
	ins       instrument.Instrumentation
	telemetry telemetry
}

type Dependency struct {
	Settings    Settings
	Totp        otp.OTP
	Limiter     limiter
	Gateway     gateway
	Prober      prober
	Idempotency idempotency.Idempotency
	// KeyHash keys idempotency records so phone numbers are not stored in clear.
	KeyHash     hash.Hash
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	if dep.Instrument == nil {
		dep.Instrument = instrument.NewNoop()
	}
	if dep.Clock == nil {
		dep.Clock = clock.New()
	}

	return &Usecase{
		settings:  dep.Settings,
		totp:      dep.Totp,
		limiter:   dep.Limiter,
		gateway:   dep.Gateway,
		prober:    dep.Prober,
		idemp:     dep.Idempotency,
		keyHash:   dep.KeyHash,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		telemetry: newTelemetry(dep.Instrument.Meter("relay.usecase")),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("relay.usecase").Start(ctx, name)
}

type telemetry struct {
	otpSent        metric.Int64Counter
	messageSent    metric.Int64Counter
	rejected       metric.Int64Counter
	deliveryFailed metric.Int64Counter
}

func newTelemetry(meter metric.Meter) telemetry {
	var t telemetry
	var err error

	if t.otpSent, err = meter.Int64Counter("relay.otp.sent",
		metric.WithDescription("Verification codes handed to the gateway")); err != nil {
		slog.Error("failed to create otp sent counter", "error", err)
	}
	if t.messageSent, err = meter.Int64Counter("relay.message.sent",
		metric.WithDescription("Messages relayed to the owner")); err != nil {
		slog.Error("failed to create message sent counter", "error", err)
	}
	if t.rejected, err = meter.Int64Counter("relay.ratelimit.rejected",
		metric.WithDescription("Requests refused by a rate limit")); err != nil {
		slog.Error("failed to create rate limit counter", "error", err)
	}
	if t.deliveryFailed, err = meter.Int64Counter("relay.delivery.failed",
		metric.WithDescription("Gateway sends that failed")); err != nil {
		slog.Error("failed to create delivery failed counter", "error", err)
	}

	return t
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
