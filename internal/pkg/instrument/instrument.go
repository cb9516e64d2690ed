package instrument

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const defaultMetricsInterval = time.Minute

// Instrumentation hands out tracers and meters to the rest of the service.
type Instrumentation interface {
	Tracer(name string) trace.Tracer
	Meter(name string) metric.Meter
	Shutdown(ctx context.Context) error
}

// Config drives logging and OpenTelemetry initialization.
type Config struct {
	Enabled          bool
	ServiceName      string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	OTLPSecure       bool
	TraceSampleRatio float64
	MetricsInterval  time.Duration

	// MaskFields are log keys whose values are replaced entirely.
	MaskFields []string
	// PartialMaskFields are log keys that keep only their last four characters.
	PartialMaskFields []string

	LogLevel slog.Level
}

func (c *Config) logOptions(lp *sdklog.LoggerProvider) logOptions {
	return logOptions{
		level:       c.LogLevel,
		serviceName: c.ServiceName,
		provider:    lp,
		maskFields:  c.MaskFields,
		tailFields:  c.PartialMaskFields,
	}
}

// New installs the default slog logger. When telemetry is enabled it also
// builds OTLP trace, metric and log pipelines; otherwise a noop is returned and
// logs only go to stdout.
func New(ctx context.Context, cfg *Config) (Instrumentation, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if !cfg.Enabled {
		initLogging(os.Stdout, cfg.logOptions(nil))
		return NewNoop(), nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("env", cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	o := &otelInstrumentation{}
	if err := o.build(ctx, cfg, res); err != nil {
		return nil, errors.Join(err, o.Shutdown(ctx))
	}

	initLogging(os.Stdout, cfg.logOptions(o.logs))

	return o, nil
}

type otelInstrumentation struct {
	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider
}

// build creates the three providers. Providers created before a failure are
// left set so the caller can shut them down.
func (o *otelInstrumentation) build(ctx context.Context, cfg *Config, res *resource.Resource) error {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if !cfg.OTLPSecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return err
	}
	o.traces = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(min(max(cfg.TraceSampleRatio, 0), 1)))),
		sdktrace.WithBatcher(traceExp),
	)

	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return err
	}
	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}
	o.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(interval))),
	)

	logExp, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		return err
	}
	o.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
	)

	return nil
}

func (o *otelInstrumentation) Tracer(name string) trace.Tracer {
	return o.traces.Tracer(name)
}

func (o *otelInstrumentation) Meter(name string) metric.Meter {
	return o.metrics.Meter(name)
}

// Shutdown flushes pending spans, metrics and log records.
func (o *otelInstrumentation) Shutdown(ctx context.Context) error {
	var errs []error
	if o.traces != nil {
		errs = append(errs, o.traces.Shutdown(ctx))
	}
	if o.metrics != nil {
		errs = append(errs, o.metrics.Shutdown(ctx))
	}
	if o.logs != nil {
		errs = append(errs, o.logs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// NewNoop returns instrumentation that records nothing. Tests and disabled
// deployments use it.
func NewNoop() Instrumentation {
	return noopInstrumentation{}
}

type noopInstrumentation struct{}

func (noopInstrumentation) Tracer(name string) trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer(name)
}

func (noopInstrumentation) Meter(name string) metric.Meter {
	return metricnoop.NewMeterProvider().Meter(name)
}

func (noopInstrumentation) Shutdown(context.Context) error { return nil }
