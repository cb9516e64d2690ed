package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	libOTP "github.com/pquerna/otp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/shandysiswandi/gorelay/internal/pkg/clock"
	"github.com/shandysiswandi/gorelay/internal/pkg/config"
	"github.com/shandysiswandi/gorelay/internal/pkg/goroutine"
	"github.com/shandysiswandi/gorelay/internal/pkg/hash"
	"github.com/shandysiswandi/gorelay/internal/pkg/idempotency"
	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"github.com/shandysiswandi/gorelay/internal/pkg/otp"
	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gorelay/internal/pkg/router"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/shandysiswandi/gorelay/internal/pkg/uid"
	"github.com/shandysiswandi/gorelay/internal/pkg/validator"
)

const envPrefix = "GORELAY"

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path, config.WithEnvPrefix(envPrefix), config.WithDefaults(defaults))
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.config.GetString("instrument.log_level"))); err != nil {
		level = slog.LevelInfo
	}

	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:           a.config.GetBool("instrument.enabled"),
		ServiceName:       a.config.GetString("instrument.service_name"),
		ServiceVersion:    a.config.GetString("instrument.service_version"),
		Environment:       a.config.GetString("instrument.env"),
		OTLPEndpoint:      a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:        a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio:  a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:   a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:        a.config.GetArray("instrument.log_mask_fields"),
		PartialMaskFields: a.config.GetArray("instrument.log_partial_mask_fields"),
		LogLevel:          level,
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	a.totp = otp.NewTOTP(otp.Config{
		Clock:       a.clock,
		Period:      uint(a.config.GetUint64("otp.period_seconds")),
		PastSteps:   uint(a.config.GetUint64("otp.past_steps")),
		FutureSteps: uint(a.config.GetUint64("otp.future_steps")),
		Digits:      libOTP.DigitsSix,
	})

	a.limiter = ratelimit.New(ratelimit.Config{
		SubmissionWindow: a.config.GetDay("ratelimit.submission.window_days"),
		SubmissionMax:    a.config.GetInt("ratelimit.submission.max"),
		OTPWindow:        a.config.GetMinute("ratelimit.otp.window_minutes"),
		OTPMax:           a.config.GetInt("ratelimit.otp.max"),
	}, a.clock)

	if secret := a.config.GetString("relay.idempotency.secret"); secret != "" {
		a.keyHash = hash.NewHMACSHA256(secret)
	}
}

// initCache connects redis when configured. Without it idempotency keys are ignored.
func (a *App) initCache() {
	url := strings.TrimSpace(a.config.GetString("redis.url"))
	if url == "" {
		slog.Info("redis not configured, idempotency keys disabled")
		return
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.New(a.cacheConn, a.config.GetString("redis.idempotency_prefix"))
}

func (a *App) initGateway() {
	a.gatewayConf = smsgateway.Config{
		BaseURL:      strings.TrimSpace(a.config.GetString("sms_gateway.url")),
		Login:        a.config.GetString("sms_gateway.login"),
		Password:     a.config.GetString("sms_gateway.password"),
		ProxyURL:     strings.TrimSpace(a.config.GetString("sms_gateway.proxy_url")),
		Timeout:      a.config.GetSecond("sms_gateway.timeout_seconds"),
		StateRetries: a.config.GetUint64("sms_gateway.state_retries"),
	}

	client, err := smsgateway.NewClient(a.gatewayConf)
	switch {
	case err == nil:
		a.gateway = client
	case errors.Is(err, smsgateway.ErrNotConfigured) && a.config.GetBool("relay.gateway_bypass"):
		slog.Warn("sms gateway not configured, running in bypass mode")
		a.gateway = smsgateway.NewBypass()
	default:
		slog.Error("failed to init sms gateway", "error", err)
		os.Exit(1)
	}
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:      a.config,
		UUID:        a.uuid,
		Instrument:  a.ins,
		ServiceName: a.config.GetString("instrument.service_name"),
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Idempotency-Key", router.HeaderCorrelationID},
		ExposedHeaders:   []string{"Retry-After", router.HeaderCorrelationID},
		AllowCredentials: false,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				if a.cacheConn == nil {
					return nil
				}
				return a.cacheConn.Close()
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
