package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/clock"
	"github.com/shandysiswandi/gorelay/internal/pkg/goroutine"
	"github.com/shandysiswandi/gorelay/internal/pkg/hash"
	"github.com/shandysiswandi/gorelay/internal/pkg/idempotency"
	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"github.com/shandysiswandi/gorelay/internal/pkg/otp"
	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gorelay/internal/pkg/router"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/shandysiswandi/gorelay/internal/pkg/validator"
	"github.com/shandysiswandi/gorelay/internal/relay/entity"
	"github.com/shandysiswandi/gorelay/internal/relay/inbound"
	"github.com/shandysiswandi/gorelay/internal/relay/outbound/gateway"
	"github.com/shandysiswandi/gorelay/internal/relay/outbound/probe"
	"github.com/shandysiswandi/gorelay/internal/relay/usecase"
)

const defaultSweepInterval = 10 * time.Minute

// Settings is the relay configuration resolved once by the app.
type Settings struct {
	Salt           string        `json:"salt" validate:"required"`
	OwnerPhone     string        `json:"owner_phone" validate:"required,phone10"`
	GatewayBypass  bool          `json:"gateway_bypass"`
	MessageSource  string        `json:"message_source" validate:"omitempty,max=64"`
	IdempotencyTTL time.Duration `json:"idempotency_ttl"`
	SweepInterval  time.Duration `json:"sweep_interval"`

	DiagnosticsEnabled bool     `json:"diagnostics_enabled"`
	DiagnosticsDNS     []string `json:"diagnostics_dns_hosts" validate:"dive,hostname_rfc1123"`
	DiagnosticsURLs    []string `json:"diagnostics_endpoints" validate:"dive,url"`
}

type Dependency struct {
	Ctx         context.Context            `validate:"required"`
	Settings    Settings                   `validate:"required"`
	Gateway     smsgateway.Gateway         `validate:"required"`
	GatewayConf smsgateway.Config
	Limiter     *ratelimit.Limiter         `validate:"required"`
	Totp        otp.OTP                    `validate:"required"`
	Idempotency idempotency.Idempotency
	KeyHash     hash.Hash
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	owner, err := entity.NormalizePhoneNumber(dep.Settings.OwnerPhone)
	if err != nil {
		return err
	}

	prober, err := probe.New(probe.Config{
		ProxyURL: dep.GatewayConf.ProxyURL,
		Login:    dep.GatewayConf.Login,
		Password: dep.GatewayConf.Password,
	}, dep.Instrument)
	if err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		Settings: usecase.Settings{
			Salt:           dep.Settings.Salt,
			OwnerPhone:     owner,
			GatewayBypass:  dep.Settings.GatewayBypass,
			MessageSource:  dep.Settings.MessageSource,
			IdempotencyTTL: dep.Settings.IdempotencyTTL,
			Diagnostics: usecase.DiagnosticsSettings{
				Enabled:    dep.Settings.DiagnosticsEnabled,
				ProxyURL:   dep.GatewayConf.ProxyURL,
				GatewayURL: dep.GatewayConf.BaseURL,
				HasAuth:    dep.GatewayConf.Login != "" && dep.GatewayConf.Password != "",
				DNSHosts:   dep.Settings.DiagnosticsDNS,
				Endpoints:  dep.Settings.DiagnosticsURLs,
			},
		},
		Totp:        dep.Totp,
		Limiter:     dep.Limiter,
		Gateway:     gateway.New(dep.Gateway, dep.Instrument),
		Prober:      prober,
		Idempotency: dep.Idempotency,
		KeyHash:     dep.KeyHash,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
	})

	interval := dep.Settings.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if !dep.Goroutine.Go(dep.Ctx, func(ctx context.Context) error {
		return dep.Limiter.Run(ctx, interval)
	}) {
		slog.Warn("rate limiter sweep not scheduled")
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
