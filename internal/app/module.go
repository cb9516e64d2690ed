package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/gorelay/internal/relay"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.relay.enabled") {
		return
	}

	if err := relay.New(relay.Dependency{
		Ctx: a.ctx,
		Settings: relay.Settings{
			Salt:               a.config.GetString("relay.salt"),
			OwnerPhone:         a.config.GetString("relay.owner_phone"),
			GatewayBypass:      a.config.GetBool("relay.gateway_bypass"),
			MessageSource:      a.config.GetString("relay.message.source"),
			IdempotencyTTL:     a.config.GetHour("relay.idempotency.ttl_hours"),
			SweepInterval:      a.config.GetMinute("ratelimit.sweep_interval_minutes"),
			DiagnosticsEnabled: a.config.GetBool("relay.diagnostics.enabled"),
			DiagnosticsDNS:     a.config.GetArray("relay.diagnostics.dns_hosts"),
			DiagnosticsURLs:    a.config.GetArray("relay.diagnostics.endpoints"),
		},
		Gateway:     a.gateway,
		GatewayConf: a.gatewayConf,
		Limiter:     a.limiter,
		Totp:        a.totp,
		Idempotency: a.idemp,
		KeyHash:     a.keyHash,
		Goroutine:   a.goroutine,
		Router:      a.router,
		Clock:       a.clock,
		Validator:   a.validator,
		Instrument:  a.ins,
	}); err != nil {
		slog.Error("failed to init module relay", "error", err)
		os.Exit(1)
	}
}
