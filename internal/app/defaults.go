package app

// defaults apply when neither the config file nor the environment set a key.
var defaults = map[string]any{
	"app.tz":                                      "UTC",
	"app.server.http.address":                     ":8080",
	"app.server.http.read_timeout_seconds":        10,
	"app.server.http.read_header_timeout_seconds": 5,
	"app.server.http.write_timeout_seconds":       30,
	"app.server.http.idle_timeout_seconds":        60,
	"app.server.max_goroutine":                    0,
	"app.server.shutdown_timeout_seconds":         10,

	"router.trusted_proxies":                 "127.0.0.1/32,::1/128",
	"router.maintenance_retry_after_seconds": 300,

	"instrument.enabled":                 false,
	"instrument.service_name":            "gorelay",
	"instrument.log_level":               "info",
	"instrument.trace_sample_ratio":      1.0,
	"instrument.metric_interval_seconds": 60,
	"instrument.log_mask_fields":         "code,password,authorization",
	"instrument.log_partial_mask_fields": "phone_number,owner_phone",

	"otp.period_seconds": 60,
	"otp.past_steps":     5,
	"otp.future_steps":   1,

	"ratelimit.submission.window_days": 7,
	"ratelimit.submission.max":         3,
	"ratelimit.otp.window_minutes":     60,
	"ratelimit.otp.max":                3,
	"ratelimit.sweep_interval_minutes": 10,

	"sms_gateway.timeout_seconds": 10,
	"sms_gateway.state_retries":   3,

	"redis.idempotency_prefix": "gorelay:idempotency:",

	"relay.gateway_bypass":        false,
	"relay.message.source":        "your portfolio",
	"relay.idempotency.ttl_hours": 24,
	"relay.diagnostics.enabled":   false,
	"relay.diagnostics.dns_hosts": "google.com,api.sms-gate.app",
	"relay.diagnostics.endpoints": "https://www.google.com,https://api.sms-gate.app",
	"modules.relay.enabled":       true,
}
