// Package probe checks name resolution and HTTP reachability for the
// diagnostics report.
package probe

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultTimeout = 5 * time.Second

type Config struct {
	ProxyURL string
	Login    string
	Password string
	Timeout  time.Duration
}

type Prober struct {
	resolver *net.Resolver
	direct   *http.Client
	proxied  *http.Client
	login    string
	password string
	ins      instrument.Instrumentation
}

func New(cfg Config, ins instrument.Instrumentation) (*Prober, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	direct, err := smsgateway.NewHTTPClient("", cfg.Timeout)
	if err != nil {
		return nil, err
	}

	proxied := direct
	if cfg.ProxyURL != "" {
		if proxied, err = smsgateway.NewHTTPClient(cfg.ProxyURL, cfg.Timeout); err != nil {
			return nil, err
		}
	}

	return &Prober{
		resolver: net.DefaultResolver,
		direct:   direct,
		proxied:  proxied,
		login:    cfg.Login,
		password: cfg.Password,
		ins:      ins,
	}, nil
}

func (p *Prober) LookupHost(ctx context.Context, host string) ([]string, error) {
	ctx, span := p.ins.Tracer("relay.outbound.probe").Start(ctx, "LookupHost")
	defer span.End()

	span.SetAttributes(attribute.String("net.host", host))

	addrs, err := p.resolver.LookupHost(ctx, host)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return addrs, nil
}

// Probe issues a GET to target and returns the response status. Without a
// configured proxy, viaProxy falls back to a direct request.
func (p *Prober) Probe(ctx context.Context, target string, viaProxy, withAuth bool) (int, error) {
	ctx, span := p.ins.Tracer("relay.outbound.probe").Start(ctx, "Probe")
	defer span.End()

	span.SetAttributes(
		attribute.String("http.url", target),
		attribute.Bool("probe.via_proxy", viaProxy),
		attribute.Bool("probe.with_auth", withAuth),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	if withAuth {
		req.SetBasicAuth(p.login, p.password)
	}

	hc := p.direct
	if viaProxy {
		hc = p.proxied
	}

	resp, err := hc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return resp.StatusCode, nil
}
