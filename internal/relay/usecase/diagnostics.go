package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gorelay/internal/pkg/goerror"
	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

const (
	DiagnosticsAll          = "all"
	DiagnosticsDNS          = "dns"
	DiagnosticsConnectivity = "connectivity"
	DiagnosticsSMS          = "sms"

	probeConcurrency = 4
)

type DiagnosticsInput struct {
	Test string
}

type DNSResult struct {
	Host      string
	Addresses []string
	Success   bool
	Error     string
}

type ProbeResult struct {
	Name      string
	URL       string
	ViaProxy  bool
	WithAuth  bool
	Status    int
	LatencyMS int64
	Success   bool
	Error     string
}

type DiagnosticsOutput struct {
	Timestamp     time.Time
	ProxyURL      string
	GatewayURL    string
	GatewayBypass bool
	DNS           []DNSResult
	Connectivity  []ProbeResult
	Gateway       []ProbeResult
	GatewayError  string
	Limits        map[string]ratelimit.Stats
}

type probeTarget struct {
	name     string
	url      string
	viaProxy bool
	withAuth bool
}

// Diagnostics reports whether the relay can reach the outside world and the gateway.
// Individual check failures are part of the report, not errors.
func (s *Usecase) Diagnostics(ctx context.Context, in DiagnosticsInput) (*DiagnosticsOutput, error) {
	ctx, span := s.startSpan(ctx, "Diagnostics")
	defer span.End()

	cfg := s.settings.Diagnostics
	if !cfg.Enabled {
		return nil, goerror.NewBusiness("Diagnostics are disabled.", goerror.CodeForbidden)
	}

	test := strings.ToLower(strings.TrimSpace(in.Test))
	if test == "" {
		test = DiagnosticsAll
	}
	if !lo.Contains([]string{DiagnosticsAll, DiagnosticsDNS, DiagnosticsConnectivity, DiagnosticsSMS}, test) {
		return nil, goerror.NewInvalidFormat("Unknown diagnostics test " + test + ".")
	}
	want := func(name string) bool { return test == DiagnosticsAll || test == name }

	out := &DiagnosticsOutput{
		Timestamp:     s.clock.Now(),
		ProxyURL:      cfg.ProxyURL,
		GatewayURL:    cfg.GatewayURL,
		GatewayBypass: s.settings.GatewayBypass,
		Limits:        s.limiter.Stats(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)

	if want(DiagnosticsDNS) {
		out.DNS = make([]DNSResult, len(cfg.DNSHosts))
		for i, host := range cfg.DNSHosts {
			g.Go(func() error {
				out.DNS[i] = s.lookup(gctx, host)
				return nil
			})
		}
	}

	if want(DiagnosticsConnectivity) {
		targets := lo.FlatMap(cfg.Endpoints, func(u string, _ int) []probeTarget {
			return []probeTarget{
				{name: endpointKey(u) + "_direct", url: u},
				{name: endpointKey(u) + "_proxy", url: u, viaProxy: true},
			}
		})
		out.Connectivity = s.runProbes(gctx, g, targets)
	}

	if want(DiagnosticsSMS) {
		if cfg.GatewayURL == "" {
			out.GatewayError = "SMS Gateway URL not configured"
		} else {
			base := strings.TrimRight(cfg.GatewayURL, "/")
			targets := []probeTarget{
				{name: "proxy", url: base, viaProxy: true},
				{name: "health_proxy", url: base + "/health", viaProxy: true},
			}
			if cfg.HasAuth {
				targets = append(targets,
					probeTarget{name: "auth_direct", url: base, withAuth: true},
					probeTarget{name: "auth_proxy", url: base, viaProxy: true, withAuth: true},
				)
			}
			out.Gateway = s.runProbes(gctx, g, targets)
		}
	}

	// checks never fail the group
	_ = g.Wait()

	return out, nil
}

// runProbes schedules targets on g. Each goroutine owns one slot of the result,
// which is complete once g.Wait returns.
func (s *Usecase) runProbes(ctx context.Context, g *errgroup.Group, targets []probeTarget) []ProbeResult {
	results := make([]ProbeResult, len(targets))
	for i, target := range targets {
		g.Go(func() error {
			results[i] = s.probe(ctx, target)
			return nil
		})
	}
	return results
}

func (s *Usecase) lookup(ctx context.Context, host string) DNSResult {
	addrs, err := s.prober.LookupHost(ctx, host)
	if err != nil {
		return DNSResult{Host: host, Error: err.Error()}
	}
	return DNSResult{Host: host, Addresses: addrs, Success: true}
}

func (s *Usecase) probe(ctx context.Context, target probeTarget) ProbeResult {
	start := s.clock.Now()
	status, err := s.prober.Probe(ctx, target.url, target.viaProxy, target.withAuth)

	res := ProbeResult{
		Name:      target.name,
		URL:       target.url,
		ViaProxy:  target.viaProxy,
		WithAuth:  target.withAuth,
		Status:    status,
		LatencyMS: s.clock.Now().Sub(start).Milliseconds(),
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = status < 500
	return res
}

// endpointKey turns a url into an identifier made of letters, digits and underscores.
func endpointKey(u string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, u)
}
