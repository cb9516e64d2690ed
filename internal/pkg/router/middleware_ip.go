package router

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gorelay/internal/pkg/config"
)

// middlewareIP replaces r.RemoteAddr with the caller address. Forwarding
// headers are honoured only when the direct peer is a trusted proxy, so
// clients cannot pick their own address.
func middlewareIP(cfg config.Config) Middleware {
	var trusted []netip.Prefix
	if cfg != nil {
		trusted = lo.FilterMap(cfg.GetArray("router.trusted_proxies"), func(s string, _ int) (netip.Prefix, bool) {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				if a, aerr := netip.ParseAddr(s); aerr == nil {
					return netip.PrefixFrom(a, a.BitLen()), true
				}
				return netip.Prefix{}, false
			}
			return p.Masked(), true
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := clientIP(r, trusted); ip.IsValid() {
				r.RemoteAddr = ip.String()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trusted []netip.Prefix) netip.Addr {
	peer := parseAddr(r.RemoteAddr)
	if !peer.IsValid() || !isTrusted(peer, trusted) {
		return peer
	}

	// rightmost untrusted hop is the first address a trusted proxy saw
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := parseAddr(hops[i])
		if !hop.IsValid() {
			break
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
	}

	if xrip := parseAddr(r.Header.Get("X-Real-IP")); xrip.IsValid() {
		return xrip
	}

	return peer
}

func isTrusted(a netip.Addr, trusted []netip.Prefix) bool {
	return lo.ContainsBy(trusted, func(p netip.Prefix) bool { return p.Contains(a) })
}

// parseAddr accepts a bare address or host:port.
func parseAddr(s string) netip.Addr {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}
	}
	return a.Unmap()
}
