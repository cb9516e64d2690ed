package router

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"github.com/shandysiswandi/gorelay/internal/pkg/uid"
)

const (
	// HeaderCorrelationID carries the request correlation id in both directions.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted on input when a proxy already assigned one.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// sanitizeCID drops ids that could forge log lines and caps their length.
func sanitizeCID(v string) string {
	v = strings.TrimSpace(v)
	if strings.IndexFunc(v, unicode.IsControl) >= 0 {
		return ""
	}
	if len(v) > maxCorrelationIDLen {
		v = v[:maxCorrelationIDLen]
	}
	return v
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := sanitizeCID(r.Header.Get(HeaderCorrelationID))
			if cid == "" {
				cid = sanitizeCID(r.Header.Get(HeaderRequestID))
			}
			if cid == "" && gen != nil {
				cid = gen.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
