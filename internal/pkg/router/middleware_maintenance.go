package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gorelay/internal/pkg/config"
)

const defaultMaintenanceRetryAfter = 300

// middlewareMaintenance answers 503 for routes listed in
// router.maintenance_endpoints. The list is read per request so a config
// reload takes effect without a restart. An entry ending in "*" matches by
// prefix.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			blocked := lo.ContainsBy(cfg.GetArray("router.maintenance_endpoints"), func(e string) bool {
				if prefix, ok := strings.CutSuffix(e, "*"); ok {
					return strings.HasPrefix(route, prefix)
				}
				return e == route
			})
			if !blocked {
				next.ServeHTTP(w, r)
				return
			}

			retry := cfg.GetInt("router.maintenance_retry_after_seconds")
			if retry <= 0 {
				retry = defaultMaintenanceRetryAfter
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
		})
	}
}
