package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
)

var errMaintenance = goerror.NewBusiness("Service is under maintenance", goerror.CodeUnavailable)

// maintenance answers 503 for the listed routes. The health route stays
// reachable so orchestrators do not restart the process.
func maintenance(blocked routeSet, retryAfter time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeOf(r)
			if route == healthRoute || !blocked.has(r.Method, route) {
				next.ServeHTTP(w, r)
				return
			}

			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			}
			writeError(w, errMaintenance)
		})
	}
}
