package middleware

import (
	"net/http"
	"time"

	"patient-health-qr/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLog registra un evento por request. Loguea el patrón de ruta y no el path
// crudo: los paths públicos llevan el token del QR.
func AccessLog(log logger.Logger, routePattern func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"request_id": chimw.GetReqID(r.Context()),
				"method":     r.Method,
				"route":      routePattern(r),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  ClientIP(r),
			}
			if status >= http.StatusInternalServerError {
				log.Error("request", fields)
				return
			}
			log.Info("request", fields)
		})
	}
}
