package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	internalerrors "github.com/drastik/donation-gateway/internal"
)

// RecoveryMiddleware turns a handler panic into the standard error
// envelope. The stack is logged, never sent to the client; a charge
// request that panics mid-flight reports like any other internal failure.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"trace_id", w.Header().Get("X-Trace-ID"),
						"stack", string(debug.Stack()))

					appErr := internalerrors.NewInternalError("internal server error", nil)
					status, body := appErr.ToHTTPResponse()

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(status)
					if err := json.NewEncoder(w).Encode(body); err != nil {
						logger.Error("failed to encode panic response", "error", err)
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
