package middleware

import (
	"net/http"

	"github.com/drastik/donation-gateway/pkg/logger"

	"github.com/google/uuid"
)

// RequestID threads one trace id through the request's context logger and
// echoes it back to the caller. The payment-form collaborator sends
// X-Trace-ID; X-Request-ID is accepted from anything fronting the service.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = r.Header.Get("X-Request-ID")
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		// inject into context
		ctx := logger.With(r.Context(), "traceID", traceID)

		// propagate back to response
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
