package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"cabinet/internal/httputil"
)

// Recovery turns handler panics into problem+json 500 responses. The stack
// is logged, never sent to the client. http.ErrAbortHandler passes through
// so aborted streams keep their net/http semantics.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					"panic", rec,
					"path", r.URL.Path,
					"method", r.Method,
					"stack", string(debug.Stack()),
				)

				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
