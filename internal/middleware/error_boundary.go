package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	pkghttp "github.com/compia/compia/pkg/http"
)

// ErrorBoundary converts handler panics into the standard 500 envelope. The
// stack trace is included in the response body only in development; in
// production it goes to the log and the client sees a generic message.
func ErrorBoundary(logger *slog.Logger, devMode bool) func(http.Handler) http.Handler {
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

				stack := string(debug.Stack())
				logger.Error("panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Any("panic", rec),
					slog.String("stack", stack))

				responseStack := ""
				if devMode {
					responseStack = stack
				}
				pkghttp.WriteInternalError(w, "An unexpected error occurred", responseStack)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
