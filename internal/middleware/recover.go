package middleware

import (
	"log/slog"
	"net/http"
)

// Recoverer converts a handler panic into a JSON 500 instead of a dropped
// connection or a framework default page. This is the last line of the
// guarantee that every response from this API carries the standard envelope.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						slog.String("ip", r.RemoteAddr),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.Any("panic", rec),
					)
					// The handler may have already written headers; if so
					// this is a no-op and the log entry is all we get.
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"response":{},"message":"Something went wrong please try again."}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
