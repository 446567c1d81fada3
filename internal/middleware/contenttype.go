package middleware

import (
	"net/http"
	"strings"
)

// RequireJSON rejects non-GET requests whose Content-Type is not
// application/json. The API speaks JSON exclusively; failing early keeps
// handlers from decoding form posts or multipart bodies by accident.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			contentType := r.Header.Get("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"response":{},"message":"This API only accepts 'application/json' content type for everything except GET requests."}`))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
