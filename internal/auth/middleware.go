package auth

import (
	"context"
	"net/http"

	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/repository"
)

// contextKey is an unexported type for context keys in this package.
// A package-private key type means no other package can read or shadow the
// authenticated-user value — plain string keys would collide.
type contextKey string

const userKey contextKey = "user"

// RequireAuth enforces authentication on protected routes.
//
// Per-request states: no token → token present, unverified → verified with
// the identity attached, or rejected. Rejection happens before the handler
// runs, for any of: absent header, bad signature, issuer mismatch, expired
// token, or a subject that no longer resolves to a user record.
//
// The token travels in the raw "authorization" header with no "Bearer "
// prefix — that is the wire contract of this API. On success the full user
// record is loaded and attached to the request context so handlers can make
// self-match authorization decisions without a second lookup.
func RequireAuth(tokens *TokenService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := r.Header.Get("authorization")
			if tokenStr == "" {
				unauthorized(w)
				return
			}

			userID, err := tokens.Validate(tokenStr)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				// A valid token for a deleted account is still a 401 —
				// the identity no longer exists.
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user attached by RequireAuth.
// Returns (nil, false) on routes where the middleware did not run.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// unauthorized writes the standard 401 envelope. The body is a literal so
// this package does not depend on the handler package's helpers.
func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"response":{},"message":"Unauthorized."}`))
}
