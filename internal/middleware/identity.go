// Package middleware provides HTTP middleware for the tag league API server.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// playerIDKey is the context key for the authenticated player's id.
type playerIDKey struct{}

// PlayerIDHeader is set by the external auth gateway after it has resolved
// the caller's identity. The engine trusts the gateway; it performs no
// authentication of its own.
const PlayerIDHeader = "X-Player-ID"

// Identity extracts the caller's player id from PlayerIDHeader into the
// request context. Requests without the header still pass through —
// handlers that need an identity check PlayerID and answer 401.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(PlayerIDHeader); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), playerIDKey{}, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// PlayerID returns the caller's player id from the context, if present.
func PlayerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(playerIDKey{}).(uuid.UUID)
	return id, ok
}
