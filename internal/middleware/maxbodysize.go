package middleware

import "net/http"

// DefaultMaxBodyBytes caps request bodies at 64 KiB. Score maps for even
// an oversized card are a few hundred bytes, so anything near the cap is
// garbage or abuse.
const DefaultMaxBodyBytes int64 = 64 << 10

// MaxBodySize returns a middleware that rejects request bodies larger than
// limit bytes. Reads past the limit fail, which surfaces to handlers as a
// body decode error rather than unbounded memory use.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
