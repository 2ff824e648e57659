package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"ask_gateway/internal/identity"
)

type contextKey string

const userContextKey contextKey = "user"

// Identity resolves the caller from proxy-asserted headers and attaches the
// resulting user to the request context. Requests without an identity header
// are keyed by client address.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := identity.Resolve(
			clientAddr(r),
			r.Header.Get("X-User-Id"),
			r.Header.Get("X-User-Plan"),
		)

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the resolved user for the request.
func UserFromContext(ctx context.Context) (identity.User, bool) {
	user, ok := ctx.Value(userContextKey).(identity.User)
	return user, ok
}

// clientAddr extracts the client host, preferring the forwarding header set
// by the fronting proxy.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if host := strings.TrimSpace(parts[0]); host != "" {
			return host
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
