package middleware

import (
	"context"
	"net/http"
	"strings"
)

// CallerHeader carries the caller's operator identity on reporting requests.
// Identity resolution (and the deny-by-default scope it implies) happens in
// the reporting service; this middleware only threads the raw identity
// through the request context.
const CallerHeader = "X-Operator-Email"

// callerKey is the context key for the caller identity.
type callerKey struct{}

// CallerIdentity creates a middleware that extracts the caller's operator
// email from the request header into the request context. An absent header
// leaves the caller empty, which downstream resolution treats as deny.
func CallerIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := strings.TrimSpace(r.Header.Get(CallerHeader))

			ctx := context.WithValue(r.Context(), callerKey{}, caller)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCaller extracts the caller identity from the request context.
// Returns the empty string when no identity was provided.
func GetCaller(ctx context.Context) string {
	if caller, ok := ctx.Value(callerKey{}).(string); ok {
		return caller
	}

	return ""
}
