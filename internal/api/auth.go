package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ignite/bulk-dispatch/internal/pkg/httputil"
)

// BearerAuth rejects requests lacking the configured bearer token before
// any dispatch work begins. An empty token disables the check.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				httputil.Unauthorized(w, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
