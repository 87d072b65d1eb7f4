package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl marks GET responses as cacheable by the client for maxAge
// seconds. Responses are private because they sit behind a bearer token.
// A non-positive maxAge disables caching.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := "no-store"
	if maxAge > 0 {
		value = fmt.Sprintf("private, max-age=%d", maxAge)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
