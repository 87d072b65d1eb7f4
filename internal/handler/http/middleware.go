package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
	"github.com/ilsegaertner/CUB-Film-data/pkg/httputil"
)

const defaultMaxBodyBytes int64 = 1 << 20

// ContentTypeJSON rejects requests that send a body without Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "UNSUPPORTED_MEDIA_TYPE",
					Message: "Content-Type must be application/json",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBody caps request bodies at limit bytes. A non-positive limit uses 1 MiB.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// pathParam returns the decoded URL parameter name. chi matches on the
// escaped path whenever the request carried one (e.g. a title with %2F), so
// the parameter is unescaped in that case only.
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value, nil
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return "", apperrors.InvalidInput(name + " is not a valid path segment")
	}
	return decoded, nil
}
