package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
	"github.com/ilsegaertner/CUB-Film-data/pkg/httputil"
	"github.com/ilsegaertner/CUB-Film-data/pkg/logger"
)

type principalKey struct{}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID   string
	Username string
}

// TokenValidator resolves a bearer token to the caller it belongs to. Errors
// are rendered with httputil.WriteError, so validators should return
// AppErrors carrying the intended status.
type TokenValidator func(ctx context.Context, token string) (*Principal, error)

var (
	errMissingAuthHeader = apperrors.Unauthorized("missing authorization header")
	errMalformedAuth     = apperrors.Unauthorized("invalid authorization header format")
)

// Auth requires an "Authorization: Bearer <token>" header, resolves it with
// validate and stores the Principal in the request context. No state is kept
// between requests.
func Auth(validate TokenValidator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}

			principal, err := validate(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = logger.WithUserID(ctx, principal.UserID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", principal.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errMalformedAuth
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMalformedAuth
	}
	return token, nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller stored by Auth.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
