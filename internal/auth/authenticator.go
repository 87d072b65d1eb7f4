package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
	"github.com/ilsegaertner/CUB-Film-data/pkg/middleware"
)

// Authenticator turns a bearer token into the live identity it belongs to.
type Authenticator struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthenticator creates an authenticator backed by users.
func NewAuthenticator(tokens *TokenManager, users repository.UserRepository) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Resolve validates token and loads its user. The returned username is the
// stored one, which may differ from the username the token was issued for.
func (a *Authenticator) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			tokenValidations.WithLabelValues("expired").Inc()
		} else {
			tokenValidations.WithLabelValues("invalid").Inc()
		}
		return domain.Identity{}, err
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			tokenValidations.WithLabelValues("unknown_identity").Inc()
			return domain.Identity{}, ErrIdentityNotFound
		}
		tokenValidations.WithLabelValues("error").Inc()
		return domain.Identity{}, fmt.Errorf("load token identity: %w", err)
	}

	tokenValidations.WithLabelValues("valid").Inc()
	return domain.Identity{UserID: user.ID, Username: user.Username}, nil
}

// IdentityFromContext returns the identity the auth middleware resolved for
// this request.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	p, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		return domain.Identity{}, false
	}
	return domain.Identity{UserID: p.UserID, Username: p.Username}, true
}
