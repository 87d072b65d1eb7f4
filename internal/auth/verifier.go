package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
	"github.com/ilsegaertner/CUB-Film-data/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/ilsegaertner/CUB-Film-data/internal/auth")

// Verifier checks a username and password against the stored hash.
type Verifier struct {
	users     repository.UserRepository
	hasher    PasswordHasher
	dummyHash string
	logger    *slog.Logger
}

// NewVerifier precomputes a throwaway hash at the hasher's cost so that
// lookups for unknown usernames take as long as real comparisons.
func NewVerifier(users repository.UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Verifier, error) {
	dummy, err := hasher.Hash("cub-film-data-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Verifier{
		users:     users,
		hasher:    hasher,
		dummyHash: dummy,
		logger:    logger,
	}, nil
}

// VerifyCredentials returns the user when password matches. Failures are
// ErrUserNotFound or ErrInvalidCredential, which render identically.
func (v *Verifier) VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyCredentials")
	defer span.End()

	user, result, err := v.verify(ctx, username, password)
	loginAttempts.WithLabelValues(result).Inc()
	span.SetAttributes(attribute.String("auth.result", result))
	if result == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential check failed")
	}
	return user, err
}

func (v *Verifier) verify(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = v.hasher.Verify(password, v.dummyHash)
			v.logger.InfoContext(ctx, "login rejected: unknown username")
			return nil, "unknown_user", ErrUserNotFound
		}
		return nil, "error", fmt.Errorf("look up user: %w", err)
	}

	if err := v.hasher.Verify(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			v.logger.InfoContext(ctx, "login rejected: wrong password",
				slog.String("user_id", user.ID),
			)
			return nil, "bad_password", ErrInvalidCredential
		}
		return nil, "error", err
	}

	return user, "success", nil
}
