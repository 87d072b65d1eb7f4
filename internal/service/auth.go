package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ilsegaertner/CUB-Film-data/internal/auth"
	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/event"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
)

// AuthService implements registration, login and token authentication.
type AuthService struct {
	users         repository.UserRepository
	hasher        auth.PasswordHasher
	verifier      *auth.Verifier
	tokens        *auth.TokenManager
	authenticator *auth.Authenticator
	producer      *event.Producer
	logger        *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	verifier *auth.Verifier,
	tokens *auth.TokenManager,
	authenticator *auth.Authenticator,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:         users,
		hasher:        hasher,
		verifier:      verifier,
		tokens:        tokens,
		authenticator: authenticator,
		producer:      producer,
		logger:        logger,
	}
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Birthday *domain.Date
}

// LoginResult is a verified user together with a freshly issued token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an account. Username uniqueness is enforced by the store,
// so two concurrent registrations for one name yield exactly one success.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Username == "" {
		return nil, apperrors.Unprocessable("username is required")
	}
	if input.Password == "" {
		return nil, apperrors.Unprocessable("password is required")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Username:       input.Username,
		PasswordHash:   hash,
		Email:          input.Email,
		Birthday:       input.Birthday,
		FavoriteMovies: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login verifies credentials and issues a token. Both failure modes render
// as the same 400 response.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.verifier.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to the live identity behind it.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	return s.authenticator.Resolve(ctx, token)
}
