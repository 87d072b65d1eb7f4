package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ilsegaertner/CUB-Film-data/internal/auth"
	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/event"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
)

// UserService implements profile and favorites operations. Every method
// takes the resolved requester and the username in the URL and runs the
// owner-only gate before touching the store.
type UserService struct {
	users    repository.UserRepository
	movies   repository.MovieRepository
	hasher   auth.PasswordHasher
	gate     auth.Gate
	producer *event.Producer
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	movies repository.MovieRepository,
	hasher auth.PasswordHasher,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		movies:   movies,
		hasher:   hasher,
		producer: producer,
		logger:   logger,
	}
}

// UpdateProfileInput holds the fields to change. Nil fields are left alone.
type UpdateProfileInput struct {
	Username *string
	Password *string
	Email    *string
	Birthday *domain.Date
	Avatar   *string
}

// GetProfile returns the requester's own profile.
func (s *UserService) GetProfile(ctx context.Context, requester domain.Identity, username string) (*domain.User, error) {
	if err := s.gate.Authorize(requester, username); err != nil {
		return nil, err
	}
	return s.loadOwner(ctx, requester)
}

// UpdateProfile applies input to the requester's profile. A new password is
// hashed here and never returned.
func (s *UserService) UpdateProfile(ctx context.Context, requester domain.Identity, username string, input UpdateProfileInput) (*domain.User, error) {
	if err := s.gate.Authorize(requester, username); err != nil {
		return nil, err
	}

	user, err := s.loadOwner(ctx, requester)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		if *input.Username == "" {
			return nil, apperrors.Unprocessable("username must not be empty")
		}
		user.Username = *input.Username
	}
	if input.Password != nil {
		if *input.Password == "" {
			return nil, apperrors.Unprocessable("password must not be empty")
		}
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Birthday != nil {
		user.Birthday = input.Birthday
	}
	if input.Avatar != nil {
		user.Avatar = *input.Avatar
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
		slog.Bool("username_changed", user.Username != username),
		slog.Bool("password_changed", input.Password != nil),
	)

	return user, nil
}

// DeleteAccount removes the requester's account. Tokens already issued stop
// resolving because their identity can no longer be loaded.
func (s *UserService) DeleteAccount(ctx context.Context, requester domain.Identity, username string) error {
	if err := s.gate.Authorize(requester, username); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, requester.UserID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	deleted := &domain.User{ID: requester.UserID, Username: requester.Username}
	if err := s.producer.PublishUserDeleted(ctx, deleted); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", requester.UserID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", requester.UserID),
	)

	return nil
}

// AddFavorite adds movieID to the requester's favorites. The movie must
// exist; adding one that is already present changes nothing.
func (s *UserService) AddFavorite(ctx context.Context, requester domain.Identity, username, movieID string) (*domain.User, error) {
	if err := s.gate.Authorize(requester, username); err != nil {
		return nil, err
	}

	exists, err := s.movies.Exists(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("check movie: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("movie", movieID)
	}

	user, err := s.users.AddFavorite(ctx, requester.UserID, movieID)
	if err != nil {
		return nil, ownerError(err, "add favorite")
	}

	if err := s.producer.PublishFavoriteAdded(ctx, user.ID, movieID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.favorite_added event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "favorite movie added",
		slog.String("user_id", user.ID),
		slog.String("movie_id", movieID),
	)

	return user, nil
}

// RemoveFavorite removes movieID from the requester's favorites. Removing an
// id that is not present changes nothing.
func (s *UserService) RemoveFavorite(ctx context.Context, requester domain.Identity, username, movieID string) (*domain.User, error) {
	if err := s.gate.Authorize(requester, username); err != nil {
		return nil, err
	}

	user, err := s.users.RemoveFavorite(ctx, requester.UserID, movieID)
	if err != nil {
		return nil, ownerError(err, "remove favorite")
	}

	if err := s.producer.PublishFavoriteRemoved(ctx, user.ID, movieID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.favorite_removed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "favorite movie removed",
		slog.String("user_id", user.ID),
		slog.String("movie_id", movieID),
	)

	return user, nil
}

// loadOwner fetches the requester's record. It can only be missing if the
// account was deleted after the token was resolved.
func (s *UserService) loadOwner(ctx context.Context, requester domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, requester.UserID)
	if err != nil {
		return nil, ownerError(err, "get user")
	}
	return user, nil
}

func ownerError(err error, op string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return auth.ErrIdentityNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
