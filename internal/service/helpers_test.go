package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ilsegaertner/CUB-Film-data/internal/auth"
	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/event"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	pkgkafka "github.com/ilsegaertner/CUB-Film-data/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) AddFavorite(ctx context.Context, userID, movieID string) (*domain.User, error) {
	args := m.Called(ctx, userID, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) RemoveFavorite(ctx context.Context, userID, movieID string) (*domain.User, error) {
	args := m.Called(ctx, userID, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// --- Mock Movie Repository ---

type mockMovieRepository struct {
	mock.Mock
}

func (m *mockMovieRepository) Create(ctx context.Context, movie *domain.Movie) error {
	return m.Called(ctx, movie).Error(0)
}

func (m *mockMovieRepository) List(ctx context.Context, filter repository.MovieFilter) ([]domain.Movie, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Movie), args.Int(1), args.Error(2)
}

func (m *mockMovieRepository) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Movie), args.Error(1)
}

func (m *mockMovieRepository) GetByTitle(ctx context.Context, title string) (*domain.Movie, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Movie), args.Error(1)
}

func (m *mockMovieRepository) GetGenre(ctx context.Context, name string) (*domain.Genre, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Genre), args.Error(1)
}

func (m *mockMovieRepository) GetDirector(ctx context.Context, name string) (*domain.Director, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Director), args.Error(1)
}

func (m *mockMovieRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// --- Event capture ---

type recordingPublisher struct {
	types []string
	err   error
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, evt *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.types = append(r.types, evt.EventType)
	return nil
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHasher() *auth.BcryptHasher {
	return auth.NewBcryptHasher(bcrypt.MinCost)
}

func newTestProducer(pub *recordingPublisher) *event.Producer {
	return event.NewProducer(pub, "user.events", newTestLogger())
}

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-key-for-testing-0123456789", 7*24*time.Hour, "cub-film-data")
}

func aliceIdentity() domain.Identity {
	return domain.Identity{UserID: "a11ce000-0000-4000-8000-000000000001", Username: "alice1"}
}

func aliceUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := newTestHasher().Hash(password)
	require.NoError(t, err)
	id := aliceIdentity()
	return &domain.User{
		ID:             id.UserID,
		Username:       id.Username,
		PasswordHash:   hash,
		Email:          "a@x.com",
		FavoriteMovies: []string{},
	}
}
