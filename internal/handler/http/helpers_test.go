package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ilsegaertner/CUB-Film-data/internal/auth"
	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/event"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	"github.com/ilsegaertner/CUB-Film-data/internal/service"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
	"github.com/ilsegaertner/CUB-Film-data/pkg/health"
	"github.com/ilsegaertner/CUB-Film-data/pkg/httputil"
	"github.com/ilsegaertner/CUB-Film-data/pkg/middleware"
)

const testSecret = "handler-test-secret-0123456789abcdef"

// ============================================================================
// In-memory repositories
// ============================================================================

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return apperrors.AlreadyExists("user", "username", user.Username)
		}
	}
	cp := *user
	if cp.FavoriteMovies == nil {
		cp.FavoriteMovies = []string{}
	}
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return clone(u), nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return clone(u), nil
		}
	}
	return nil, apperrors.NotFound("user", username)
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return apperrors.NotFound("user", user.ID)
	}
	for id, u := range r.users {
		if id != user.ID && u.Username == user.Username {
			return apperrors.AlreadyExists("user", "username", user.Username)
		}
	}
	r.users[user.ID] = clone(user)
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return apperrors.NotFound("user", id)
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) AddFavorite(_ context.Context, userID, movieID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, apperrors.NotFound("user", userID)
	}
	if !u.HasFavorite(movieID) {
		u.FavoriteMovies = append(u.FavoriteMovies, movieID)
	}
	return clone(u), nil
}

func (r *memUserRepo) RemoveFavorite(_ context.Context, userID, movieID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, apperrors.NotFound("user", userID)
	}
	u.FavoriteMovies = slices.DeleteFunc(u.FavoriteMovies, func(id string) bool { return id == movieID })
	return clone(u), nil
}

func (r *memUserRepo) hashFor(t *testing.T, username string) string {
	t.Helper()
	u, err := r.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	return u.PasswordHash
}

func clone(u *domain.User) *domain.User {
	cp := *u
	cp.FavoriteMovies = slices.Clone(u.FavoriteMovies)
	return &cp
}

type memMovieRepo struct {
	movies []domain.Movie
}

var _ repository.MovieRepository = (*memMovieRepo)(nil)

func (r *memMovieRepo) Create(_ context.Context, movie *domain.Movie) error {
	r.movies = append(r.movies, *movie)
	return nil
}

func (r *memMovieRepo) List(_ context.Context, f repository.MovieFilter) ([]domain.Movie, int, error) {
	var matched []domain.Movie
	for _, m := range r.movies {
		if f.Genre != "" && m.Genre.Name != f.Genre {
			continue
		}
		if f.Director != "" && m.Director.Name != f.Director {
			continue
		}
		if f.Featured != nil && m.Featured != *f.Featured {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(m.Title), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	total := len(matched)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

func (r *memMovieRepo) GetByID(_ context.Context, id string) (*domain.Movie, error) {
	for _, m := range r.movies {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, apperrors.NotFound("movie", id)
}

func (r *memMovieRepo) GetByTitle(_ context.Context, title string) (*domain.Movie, error) {
	for _, m := range r.movies {
		if m.Title == title {
			return &m, nil
		}
	}
	return nil, apperrors.NotFound("movie", title)
}

func (r *memMovieRepo) GetGenre(_ context.Context, name string) (*domain.Genre, error) {
	for _, m := range r.movies {
		if m.Genre.Name == name {
			g := m.Genre
			return &g, nil
		}
	}
	return nil, apperrors.NotFound("genre", name)
}

func (r *memMovieRepo) GetDirector(_ context.Context, name string) (*domain.Director, error) {
	for _, m := range r.movies {
		if m.Director.Name == name {
			d := m.Director
			return &d, nil
		}
	}
	return nil, apperrors.NotFound("director", name)
}

func (r *memMovieRepo) Exists(_ context.Context, id string) (bool, error) {
	for _, m := range r.movies {
		if m.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func sampleMovies() []domain.Movie {
	return []domain.Movie{
		{
			ID: "42", Title: "Heat", Year: "1995",
			Genre:    domain.Genre{Name: "Crime", Description: "Crime films center on criminals."},
			Director: domain.Director{Name: "Michael Mann", Bio: "American director.", Birth: "1943"},
			Featured: true,
		},
		{
			ID: "7", Title: "Alien", Year: "1979",
			Genre:    domain.Genre{Name: "Horror", Description: "Horror films aim to frighten."},
			Director: domain.Director{Name: "Ridley Scott", Bio: "English director.", Birth: "1937"},
		},
		{
			ID: "8", Title: "Blade Runner", Year: "1982",
			Genre:    domain.Genre{Name: "Science Fiction", Description: "Speculative fiction."},
			Director: domain.Director{Name: "Ridley Scott", Bio: "English director.", Birth: "1937"},
			Featured: true,
		},
	}
}

// ============================================================================
// Test server
// ============================================================================

type testServer struct {
	handler http.Handler
	users   *memUserRepo
	movies  *memMovieRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := newMemUserRepo()
	movies := &memMovieRepo{movies: sampleMovies()}

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	verifier, err := auth.NewVerifier(users, hasher, logger)
	require.NoError(t, err)
	tokens := auth.NewTokenManager(testSecret, time.Hour, "cub-film-data")
	authenticator := auth.NewAuthenticator(tokens, users)
	producer := event.NewProducer(nil, "user.events", logger)

	authSvc := service.NewAuthService(users, hasher, verifier, tokens, authenticator, producer, logger)
	userSvc := service.NewUserService(users, movies, hasher, producer, logger)
	movieSvc := service.NewMovieService(movies, logger)

	handler := NewRouter(authSvc, userSvc, movieSvc, health.NewHandler(), logger, RouterConfig{
		ServiceName: "cub-film-data-test",
		CORS:        middleware.CORSConfig{Environment: "development"},
	})

	return &testServer{handler: handler, users: users, movies: movies}
}

// envelope mirrors httputil.Response with a raw data payload.
type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) register(t *testing.T, username, password string) {
	t.Helper()
	rec, _ := s.do(t, http.MethodPost, "/users", "", map[string]string{
		"Username": username,
		"Password": password,
		"Email":    username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/login", "", map[string]string{
		"Username": username,
		"Password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func decodeUser(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var u map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u
}
