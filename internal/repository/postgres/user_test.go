package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/pkg/database"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewUserRepository(mock), mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	bday := domain.NewDate(time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC))
	return &domain.User{
		ID:             "3f6c1e0a-8a47-4c4b-9f0e-1d2a3b4c5d6e",
		Username:       "alice1",
		PasswordHash:   "$2a$10$hash",
		Email:          "a@x.com",
		Birthday:       &bday,
		FavoriteMovies: []string{"7"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func userRow(u *domain.User) *pgxmock.Rows {
	bday := u.Birthday.Time
	return pgxmock.NewRows([]string{
		"id", "username", "password_hash", "email", "birthday",
		"favorite_movies", "avatar", "created_at", "updated_at",
	}).AddRow(
		u.ID, u.Username, u.PasswordHash, u.Email, &bday,
		u.FavoriteMovies, u.Avatar, u.CreatedAt, u.UpdatedAt,
	)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Username, u.PasswordHash, u.Email, birthdayArg(u.Birthday),
			u.FavoriteMovies, u.Avatar, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateUsername(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Username, u.PasswordHash, u.Email, birthdayArg(u.Birthday),
			u.FavoriteMovies, u.Avatar, u.CreatedAt, u.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "alice1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_NilFavoritesStoredAsEmpty(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.FavoriteMovies = nil
	u.Birthday = nil

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Username, u.PasswordHash, u.Email, (*time.Time)(nil),
			[]string{}, u.Avatar, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, []string{}, u.FavoriteMovies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestUserRepository_GetByID_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.Equal(t, "1990-04-12", got.Birthday.String())
	assert.Equal(t, []string{"7"}, got.FavoriteMovies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsername_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE username =").
		WithArgs("alice1").
		WillReturnRows(userRow(u))

	got, err := repo.GetByUsername(context.Background(), "alice1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsername_DBError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE username =").
		WithArgs("alice1").
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := repo.GetByUsername(context.Background(), "alice1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "scan user")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Update / Delete
// ---------------------------------------------------------------------------

func TestUserRepository_Update_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.Username = "alice2"

	mock.ExpectExec("UPDATE users").
		WithArgs(u.Username, u.PasswordHash, u.Email, birthdayArg(u.Birthday), u.Avatar, pgxmock.AnyArg(), u.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_UsernameTaken(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("UPDATE users").
		WithArgs(u.Username, u.PasswordHash, u.Email, birthdayArg(u.Birthday), u.Avatar, pgxmock.AnyArg(), u.ID).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Update(context.Background(), u)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("UPDATE users").
		WithArgs(u.Username, u.PasswordHash, u.Email, birthdayArg(u.Birthday), u.Avatar, pgxmock.AnyArg(), u.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), u)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM users WHERE id =").
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM users WHERE id =").
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), "u-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "u-1"), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Favorites
// ---------------------------------------------------------------------------

func TestUserRepository_AddFavorite_Appends(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.FavoriteMovies = []string{"7", "42"}

	mock.ExpectQuery(`UPDATE users\s+SET favorite_movies = array_append`).
		WithArgs(u.ID, "42", pgxmock.AnyArg()).
		WillReturnRows(userRow(u))

	got, err := repo.AddFavorite(context.Background(), u.ID, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "42"}, got.FavoriteMovies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_AddFavorite_AlreadyPresentReturnsCurrentRow(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.FavoriteMovies = []string{"42"}

	mock.ExpectQuery(`UPDATE users\s+SET favorite_movies = array_append`).
		WithArgs(u.ID, "42", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.AddFavorite(context.Background(), u.ID, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, got.FavoriteMovies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_AddFavorite_UserGone(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE users\s+SET favorite_movies = array_append`).
		WithArgs("gone", "42", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.AddFavorite(context.Background(), "gone", "42")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_RemoveFavorite(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.FavoriteMovies = []string{}

	mock.ExpectQuery(`UPDATE users\s+SET favorite_movies = array_remove`).
		WithArgs(u.ID, "7", pgxmock.AnyArg()).
		WillReturnRows(userRow(u))

	got, err := repo.RemoveFavorite(context.Background(), u.ID, "7")
	require.NoError(t, err)
	assert.Empty(t, got.FavoriteMovies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_RemoveFavorite_UserGone(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE users\s+SET favorite_movies = array_remove`).
		WithArgs("gone", "7", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.RemoveFavorite(context.Background(), "gone", "7")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("timeout")))
	assert.False(t, isUniqueViolation(nil))
}
