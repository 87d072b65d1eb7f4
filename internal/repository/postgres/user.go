package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/pkg/database"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
)

const userColumns = `id, username, password_hash, email, birthday, favorite_movies, avatar, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	defer func() { end(err) }()

	if u.FavoriteMovies == nil {
		u.FavoriteMovies = []string{}
	}

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.PasswordHash,
		u.Email,
		birthdayArg(u.Birthday),
		u.FavoriteMovies,
		u.Avatar,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "username", u.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (u *domain.User, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetUserByID", query)
	defer func() { end(err) }()

	u, err = scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user", id)
	}
	return u, err
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (u *domain.User, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	ctx, end := database.TraceQuery(ctx, "GetUserByUsername", query)
	defer func() { end(err) }()

	u, err = scanUser(r.db.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user", username)
	}
	return u, err
}

// Update writes username, password hash, email, birthday and avatar.
// Favorites are only changed through AddFavorite and RemoveFavorite.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (err error) {
	query := `
		UPDATE users
		SET username = $1, password_hash = $2, email = $3, birthday = $4, avatar = $5, updated_at = $6
		WHERE id = $7`

	ctx, end := database.TraceQuery(ctx, "UpdateUser", query)
	defer func() { end(err) }()

	u.UpdatedAt = time.Now().UTC()

	ct, err := r.db.Exec(ctx, query,
		u.Username,
		u.PasswordHash,
		u.Email,
		birthdayArg(u.Birthday),
		u.Avatar,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "username", u.Username)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// Delete removes a user from the database by their ID.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteUser", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// AddFavorite appends movieID in a single statement guarded against
// duplicates. When the guard skips the update the current row is returned.
func (r *UserRepository) AddFavorite(ctx context.Context, userID, movieID string) (u *domain.User, err error) {
	query := `
		UPDATE users
		SET favorite_movies = array_append(favorite_movies, $2::text), updated_at = $3
		WHERE id = $1 AND NOT ($2::text = ANY(favorite_movies))
		RETURNING ` + userColumns

	ctx, end := database.TraceQuery(ctx, "AddFavoriteMovie", query)
	defer func() { end(err) }()

	u, err = scanUser(r.db.QueryRow(ctx, query, userID, movieID, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the movie is already a favorite or the user is gone.
		return r.GetByID(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("add favorite movie: %w", err)
	}
	return u, nil
}

// RemoveFavorite drops movieID from the user's favorites in a single statement.
func (r *UserRepository) RemoveFavorite(ctx context.Context, userID, movieID string) (u *domain.User, err error) {
	query := `
		UPDATE users
		SET favorite_movies = array_remove(favorite_movies, $2::text), updated_at = $3
		WHERE id = $1
		RETURNING ` + userColumns

	ctx, end := database.TraceQuery(ctx, "RemoveFavoriteMovie", query)
	defer func() { end(err) }()

	u, err = scanUser(r.db.QueryRow(ctx, query, userID, movieID, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("remove favorite movie: %w", err)
	}
	return u, nil
}

// scanUser reads a single row in userColumns order. pgx.ErrNoRows is
// returned unwrapped so callers can map it to the key they looked up.
func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u        domain.User
		birthday *time.Time
	)

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Email,
		&birthday,
		&u.FavoriteMovies,
		&u.Avatar,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if birthday != nil {
		d := domain.NewDate(*birthday)
		u.Birthday = &d
	}
	if u.FavoriteMovies == nil {
		u.FavoriteMovies = []string{}
	}

	return &u, nil
}

func birthdayArg(d *domain.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
