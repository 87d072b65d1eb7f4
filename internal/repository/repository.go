package repository

import (
	"context"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user. A taken username yields ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update writes the mutable profile fields of user back to the store.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user by their identifier.
	Delete(ctx context.Context, id string) error

	// AddFavorite appends movieID to the user's favorites unless already
	// present and returns the resulting user.
	AddFavorite(ctx context.Context, userID, movieID string) (*domain.User, error)

	// RemoveFavorite removes every occurrence of movieID from the user's
	// favorites and returns the resulting user.
	RemoveFavorite(ctx context.Context, userID, movieID string) (*domain.User, error)
}

// MovieFilter holds the optional criteria for listing movies.
type MovieFilter struct {
	Genre    string
	Director string
	Featured *bool
	Search   string
	Limit    int
	Offset   int
}

// MovieRepository defines the interface for catalog persistence operations.
type MovieRepository interface {
	// Create inserts a movie or, when the title already exists, replaces it.
	Create(ctx context.Context, movie *domain.Movie) error

	// List returns movies matching filter and the total number of matches.
	List(ctx context.Context, filter MovieFilter) ([]domain.Movie, int, error)

	// GetByID retrieves a movie by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Movie, error)

	// GetByTitle retrieves a movie by exact title.
	GetByTitle(ctx context.Context, title string) (*domain.Movie, error)

	// GetGenre returns the genre document of the first movie in that genre.
	GetGenre(ctx context.Context, name string) (*domain.Genre, error)

	// GetDirector returns the director document of the first movie they directed.
	GetDirector(ctx context.Context, name string) (*domain.Director, error)

	// Exists reports whether a movie with the given id is in the catalog.
	Exists(ctx context.Context, id string) (bool, error)
}
