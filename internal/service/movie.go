package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
	"github.com/ilsegaertner/CUB-Film-data/pkg/pagination"
)

// MovieService implements read access to the catalog and the seed path.
type MovieService struct {
	movies repository.MovieRepository
	logger *slog.Logger
}

// NewMovieService creates a new movie service.
func NewMovieService(movies repository.MovieRepository, logger *slog.Logger) *MovieService {
	return &MovieService{movies: movies, logger: logger}
}

// MovieQuery holds the optional listing filters.
type MovieQuery struct {
	Genre    string
	Director string
	Featured *bool
	Search   string
}

// ListMovies returns one page of the catalog ordered by title, and the
// total number of matches.
func (s *MovieService) ListMovies(ctx context.Context, q MovieQuery, page pagination.Params) ([]domain.Movie, int, error) {
	page = page.Normalize()

	movies, total, err := s.movies.List(ctx, repository.MovieFilter{
		Genre:    strings.TrimSpace(q.Genre),
		Director: strings.TrimSpace(q.Director),
		Featured: q.Featured,
		Search:   strings.TrimSpace(q.Search),
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}

	return movies, total, nil
}

// GetMovieByTitle returns the movie with exactly this title.
func (s *MovieService) GetMovieByTitle(ctx context.Context, title string) (*domain.Movie, error) {
	m, err := s.movies.GetByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("get movie %q: %w", title, err)
	}
	return m, nil
}

// GetGenre returns the genre document stored with the catalog.
func (s *MovieService) GetGenre(ctx context.Context, name string) (*domain.Genre, error) {
	g, err := s.movies.GetGenre(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get genre %q: %w", name, err)
	}
	return g, nil
}

// GetDirector returns the director document stored with the catalog.
func (s *MovieService) GetDirector(ctx context.Context, name string) (*domain.Director, error) {
	d, err := s.movies.GetDirector(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get director %q: %w", name, err)
	}
	return d, nil
}

// SeedMovies upserts movies by title and returns how many were written.
// It stops at the first failure; movies written before it stay written.
func (s *MovieService) SeedMovies(ctx context.Context, movies []domain.Movie) (int, error) {
	for i := range movies {
		if strings.TrimSpace(movies[i].Title) == "" {
			return 0, apperrors.Unprocessable(fmt.Sprintf("movie %d has no title", i))
		}
	}

	written := 0
	for i := range movies {
		m := &movies[i]
		if err := s.movies.Create(ctx, m); err != nil {
			return written, fmt.Errorf("seed movie %q: %w", m.Title, err)
		}
		written++
	}

	s.logger.InfoContext(ctx, "movie catalog seeded", slog.Int("count", written))
	return written, nil
}
