package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	"github.com/ilsegaertner/CUB-Film-data/pkg/database"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
)

const movieColumns = `id, title, description, year, rated, released, runtime, genre, director, actors, image_path, featured, created_at, updated_at`

// MovieRepository implements repository.MovieRepository using PostgreSQL.
type MovieRepository struct {
	db database.DBTX
}

// NewMovieRepository creates a new PostgreSQL-backed movie repository.
func NewMovieRepository(db database.DBTX) *MovieRepository {
	return &MovieRepository{db: db}
}

// Create upserts a movie keyed by title. The stored id and timestamps are
// written back into m.
func (r *MovieRepository) Create(ctx context.Context, m *domain.Movie) (err error) {
	query := `
		INSERT INTO movies (title, description, year, rated, released, runtime, genre, director, actors, image_path, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (title) DO UPDATE SET
			description = EXCLUDED.description,
			year = EXCLUDED.year,
			rated = EXCLUDED.rated,
			released = EXCLUDED.released,
			runtime = EXCLUDED.runtime,
			genre = EXCLUDED.genre,
			director = EXCLUDED.director,
			actors = EXCLUDED.actors,
			image_path = EXCLUDED.image_path,
			featured = EXCLUDED.featured,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	ctx, end := database.TraceQuery(ctx, "UpsertMovie", query)
	defer func() { end(err) }()

	genreJSON, err := json.Marshal(m.Genre)
	if err != nil {
		return fmt.Errorf("marshal genre: %w", err)
	}
	directorJSON, err := json.Marshal(m.Director)
	if err != nil {
		return fmt.Errorf("marshal director: %w", err)
	}
	if m.Actors == nil {
		m.Actors = []string{}
	}

	err = r.db.QueryRow(ctx, query,
		m.Title,
		m.Description,
		m.Year,
		m.Rated,
		m.Released,
		m.Runtime,
		genreJSON,
		directorJSON,
		m.Actors,
		m.ImagePath,
		m.Featured,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert movie: %w", err)
	}

	return nil
}

// List returns movies matching the given filter with the total count.
func (r *MovieRepository) List(ctx context.Context, filter repository.MovieFilter) (movies []domain.Movie, total int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Genre != "" {
		conditions = append(conditions, fmt.Sprintf("genre->>'Name' = $%d", argIndex))
		args = append(args, filter.Genre)
		argIndex++
	}

	if filter.Director != "" {
		conditions = append(conditions, fmt.Sprintf("director->>'Name' = $%d", argIndex))
		args = append(args, filter.Director)
		argIndex++
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM movies
		%s
		ORDER BY title ASC
		LIMIT $%d OFFSET $%d`,
		movieColumns, whereClause, argIndex, argIndex+1,
	)

	ctx, end := database.TraceQuery(ctx, "ListMovies", query)
	defer func() { end(err) }()

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(filter.Offset, 0)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMovie(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		movies = append(movies, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate movie rows: %w", err)
	}

	if movies == nil {
		movies = []domain.Movie{}
	}

	return movies, total, nil
}

// GetByID retrieves a movie by its ID.
func (r *MovieRepository) GetByID(ctx context.Context, id string) (m *domain.Movie, err error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetMovieByID", query)
	defer func() { end(err) }()

	m, err = scanMovie(r.db.QueryRow(ctx, query, id), nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("movie", id)
	}
	return m, err
}

// GetByTitle retrieves a movie by exact title.
func (r *MovieRepository) GetByTitle(ctx context.Context, title string) (m *domain.Movie, err error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE title = $1`

	ctx, end := database.TraceQuery(ctx, "GetMovieByTitle", query)
	defer func() { end(err) }()

	m, err = scanMovie(r.db.QueryRow(ctx, query, title), nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("movie", title)
	}
	return m, err
}

// GetGenre returns the embedded genre of the first movie, by title, in that genre.
func (r *MovieRepository) GetGenre(ctx context.Context, name string) (g *domain.Genre, err error) {
	query := `SELECT genre FROM movies WHERE genre->>'Name' = $1 ORDER BY title LIMIT 1`

	ctx, end := database.TraceQuery(ctx, "GetGenre", query)
	defer func() { end(err) }()

	var raw []byte
	if err = r.db.QueryRow(ctx, query, name).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("genre", name)
		}
		return nil, fmt.Errorf("get genre: %w", err)
	}

	var genre domain.Genre
	if err = json.Unmarshal(raw, &genre); err != nil {
		return nil, fmt.Errorf("unmarshal genre: %w", err)
	}
	return &genre, nil
}

// GetDirector returns the embedded director of the first movie, by title, they directed.
func (r *MovieRepository) GetDirector(ctx context.Context, name string) (d *domain.Director, err error) {
	query := `SELECT director FROM movies WHERE director->>'Name' = $1 ORDER BY title LIMIT 1`

	ctx, end := database.TraceQuery(ctx, "GetDirector", query)
	defer func() { end(err) }()

	var raw []byte
	if err = r.db.QueryRow(ctx, query, name).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("director", name)
		}
		return nil, fmt.Errorf("get director: %w", err)
	}

	var director domain.Director
	if err = json.Unmarshal(raw, &director); err != nil {
		return nil, fmt.Errorf("unmarshal director: %w", err)
	}
	return &director, nil
}

// Exists checks whether a movie with the given id is in the catalog.
func (r *MovieRepository) Exists(ctx context.Context, id string) (exists bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM movies WHERE id = $1)`

	ctx, end := database.TraceQuery(ctx, "MovieExists", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check movie exists: %w", err)
	}

	return exists, nil
}

// scanMovie reads one row in movieColumns order. When total is non-nil the
// row is expected to carry a trailing window count.
func scanMovie(row pgx.Row, total *int) (*domain.Movie, error) {
	var (
		m            domain.Movie
		genreJSON    []byte
		directorJSON []byte
	)

	dest := []any{
		&m.ID,
		&m.Title,
		&m.Description,
		&m.Year,
		&m.Rated,
		&m.Released,
		&m.Runtime,
		&genreJSON,
		&directorJSON,
		&m.Actors,
		&m.ImagePath,
		&m.Featured,
		&m.CreatedAt,
		&m.UpdatedAt,
	}
	if total != nil {
		dest = append(dest, total)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan movie: %w", err)
	}

	if len(genreJSON) > 0 {
		if err := json.Unmarshal(genreJSON, &m.Genre); err != nil {
			return nil, fmt.Errorf("unmarshal genre: %w", err)
		}
	}
	if len(directorJSON) > 0 {
		if err := json.Unmarshal(directorJSON, &m.Director); err != nil {
			return nil, fmt.Errorf("unmarshal director: %w", err)
		}
	}
	if m.Actors == nil {
		m.Actors = []string{}
	}

	return &m, nil
}
