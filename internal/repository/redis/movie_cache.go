package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
)

const keyPrefix = "movie:"

// MovieCache is a read-through Redis cache in front of a MovieRepository.
// Single-entity lookups are cached; listings and existence checks go
// straight to the wrapped repository. Redis failures are logged and never
// surface to the caller.
type MovieCache struct {
	next   repository.MovieRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ repository.MovieRepository = (*MovieCache)(nil)

// NewMovieCache wraps next with a Redis cache whose entries expire after ttl.
func NewMovieCache(next repository.MovieRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *MovieCache {
	return &MovieCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Create writes through and then drops every cached entry, since a changed
// movie can alter genre and director lookups as well.
func (c *MovieCache) Create(ctx context.Context, m *domain.Movie) error {
	if err := c.next.Create(ctx, m); err != nil {
		return err
	}
	if err := c.Invalidate(ctx); err != nil {
		c.logger.WarnContext(ctx, "movie cache invalidation failed",
			slog.String("title", m.Title),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (c *MovieCache) List(ctx context.Context, filter repository.MovieFilter) ([]domain.Movie, int, error) {
	return c.next.List(ctx, filter)
}

func (c *MovieCache) Exists(ctx context.Context, id string) (bool, error) {
	return c.next.Exists(ctx, id)
}

func (c *MovieCache) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	return readThrough(ctx, c, "id:"+id, func() (*domain.Movie, error) {
		return c.next.GetByID(ctx, id)
	})
}

func (c *MovieCache) GetByTitle(ctx context.Context, title string) (*domain.Movie, error) {
	return readThrough(ctx, c, "title:"+title, func() (*domain.Movie, error) {
		return c.next.GetByTitle(ctx, title)
	})
}

func (c *MovieCache) GetGenre(ctx context.Context, name string) (*domain.Genre, error) {
	return readThrough(ctx, c, "genre:"+name, func() (*domain.Genre, error) {
		return c.next.GetGenre(ctx, name)
	})
}

func (c *MovieCache) GetDirector(ctx context.Context, name string) (*domain.Director, error) {
	return readThrough(ctx, c, "director:"+name, func() (*domain.Director, error) {
		return c.next.GetDirector(ctx, name)
	})
}

// Invalidate removes every movie cache entry.
func (c *MovieCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan movie keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del movie keys: %w", err)
	}
	c.logger.InfoContext(ctx, "movie cache invalidated", slog.Int("keys", len(keys)))
	return nil
}

// readThrough serves key from Redis when present, otherwise calls load and
// stores a successful result. Errors from load are returned untouched and
// never cached.
func readThrough[T any](ctx context.Context, c *MovieCache, key string, load func() (*T, error)) (*T, error) {
	key = keyPrefix + key

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return &v, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt movie cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "movie cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "movie cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return v, nil
}
