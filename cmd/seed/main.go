// Command seed upserts a YAML movie catalog into the database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ilsegaertner/CUB-Film-data/internal/app"
	"github.com/ilsegaertner/CUB-Film-data/internal/config"
	"github.com/ilsegaertner/CUB-Film-data/pkg/logger"
)

func main() {
	path := flag.String("file", "cmd/seed/movies.yaml", "path to the YAML movie catalog")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	// The seeder never talks to consumers.
	cfg.KafkaEnabled = false

	log := logger.New(cfg.ServiceName+"-seed", cfg.LogLevel)

	if err := run(cfg, log, *path); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	movies, err := loadCatalog(f)
	if err != nil {
		return err
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warn("close failed", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := application.MovieService().SeedMovies(ctx, movies)
	if err != nil {
		return err
	}

	if err := application.InvalidateMovieCache(ctx); err != nil {
		log.Warn("movie cache invalidation failed", slog.String("error", err.Error()))
	}

	log.Info("catalog seeded", slog.String("file", path), slog.Int("movies", n))
	return nil
}
