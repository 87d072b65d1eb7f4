package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ilsegaertner/CUB-Film-data/internal/service"
	"github.com/ilsegaertner/CUB-Film-data/pkg/health"
	"github.com/ilsegaertner/CUB-Film-data/pkg/httputil"
	"github.com/ilsegaertner/CUB-Film-data/pkg/middleware"
)

// RouterConfig carries the transport settings NewRouter needs.
type RouterConfig struct {
	ServiceName       string
	CORS              middleware.CORSConfig
	PprofAllowedCIDRs []string
	MaxBodyBytes      int64
	CatalogMaxAge     int
}

// NewRouter creates a chi router with all film API routes registered.
func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	movieService *service.MovieService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(MaxBody(cfg.MaxBodyBytes))

	// Health check endpoints
	if healthHandler != nil {
		r.Get("/health/live", healthHandler.LivenessHandler())
		r.Get("/health/ready", healthHandler.ReadinessHandler())
	}
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteData(w, http.StatusOK, MessageResponse{Message: "Welcome to the film catalog API."})
	})

	// Token validator that resolves the bearer token to a live identity.
	tokenValidator := func(ctx context.Context, token string) (*middleware.Principal, error) {
		identity, err := authService.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Principal{
			UserID:   identity.UserID,
			Username: identity.Username,
		}, nil
	}

	authHandler := NewAuthHandler(authService, logger)
	userHandler := NewUserHandler(userService, logger)
	movieHandler := NewMovieHandler(movieService, logger)

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/login", authHandler.Login)
		r.Post("/users", authHandler.Register)
	})

	// Owner-only account endpoints
	r.Route("/users/{username}", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator, logger))

		r.Get("/", userHandler.GetProfile)
		r.Put("/", userHandler.UpdateProfile)
		r.Delete("/", userHandler.DeleteAccount)

		r.Post("/movies/{movieId}", userHandler.AddFavorite)
		r.Delete("/movies/{movieId}", userHandler.RemoveFavorite)
	})

	// Catalog endpoints (auth required)
	r.Route("/movies", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator, logger))
		r.Use(middleware.CacheControl(cfg.CatalogMaxAge))

		r.Get("/", movieHandler.List)
		r.Get("/genre/{genreName}", movieHandler.GetGenre)
		r.Get("/directors/{directorName}", movieHandler.GetDirector)
		r.Get("/{title}", movieHandler.GetByTitle)
	})

	return r
}
