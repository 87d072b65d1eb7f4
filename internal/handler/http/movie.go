package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ilsegaertner/CUB-Film-data/internal/service"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
	"github.com/ilsegaertner/CUB-Film-data/pkg/httputil"
	"github.com/ilsegaertner/CUB-Film-data/pkg/pagination"
)

// MovieHandler handles the read-only catalog endpoints.
type MovieHandler struct {
	service *service.MovieService
	logger  *slog.Logger
}

// NewMovieHandler creates a new movie HTTP handler.
func NewMovieHandler(svc *service.MovieService, logger *slog.Logger) *MovieHandler {
	return &MovieHandler{service: svc, logger: logger}
}

// List handles GET /movies?genre=&director=&featured=&search=&page=&per_page=
func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.MovieQuery{
		Genre:    q.Get("genre"),
		Director: q.Get("director"),
		Search:   q.Get("search"),
	}
	if raw := q.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("featured must be true or false"), h.logger)
			return
		}
		query.Featured = &featured
	}

	page := pagination.FromRequest(r)
	movies, total, err := h.service.ListMovies(r.Context(), query, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(movies, total, page.Page, page.PerPage))
}

// GetByTitle handles GET /movies/{title}
func (h *MovieHandler) GetByTitle(w http.ResponseWriter, r *http.Request) {
	title, err := pathParam(r, "title")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	movie, err := h.service.GetMovieByTitle(r.Context(), title)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, movie)
}

// GetGenre handles GET /movies/genre/{genreName}
func (h *MovieHandler) GetGenre(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "genreName")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	genre, err := h.service.GetGenre(r.Context(), name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, genre)
}

// GetDirector handles GET /movies/directors/{directorName}
func (h *MovieHandler) GetDirector(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "directorName")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	director, err := h.service.GetDirector(r.Context(), name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, director)
}
