package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ilsegaertner/CUB-Film-data/internal/auth"
	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/service"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
	"github.com/ilsegaertner/CUB-Film-data/pkg/httputil"
	"github.com/ilsegaertner/CUB-Film-data/pkg/validator"
)

// UserHandler handles the owner-only /users/{username} endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// UpdateUserRequest is the JSON request body for a profile update. Omitted
// fields keep their current value.
type UpdateUserRequest struct {
	Username *string `json:"Username" validate:"omitempty,min=5,alphanum"`
	Password *string `json:"Password" validate:"omitempty,min=1"`
	Email    *string `json:"Email" validate:"omitempty,email"`
	Birthday *string `json:"Birthday" validate:"omitempty,datetime=2006-01-02"`
	Avatar   *string `json:"Avatar" validate:"omitempty,base64"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

var errNoIdentity = apperrors.Unauthorized("user not authenticated")

// GetProfile handles GET /users/{username}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	requester, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errNoIdentity, h.logger)
		return
	}

	user, err := h.service.GetProfile(r.Context(), requester, chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /users/{username}
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	requester, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errNoIdentity, h.logger)
		return
	}

	var req UpdateUserRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	input := service.UpdateProfileInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Avatar:   req.Avatar,
	}
	if req.Birthday != nil {
		birthday, err := parseOptionalDate(*req.Birthday)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		input.Birthday = birthday
	}

	user, err := h.service.UpdateProfile(r.Context(), requester, chi.URLParam(r, "username"), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, user)
}

// DeleteAccount handles DELETE /users/{username}
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	requester, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errNoIdentity, h.logger)
		return
	}

	username := chi.URLParam(r, "username")
	if err := h.service.DeleteAccount(r.Context(), requester, username); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("%s was deleted.", username)})
}

// AddFavorite handles POST /users/{username}/movies/{movieId}
func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	requester, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errNoIdentity, h.logger)
		return
	}

	movieID, err := pathParam(r, "movieId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.AddFavorite(r.Context(), requester, chi.URLParam(r, "username"), movieID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, user)
}

// RemoveFavorite handles DELETE /users/{username}/movies/{movieId}
func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	requester, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errNoIdentity, h.logger)
		return
	}

	movieID, err := pathParam(r, "movieId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.RemoveFavorite(r.Context(), requester, chi.URLParam(r, "username"), movieID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, user)
}

func parseOptionalDate(s string) (*domain.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return nil, apperrors.Unprocessable("Birthday must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}
