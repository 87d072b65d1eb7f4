package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	"github.com/ilsegaertner/CUB-Film-data/internal/service"
	"github.com/ilsegaertner/CUB-Film-data/pkg/httputil"
	"github.com/ilsegaertner/CUB-Film-data/pkg/validator"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for creating an account.
type RegisterRequest struct {
	Username string `json:"Username" validate:"required,min=5,alphanum"`
	Password string `json:"Password" validate:"required"`
	Email    string `json:"Email" validate:"required,email"`
	Birthday string `json:"Birthday" validate:"omitempty,datetime=2006-01-02"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"Username" validate:"required"`
	Password string `json:"Password" validate:"required"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
}

// --- Handlers ---

// Register handles POST /users
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	birthday, err := parseOptionalDate(req.Birthday)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Birthday: birthday,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, user)
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, LoginResponse{
		User:      res.User,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
