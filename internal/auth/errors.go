package auth

import (
	"net/http"

	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
)

// Wire message shared by both login failure modes so callers cannot tell
// an unknown username from a wrong password.
const msgBadCredentials = "incorrect username or password"

// Authentication outcomes. Each value is distinct for errors.Is, and each
// already carries the status it is rendered with.
var (
	ErrUserNotFound = &apperrors.AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: msgBadCredentials,
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
	ErrInvalidCredential = &apperrors.AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: msgBadCredentials,
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
	ErrInvalidToken = apperrors.Unauthorized("invalid token")
	ErrTokenExpired = apperrors.Unauthorized("token expired")

	ErrIdentityNotFound = &apperrors.AppError{
		Code:    "NOT_FOUND",
		Message: "identity not found",
		Status:  http.StatusNotFound,
		Err:     apperrors.ErrNotFound,
	}
	ErrPermissionDenied = apperrors.Forbidden("permission denied")
)
