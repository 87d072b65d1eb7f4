package domain

import (
	"slices"
	"time"
)

// User is a registered account. Username is unique but mutable; ID never changes.
type User struct {
	ID             string    `json:"ID"`
	Username       string    `json:"Username"`
	PasswordHash   string    `json:"-"`
	Email          string    `json:"Email"`
	Birthday       *Date     `json:"Birthday,omitempty"`
	FavoriteMovies []string  `json:"FavoriteMovies"`
	Avatar         string    `json:"Avatar,omitempty"`
	CreatedAt      time.Time `json:"CreatedAt"`
	UpdatedAt      time.Time `json:"UpdatedAt"`
}

// HasFavorite reports whether movieID is already in the user's favorites.
func (u *User) HasFavorite(movieID string) bool {
	return slices.Contains(u.FavoriteMovies, movieID)
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID   string
	Username string
}
