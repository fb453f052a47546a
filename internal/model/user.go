package model

import "time"

// User represents a registered account held by the credential store.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Favorites    []FavoriteRef
	CreatedAt    time.Time
}

// FavoriteRef is a provider item a user has marked for quick retrieval.
type FavoriteRef struct {
	ID   int       `json:"id"`
	Kind MediaKind `json:"type"`
}

// CredentialsRequest carries the arguments of register and login.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// FavoriteRequest carries the arguments of addFavorite.
type FavoriteRequest struct {
	ID   int    `json:"id" validate:"required,gt=0"`
	Type string `json:"type" validate:"required"`
}

// RemoveFavoriteRequest carries the arguments of removeFavorite.
type RemoveFavoriteRequest struct {
	ID int `json:"id" validate:"required,gt=0"`
}

// MeResponse is the result of the me query. Username is nil for anonymous requests.
type MeResponse struct {
	ID       *string `json:"id"`
	Username *string `json:"username"`
}
