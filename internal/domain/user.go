package domain

import (
	"time"
)

// User is an identity record. IDs are opaque strings issued once at sign-up
// and never reused; email doubles as the login name.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
