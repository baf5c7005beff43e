package core

import (
	"context"
	"time"
)

// User is an account allowed to sign in. PasswordHash is a bcrypt hash.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary returns the public view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Role: u.Role}
}

// UserService manages accounts and verifies credentials.
type UserService interface {
	// CreateUser hashes password and stores a new account.
	// A taken username fails with ErrDuplicateUsername.
	CreateUser(ctx context.Context, username, password, role string) (*User, error)

	// Authenticate returns the user when password matches, ErrInvalidCredential otherwise.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}
