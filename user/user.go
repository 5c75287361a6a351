// Package user defines user accounts and credential checks for API
// authentication.
package user

import "time"

// User is an account that can log in and be assigned tasks.
type User struct {
	ID           string    `json:"id"` // uuid
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists users and verifies credentials.
type Store interface {
	// Create persists a new user, hashing the given password with
	// bcrypt. The username must be unique.
	Create(u *User, password string) error

	// Get retrieves a user by ID.
	Get(id string) (*User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(username string) (*User, error)

	// List returns all users ordered by username.
	List() ([]*User, error)

	// Authenticate checks a username/password pair against the stored
	// bcrypt hash. Both unknown-user and bad-password return the same
	// error.
	Authenticate(username, password string) (*User, error)
}
