package user

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sprintline/sprintline/store"
)

// ErrBadCredentials is returned by Authenticate for an unknown user or
// a wrong password. Deliberately indistinguishable.
var ErrBadCredentials = errors.New("invalid credentials")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);
`

// SQLiteStore persists users in the shared SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the users table exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create users schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create persists a new user with a bcrypt-hashed password.
func (s *SQLiteStore) Create(u *User, password string) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return fmt.Errorf("%w: username is required", store.ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.ID = uuid.NewString()
	u.PasswordHash = string(hash)
	u.CreatedAt = time.Now().UTC()

	_, err = s.db.Exec(
		`INSERT INTO users (id, username, display_name, password_hash, created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Username, u.DisplayName, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: username %q already exists", store.ErrValidation, u.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (s *SQLiteStore) Get(id string) (*User, error) {
	return s.scanOne(s.db.QueryRow(
		`SELECT id, username, display_name, password_hash, created_at FROM users WHERE id = ?`, id))
}

// GetByUsername retrieves a user by username.
func (s *SQLiteStore) GetByUsername(username string) (*User, error) {
	return s.scanOne(s.db.QueryRow(
		`SELECT id, username, display_name, password_hash, created_at FROM users WHERE username = ?`,
		username))
}

// List returns all users ordered by username.
func (s *SQLiteStore) List() ([]*User, error) {
	rows, err := s.db.Query(
		`SELECT id, username, display_name, password_hash, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Authenticate checks a username/password pair.
func (s *SQLiteStore) Authenticate(username, password string) (*User, error) {
	u, err := s.GetByUsername(username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

func (s *SQLiteStore) scanOne(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user", store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
