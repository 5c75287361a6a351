package project

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sprintline/sprintline/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	code             TEXT NOT NULL UNIQUE,
	name             TEXT NOT NULL,
	next_task_number INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL
);
`

// SQLiteStore persists projects in the shared SQLite database.
// The next_task_number column is the atomic per-project counter the
// task store increments when allocating task keys.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the projects table exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create projects schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create persists a new project and sets its ID and CreatedAt.
func (s *SQLiteStore) Create(p *Project) (int64, error) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if p.Code == "" {
		return 0, fmt.Errorf("%w: project code is required", store.ErrValidation)
	}
	if p.Name == "" {
		return 0, fmt.Errorf("%w: project name is required", store.ErrValidation)
	}
	p.CreatedAt = time.Now().UTC()

	res, err := s.db.Exec(
		`INSERT INTO projects (code, name, next_task_number, created_at) VALUES (?,?,0,?)`,
		p.Code, p.Name, p.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: project code %s already exists", store.ErrValidation, p.Code)
		}
		return 0, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

// Get retrieves a project by ID.
func (s *SQLiteStore) Get(id int64) (*Project, error) {
	return s.scanOne(s.db.QueryRow(
		`SELECT id, code, name, created_at FROM projects WHERE id = ?`, id))
}

// GetByCode retrieves a project by its code.
func (s *SQLiteStore) GetByCode(code string) (*Project, error) {
	return s.scanOne(s.db.QueryRow(
		`SELECT id, code, name, created_at FROM projects WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code))))
}

// List returns all projects ordered by code.
func (s *SQLiteStore) List() ([]*Project, error) {
	rows, err := s.db.Query(`SELECT id, code, name, created_at FROM projects ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStore) scanOne(row *sql.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: project", store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
