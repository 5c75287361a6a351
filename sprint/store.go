package sprint

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sprintline/sprintline/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sprints (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	start_date DATETIME NOT NULL,
	end_date   DATETIME NOT NULL,
	goal       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'planned',
	created_at DATETIME NOT NULL
);
`

// SQLiteStore persists sprints in the shared SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the sprints table exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create sprints schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create inserts a new planned sprint after validating the request and
// the single-active invariant. Validation and insert share one
// transaction so the active-sprint check cannot go stale mid-create.
func (s *SQLiteStore) Create(sp *Sprint) (int64, error) {
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Name == "" {
		return 0, fmt.Errorf("%w: sprint name is required", store.ErrValidation)
	}
	if sp.StartDate.IsZero() || sp.EndDate.IsZero() {
		return 0, fmt.Errorf("%w: start_date and end_date are required", store.ErrValidation)
	}
	if sp.EndDate.Before(sp.StartDate) {
		return 0, fmt.Errorf("%w: end_date is before start_date", store.ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin create sprint: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var active int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM sprints WHERE status = ?`, StatusActive,
	).Scan(&active); err != nil {
		return 0, fmt.Errorf("check active sprint: %w", err)
	}
	if active > 0 {
		return 0, fmt.Errorf("%w: active sprint already exists", store.ErrValidation)
	}

	sp.Status = StatusPlanned
	sp.CreatedAt = time.Now().UTC()
	res, err := tx.Exec(
		`INSERT INTO sprints (name, start_date, end_date, goal, status, created_at) VALUES (?,?,?,?,?,?)`,
		sp.Name, sp.StartDate, sp.EndDate, sp.Goal, string(sp.Status), sp.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: sprint name %q already exists", store.ErrValidation, sp.Name)
		}
		return 0, fmt.Errorf("insert sprint: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create sprint: %w", err)
	}
	sp.ID = id
	return id, nil
}

// Get retrieves a sprint by ID.
func (s *SQLiteStore) Get(id int64) (*Sprint, error) {
	sp, err := scanSprint(s.db.QueryRow(
		`SELECT id, name, start_date, end_date, goal, status, created_at FROM sprints WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: sprint %d", store.ErrNotFound, id)
	}
	return sp, err
}

// List returns all sprints, newest first.
func (s *SQLiteStore) List() ([]*Sprint, error) {
	rows, err := s.db.Query(
		`SELECT id, name, start_date, end_date, goal, status, created_at FROM sprints ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	defer rows.Close()

	var sprints []*Sprint
	for rows.Next() {
		sp, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, sp)
	}
	return sprints, rows.Err()
}

// Active returns the currently active sprint, or ErrNotFound.
func (s *SQLiteStore) Active() (*Sprint, error) {
	sp, err := scanSprint(s.db.QueryRow(
		`SELECT id, name, start_date, end_date, goal, status, created_at FROM sprints WHERE status = ?`,
		StatusActive))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no active sprint", store.ErrNotFound)
	}
	return sp, err
}

// Activate flips a planned sprint to active. The guard and the write
// are one conditional statement, so two concurrent activations cannot
// both pass the check: the loser sees zero rows affected.
func (s *SQLiteStore) Activate(id int64) error {
	res, err := s.db.Exec(`
		UPDATE sprints SET status = ?
		WHERE id = ? AND status = ?
		AND NOT EXISTS (SELECT 1 FROM sprints WHERE status = ?)`,
		StatusActive, id, StatusPlanned, StatusActive,
	)
	if err != nil {
		return fmt.Errorf("activate sprint: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	// Zero rows: figure out which precondition failed.
	sp, err := s.Get(id)
	if err != nil {
		return err
	}
	switch sp.Status {
	case StatusActive:
		return nil // already active; idempotent
	case StatusCompleted:
		return fmt.Errorf("%w: sprint %d is completed", store.ErrValidation, id)
	default:
		return fmt.Errorf("%w: another sprint is active", store.ErrConflict)
	}
}

// Complete marks a sprint completed.
func (s *SQLiteStore) Complete(id int64) error {
	res, err := s.db.Exec(
		`UPDATE sprints SET status = ? WHERE id = ?`, StatusCompleted, id)
	if err != nil {
		return fmt.Errorf("complete sprint: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: sprint %d", store.ErrNotFound, id)
	}
	return nil
}

func scanSprint(row interface{ Scan(...any) error }) (*Sprint, error) {
	var sp Sprint
	var status string
	err := row.Scan(&sp.ID, &sp.Name, &sp.StartDate, &sp.EndDate, &sp.Goal, &status, &sp.CreatedAt)
	if err != nil {
		return nil, err
	}
	sp.Status = Status(status)
	return &sp, nil
}
