// Package sprint defines the sprint model and the guard that keeps at
// most one sprint active at a time.
package sprint

import "time"

// Status is the lifecycle state of a sprint.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed" // terminal
)

// Sprint is a time-boxed iteration tasks can be assigned to.
type Sprint struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Goal      string    `json:"goal"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sprints and enforces the single-active invariant on
// every transition.
type Store interface {
	// Create inserts a new planned sprint. Rejected if the name is
	// taken, dates are missing or inverted, or a sprint is active.
	Create(sp *Sprint) (int64, error)

	// Get retrieves a sprint by ID.
	Get(id int64) (*Sprint, error)

	// List returns all sprints, newest first.
	List() ([]*Sprint, error)

	// Active returns the currently active sprint, or ErrNotFound.
	Active() (*Sprint, error)

	// Activate flips a planned sprint to active. Fails with ErrConflict
	// if another sprint is active, including when a concurrent
	// activation wins the race.
	Activate(id int64) error

	// Complete marks a sprint completed. Terminal; no guard needed.
	Complete(id int64) error
}
