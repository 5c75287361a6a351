// Package project defines the project model and persistence. Projects
// own the task-key counter that makes keys like ENG-007 unique.
package project

import "time"

// Project groups tasks under a short code used in task keys.
type Project struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"` // upper-case, unique, e.g. "ENG"
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves projects.
type Store interface {
	// Create persists a new project and returns its assigned ID.
	// The code is normalized to upper case and must be unique.
	Create(p *Project) (int64, error)

	// Get retrieves a project by ID.
	Get(id int64) (*Project, error)

	// GetByCode retrieves a project by its code.
	GetByCode(code string) (*Project, error)

	// List returns all projects ordered by code.
	List() ([]*Project, error)
}
