// Package task defines the task model, the kanban status catalog, and
// the SLA ledger that accrues in-progress time across status changes.
package task

import "time"

// Status catalog entry names. The catalog is seeded reference data;
// the lifecycle logic keys off StatusInProgress.
const (
	StatusBacklog    = "backlog"
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

// Priority orders tasks on the board.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is a catalog entry tasks reference by ID.
type Status struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	SortOrder   int    `json:"sort_order"`
}

// Task is a unit of work within a project.
type Task struct {
	ID          int64      `json:"id"`
	Key         string     `json:"task_key"` // immutable, e.g. "ENG-007"
	ProjectID   int64      `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	StoryPoints int        `json:"story_points"`
	Tags        []string   `json:"tags,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	SprintID    *int64     `json:"sprint_id,omitempty"`
	StatusID    int64      `json:"status_id"`
	StatusName  string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SLA is the read-side view of a task's accrued in-progress time.
// AccumulatedMinutes covers closed intervals only; TotalMinutes adds
// the currently open interval when the task is still in progress.
type SLA struct {
	ID                 int64      `json:"id"`
	TaskID             int64      `json:"task_id"`
	StartTime          *time.Time `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	AccumulatedMinutes int64      `json:"accumulated_time"`
	TotalMinutes       int64      `json:"total_time"`
	Status             string     `json:"status"` // "active" or "inactive"
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	StatusName string
	ProjectID  int64
	SprintID   *int64
	AssigneeID string
	Limit      int
	Offset     int
}

// Store persists tasks, the status catalog, and the SLA ledger.
type Store interface {
	// Create persists a new task, allocating its key from the owning
	// project's counter. Status is forced to backlog.
	Create(t *Task) (int64, error)

	// Get retrieves a task by numeric ID.
	Get(id int64) (*Task, error)

	// GetByKey retrieves a task by its human-facing key.
	GetByKey(key string) (*Task, error)

	// Update saves changes to a task's mutable fields. The key, status,
	// and project reference are not touched; status changes go through
	// ChangeStatus.
	Update(t *Task) error

	// List returns tasks matching the given filter.
	List(f Filter) ([]*Task, error)

	// ChangeStatus moves a task to a new catalog status and applies the
	// SLA ledger side effects in the same transaction.
	ChangeStatus(taskID, newStatusID int64) error

	// CurrentSLA returns the task's SLA view, synthesizing an inactive
	// ledger record if the task has none yet.
	CurrentSLA(taskID int64) (*SLA, error)

	// Statuses returns the status catalog in board order.
	Statuses() ([]*Status, error)

	// StatusCounts returns the number of tasks per status name.
	StatusCounts() (map[string]int, error)

	// TotalAccruedMinutes sums closed-interval minutes across all tasks.
	TotalAccruedMinutes() (int64, error)
}
