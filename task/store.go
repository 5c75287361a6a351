package task

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sprintline/sprintline/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS statuses (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	color        TEXT NOT NULL,
	sort_order   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	task_key     TEXT NOT NULL UNIQUE,
	project_id   INTEGER NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	priority     TEXT NOT NULL DEFAULT 'medium',
	story_points INTEGER NOT NULL DEFAULT 0,
	tags         TEXT NOT NULL DEFAULT '[]',
	assignee_id  TEXT NOT NULL DEFAULT '',
	sprint_id    INTEGER,
	status_id    INTEGER NOT NULL,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS task_sla (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id             INTEGER NOT NULL,
	start_time          DATETIME,
	end_time            DATETIME,
	accumulated_minutes INTEGER NOT NULL DEFAULT 0,
	is_active           INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status_id);
CREATE INDEX IF NOT EXISTS idx_tasks_sprint ON tasks(sprint_id);
CREATE INDEX IF NOT EXISTS idx_task_sla_task ON task_sla(task_id);
`

// seedStatuses is the fixed board catalog, in column order.
var seedStatuses = []struct {
	name  string
	color string
}{
	{StatusBacklog, "#94a3b8"},
	{StatusTodo, "#60a5fa"},
	{StatusInProgress, "#fbbf24"},
	{StatusReview, "#a78bfa"},
	{StatusDone, "#34d399"},
}

// SQLiteStore persists tasks, the status catalog, and the SLA ledger
// in the shared SQLite database. All writes run on a single connection
// (see store.Open), so each transaction observes a serialized view —
// that is what makes "latest ledger row" well-defined.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time // overridable in tests
}

// NewSQLiteStore ensures the task tables exist and the status catalog
// is seeded.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create task schema: %w", err)
	}
	title := cases.Title(language.English)
	for i, st := range seedStatuses {
		display := title.String(strings.ReplaceAll(st.name, "_", " "))
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO statuses (name, display_name, color, sort_order) VALUES (?,?,?,?)`,
			st.name, display, st.color, i,
		); err != nil {
			return nil, fmt.Errorf("seed status %s: %w", st.name, err)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Create persists a new task with a freshly allocated key and status
// backlog. Key allocation increments the owning project's counter
// inside the insert transaction; a duplicate-key conflict (which the
// counter should make impossible) is retried a bounded number of times.
func (s *SQLiteStore) Create(t *Task) (int64, error) {
	if t.ProjectID == 0 {
		return 0, fmt.Errorf("%w: project_id is required", store.ErrValidation)
	}
	if strings.TrimSpace(t.Title) == "" {
		return 0, fmt.Errorf("%w: title is required", store.ErrValidation)
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		id, err := s.create(t)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return 0, err
		}
		lastErr = err
	}
	return 0, lastErr
}

func (s *SQLiteStore) create(t *Task) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin create task: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(
		`UPDATE projects SET next_task_number = next_task_number + 1 WHERE id = ?`, t.ProjectID)
	if err != nil {
		return 0, fmt.Errorf("allocate task number: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, fmt.Errorf("%w: project %d", store.ErrNotFound, t.ProjectID)
	}

	var code string
	var num int
	if err := tx.QueryRow(
		`SELECT code, next_task_number FROM projects WHERE id = ?`, t.ProjectID,
	).Scan(&code, &num); err != nil {
		return 0, fmt.Errorf("read task number: %w", err)
	}

	var backlogID int64
	if err := tx.QueryRow(
		`SELECT id FROM statuses WHERE name = ?`, StatusBacklog,
	).Scan(&backlogID); err != nil {
		return 0, fmt.Errorf("resolve backlog status: %w", err)
	}

	t.Key = fmt.Sprintf("%s-%03d", code, num)
	t.StatusID = backlogID
	t.StatusName = StatusBacklog
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	tags, _ := json.Marshal(t.Tags)
	insert, err := tx.Exec(`
		INSERT INTO tasks
			(task_key, project_id, title, description, priority, story_points,
			 tags, assignee_id, sprint_id, status_id, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.Key, t.ProjectID, t.Title, t.Description, string(t.Priority), t.StoryPoints,
		string(tags), t.AssigneeID, nullInt(t.SprintID), t.StatusID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: task key %s already allocated", store.ErrConflict, t.Key)
		}
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := insert.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create task: %w", err)
	}
	t.ID = id
	return id, nil
}

const selectTask = `
	SELECT t.id, t.task_key, t.project_id, t.title, t.description, t.priority,
	       t.story_points, t.tags, t.assignee_id, t.sprint_id, t.status_id,
	       s.name, t.created_at, t.updated_at
	FROM tasks t JOIN statuses s ON s.id = t.status_id`

// Get retrieves a task by numeric ID.
func (s *SQLiteStore) Get(id int64) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(selectTask+` WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: task %d", store.ErrNotFound, id)
	}
	return t, err
}

// GetByKey retrieves a task by its human-facing key.
func (s *SQLiteStore) GetByKey(key string) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(selectTask+` WHERE t.task_key = ?`, key))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: task %s", store.ErrNotFound, key)
	}
	return t, err
}

// Update saves a task's mutable fields, bumping UpdatedAt. The key,
// project, and status columns are deliberately not part of the update.
func (s *SQLiteStore) Update(t *Task) error {
	t.UpdatedAt = s.now().UTC()
	tags, _ := json.Marshal(t.Tags)

	res, err := s.db.Exec(`
		UPDATE tasks SET
			title=?, description=?, priority=?, story_points=?,
			tags=?, assignee_id=?, sprint_id=?, updated_at=?
		WHERE id=?`,
		t.Title, t.Description, string(t.Priority), t.StoryPoints,
		string(tags), t.AssigneeID, nullInt(t.SprintID), t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: task %d", store.ErrNotFound, t.ID)
	}
	return nil
}

// List returns tasks matching the filter, in board order.
func (s *SQLiteStore) List(f Filter) ([]*Task, error) {
	q := strings.Builder{}
	q.WriteString(selectTask)
	q.WriteString(` WHERE 1=1`)
	args := []any{}

	if f.StatusName != "" {
		q.WriteString(" AND s.name=?")
		args = append(args, f.StatusName)
	}
	if f.ProjectID != 0 {
		q.WriteString(" AND t.project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.SprintID != nil {
		q.WriteString(" AND t.sprint_id=?")
		args = append(args, *f.SprintID)
	}
	if f.AssigneeID != "" {
		q.WriteString(" AND t.assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	q.WriteString(" ORDER BY s.sort_order ASC, t.id ASC")
	if f.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", f.Limit))
		if f.Offset > 0 {
			q.WriteString(fmt.Sprintf(" OFFSET %d", f.Offset))
		}
	}

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Statuses returns the status catalog in board order.
func (s *SQLiteStore) Statuses() ([]*Status, error) {
	rows, err := s.db.Query(
		`SELECT id, name, display_name, color, sort_order FROM statuses ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*Status
	for rows.Next() {
		var st Status
		if err := rows.Scan(&st.ID, &st.Name, &st.DisplayName, &st.Color, &st.SortOrder); err != nil {
			return nil, err
		}
		statuses = append(statuses, &st)
	}
	return statuses, rows.Err()
}

// StatusCounts returns the number of tasks per status name.
func (s *SQLiteStore) StatusCounts() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT s.name, COUNT(t.id)
		FROM statuses s LEFT JOIN tasks t ON t.status_id = s.id
		GROUP BY s.id ORDER BY s.sort_order`)
	if err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// TotalAccruedMinutes sums closed-interval minutes across all tasks.
// Open intervals are excluded; they have not been folded in yet.
func (s *SQLiteStore) TotalAccruedMinutes() (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT SUM(accumulated_minutes) FROM task_sla WHERE is_active = 0`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum accrued minutes: %w", err)
	}
	return total.Int64, nil
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*Task, error) {
	var t Task
	var priority, tagsJSON string
	var sprintID sql.NullInt64

	err := sc.Scan(
		&t.ID, &t.Key, &t.ProjectID, &t.Title, &t.Description, &priority,
		&t.StoryPoints, &tagsJSON, &t.AssigneeID, &sprintID, &t.StatusID,
		&t.StatusName, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = Priority(priority)
	_ = json.Unmarshal([]byte(tagsJSON), &t.Tags)
	if sprintID.Valid {
		t.SprintID = &sprintID.Int64
	}
	return &t, nil
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
