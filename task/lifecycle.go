package task

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sprintline/sprintline/store"
)

// ChangeStatus moves a task to a new catalog status and applies the
// SLA ledger side effects in the same transaction. Entering
// in_progress opens a ledger interval (unless one is already open);
// leaving in_progress closes the open interval, folding its elapsed
// wall-clock minutes into the accumulated total. Either every write
// commits or none do.
func (s *SQLiteStore) ChangeStatus(taskID, newStatusID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin change status: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var oldName string
	err = tx.QueryRow(
		`SELECT s.name FROM tasks t JOIN statuses s ON s.id = t.status_id WHERE t.id = ?`,
		taskID,
	).Scan(&oldName)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: task %d", store.ErrNotFound, taskID)
	}
	if err != nil {
		return fmt.Errorf("resolve current status: %w", err)
	}

	var newName string
	err = tx.QueryRow(`SELECT name FROM statuses WHERE id = ?`, newStatusID).Scan(&newName)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: status %d", store.ErrNotFound, newStatusID)
	}
	if err != nil {
		return fmt.Errorf("resolve new status: %w", err)
	}

	now := s.now().UTC()
	switch {
	case newName == StatusInProgress:
		if err := s.openInterval(tx, taskID, now); err != nil {
			return err
		}
	case oldName == StatusInProgress:
		if err := s.closeInterval(tx, taskID, now); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`UPDATE tasks SET status_id = ?, updated_at = ? WHERE id = ?`,
		newStatusID, now, taskID,
	); err != nil {
		return fmt.Errorf("write task status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit change status: %w", err)
	}
	return nil
}

// openInterval appends a new active ledger row carrying forward the
// previous row's accumulated minutes. If the latest row is already
// active this is a no-op: re-entering in_progress must not open a
// second interval or reset the running start time.
func (s *SQLiteStore) openInterval(tx *sql.Tx, taskID int64, now time.Time) error {
	var isActive bool
	var accumulated int64
	err := tx.QueryRow(
		`SELECT is_active, accumulated_minutes FROM task_sla WHERE task_id = ? ORDER BY id DESC LIMIT 1`,
		taskID,
	).Scan(&isActive, &accumulated)
	switch {
	case err == sql.ErrNoRows:
		accumulated = 0
	case err != nil:
		return fmt.Errorf("read latest ledger row: %w", err)
	case isActive:
		return nil
	}

	if _, err := tx.Exec(
		`INSERT INTO task_sla (task_id, start_time, accumulated_minutes, is_active) VALUES (?,?,?,1)`,
		taskID, now, accumulated,
	); err != nil {
		return fmt.Errorf("open sla interval: %w", err)
	}
	return nil
}

// closeInterval closes the task's active ledger row, adding the
// interval's elapsed minutes to the accumulated total. If no row is
// active this is a no-op.
func (s *SQLiteStore) closeInterval(tx *sql.Tx, taskID int64, now time.Time) error {
	var id int64
	var start time.Time
	err := tx.QueryRow(
		`SELECT id, start_time FROM task_sla WHERE task_id = ? AND is_active = 1`,
		taskID,
	).Scan(&id, &start)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read active ledger row: %w", err)
	}

	elapsed := int64(now.Sub(start) / time.Minute)
	if elapsed < 0 {
		elapsed = 0
	}
	if _, err := tx.Exec(
		`UPDATE task_sla SET end_time = ?, accumulated_minutes = accumulated_minutes + ?, is_active = 0 WHERE id = ?`,
		now, elapsed, id,
	); err != nil {
		return fmt.Errorf("close sla interval: %w", err)
	}
	return nil
}

// CurrentSLA returns the task's SLA view. A task with no ledger
// history gets a fresh inactive row persisted on first read. The
// derived status re-checks the task's live status: the view reports
// "active" only when the ledger row is open AND the task is still in
// in_progress.
func (s *SQLiteStore) CurrentSLA(taskID int64) (*SLA, error) {
	t, err := s.Get(taskID)
	if err != nil {
		return nil, err
	}

	view := &SLA{TaskID: taskID, Status: "inactive"}
	var start, end sql.NullTime
	var isActive bool
	err = s.db.QueryRow(
		`SELECT id, start_time, end_time, accumulated_minutes, is_active
		 FROM task_sla WHERE task_id = ? ORDER BY id DESC LIMIT 1`,
		taskID,
	).Scan(&view.ID, &start, &end, &view.AccumulatedMinutes, &isActive)
	if err == sql.ErrNoRows {
		res, err := s.db.Exec(
			`INSERT INTO task_sla (task_id, accumulated_minutes, is_active) VALUES (?,0,0)`, taskID)
		if err != nil {
			return nil, fmt.Errorf("synthesize ledger row: %w", err)
		}
		view.ID, _ = res.LastInsertId()
		return view, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest ledger row: %w", err)
	}

	if start.Valid {
		view.StartTime = &start.Time
	}
	if end.Valid {
		view.EndTime = &end.Time
	}
	view.TotalMinutes = view.AccumulatedMinutes
	if isActive && t.StatusName == StatusInProgress && start.Valid {
		elapsed := int64(s.now().UTC().Sub(start.Time) / time.Minute)
		if elapsed > 0 {
			view.TotalMinutes += elapsed
		}
		view.Status = "active"
	}
	return view, nil
}
