// Package activity provides the in-process activity feed. Every
// mutation publishes an event; the server pushes them to SSE clients
// and serves recent history to the dashboard.
package activity

import (
	"context"
	"time"
)

// EventType identifies the kind of activity event.
type EventType string

const (
	TypeTaskCreated     EventType = "task.created"
	TypeTaskUpdated     EventType = "task.updated"
	TypeStatusChanged   EventType = "task.status_changed"
	TypeSprintCreated   EventType = "sprint.created"
	TypeSprintActivated EventType = "sprint.activated"
	TypeSprintCompleted EventType = "sprint.completed"
	TypeProjectCreated  EventType = "project.created"
	TypeUserCreated     EventType = "user.created"
)

// Event is one entry in the activity feed.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Actor     string            `json:"actor,omitempty"` // username from the auth context
	Subject   string            `json:"subject"`         // task key, sprint name, etc.
	Summary   string            `json:"summary"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Handler processes published events.
type Handler func(ctx context.Context, ev *Event) error

// Feed is the activity backbone. Mutating handlers publish events;
// the SSE layer subscribes to push them out.
type Feed interface {
	// Publish appends an event to the feed and fans it out to
	// subscribers. ID and Timestamp are filled in if empty.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe registers a handler for all published events.
	// Returns an unsubscribe function.
	Subscribe(handler Handler) (unsubscribe func())

	// History returns the most recent limit events, oldest first.
	History(limit int) ([]*Event, error)
}
