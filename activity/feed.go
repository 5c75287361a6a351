package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryFeed is a thread-safe in-process activity feed.
type InMemoryFeed struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	history  []*Event
	maxHist  int
	nextID   int
}

// NewInMemoryFeed creates an InMemoryFeed with a 1000-event history cap.
func NewInMemoryFeed() *InMemoryFeed {
	return &InMemoryFeed{
		handlers: make(map[int]Handler),
		maxHist:  1000,
	}
}

// Publish appends the event to history and invokes all subscribers.
func (f *InMemoryFeed) Publish(ctx context.Context, ev *Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	f.mu.Lock()
	f.history = append(f.history, ev)
	if len(f.history) > f.maxHist {
		f.history = f.history[len(f.history)-f.maxHist:]
	}
	// Collect handlers to invoke outside the lock
	targets := make([]Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		targets = append(targets, h)
	}
	f.mu.Unlock()

	var errs []error
	for _, h := range targets {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish: %d handler error(s): %v", len(errs), errs[0])
	}
	return nil
}

// Subscribe registers a handler for all events. The returned function
// unsubscribes it.
func (f *InMemoryFeed) Subscribe(handler Handler) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.handlers[id] = handler

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

// History returns the most recent limit events in chronological order.
func (f *InMemoryFeed) History(limit int) ([]*Event, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.history)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]*Event, n)
	copy(result, f.history[len(f.history)-n:])
	return result, nil
}
