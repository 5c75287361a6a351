package activity

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryFeed_PublishAndSubscribe(t *testing.T) {
	feed := NewInMemoryFeed()

	var mu sync.Mutex
	var received []*Event
	unsub := feed.Subscribe(func(_ context.Context, ev *Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, ev)
		return nil
	})
	defer unsub()

	ev := &Event{Type: TypeTaskCreated, Subject: "ENG-001", Summary: "ENG-001 created"}
	if err := feed.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ev.ID == "" {
		t.Error("Publish did not assign an ID")
	}
	if ev.Timestamp.IsZero() {
		t.Error("Publish did not assign a timestamp")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Subject != "ENG-001" {
		t.Errorf("received = %v, want one ENG-001 event", received)
	}
}

func TestInMemoryFeed_Unsubscribe(t *testing.T) {
	feed := NewInMemoryFeed()

	count := 0
	unsub := feed.Subscribe(func(_ context.Context, _ *Event) error {
		count++
		return nil
	})

	if err := feed.Publish(context.Background(), &Event{Type: TypeTaskCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	unsub()
	if err := feed.Publish(context.Background(), &Event{Type: TypeTaskCreated}); err != nil {
		t.Fatalf("Publish after unsubscribe: %v", err)
	}

	if count != 1 {
		t.Errorf("handler invoked %d times, want 1", count)
	}
}

func TestInMemoryFeed_HandlerError(t *testing.T) {
	feed := NewInMemoryFeed()

	unsub := feed.Subscribe(func(_ context.Context, _ *Event) error {
		return fmt.Errorf("boom")
	})
	defer unsub()

	if err := feed.Publish(context.Background(), &Event{Type: TypeTaskCreated}); err == nil {
		t.Fatal("expected handler error to propagate")
	}
}

func TestInMemoryFeed_HistoryOrderAndLimit(t *testing.T) {
	feed := NewInMemoryFeed()

	for i := 0; i < 5; i++ {
		ev := &Event{Type: TypeStatusChanged, Subject: fmt.Sprintf("ENG-%03d", i+1)}
		if err := feed.Publish(context.Background(), ev); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	all, err := feed.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d events, want 5", len(all))
	}
	if all[0].Subject != "ENG-001" || all[4].Subject != "ENG-005" {
		t.Errorf("history not chronological: first %s, last %s", all[0].Subject, all[4].Subject)
	}

	last2, err := feed.History(2)
	if err != nil {
		t.Fatalf("History(2): %v", err)
	}
	if len(last2) != 2 || last2[0].Subject != "ENG-004" {
		t.Errorf("History(2) = %v, want the two most recent", last2)
	}
}

func TestInMemoryFeed_HistoryCap(t *testing.T) {
	feed := NewInMemoryFeed()
	feed.maxHist = 3

	for i := 0; i < 10; i++ {
		if err := feed.Publish(context.Background(), &Event{Type: TypeTaskUpdated}); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	all, err := feed.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d events, want cap of 3", len(all))
	}
}
