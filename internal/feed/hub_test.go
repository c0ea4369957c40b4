package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget/internal/core"
)

type fakeLoader struct {
	items map[string][]core.BudgetItem
	err   error
}

func (f *fakeLoader) Load(_ context.Context, userID string) ([]core.BudgetItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[userID], nil
}

func item(id, desc string) core.BudgetItem {
	return core.BudgetItem{
		ID:          id,
		Type:        core.Expense,
		Description: desc,
		Amount:      core.Money{Cents: 100},
		Date:        core.DateTime{Time: time.Now().UTC()},
	}
}

func recv(t *testing.T, sub *Subscription) []core.BudgetItem {
	t.Helper()
	select {
	case snap, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	loader := &fakeLoader{items: map[string][]core.BudgetItem{
		"u1": {item("a", "Coffee")},
	}}
	hub := NewHub(loader)

	sub := hub.Subscribe(context.Background(), "u1")
	defer sub.Cancel()

	snap := recv(t, sub)
	if len(snap) != 1 || snap[0].ID != "a" {
		t.Fatalf("initial snapshot = %v, want the stored item", snap)
	}
}

func TestNotifyFansOutFreshSnapshot(t *testing.T) {
	loader := &fakeLoader{items: map[string][]core.BudgetItem{}}
	hub := NewHub(loader)

	sub := hub.Subscribe(context.Background(), "u1")
	defer sub.Cancel()
	recv(t, sub) // drain initial empty snapshot

	loader.items["u1"] = []core.BudgetItem{item("b", "Rent")}
	hub.Notify(context.Background(), "u1")

	snap := recv(t, sub)
	if len(snap) != 1 || snap[0].ID != "b" {
		t.Fatalf("snapshot after notify = %v, want the new item", snap)
	}
}

func TestNotifyOnlyReachesMatchingUser(t *testing.T) {
	loader := &fakeLoader{items: map[string][]core.BudgetItem{}}
	hub := NewHub(loader)

	sub1 := hub.Subscribe(context.Background(), "u1")
	defer sub1.Cancel()
	sub2 := hub.Subscribe(context.Background(), "u2")
	defer sub2.Cancel()
	recv(t, sub1)
	recv(t, sub2)

	hub.Notify(context.Background(), "u1")
	recv(t, sub1)

	select {
	case snap := <-sub2.C:
		t.Fatalf("u2 received snapshot %v for u1's change", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFailedReloadDegradesToEmpty(t *testing.T) {
	loader := &fakeLoader{items: map[string][]core.BudgetItem{
		"u1": {item("a", "Coffee")},
	}}
	hub := NewHub(loader)

	sub := hub.Subscribe(context.Background(), "u1")
	defer sub.Cancel()
	recv(t, sub)

	loader.err = errors.New("backend unavailable")
	hub.Notify(context.Background(), "u1")

	snap := recv(t, sub)
	if snap == nil || len(snap) != 0 {
		t.Fatalf("snapshot after failed reload = %v, want empty non-nil", snap)
	}
}

func TestSlowSubscriberGetsLatestSnapshot(t *testing.T) {
	loader := &fakeLoader{items: map[string][]core.BudgetItem{}}
	hub := NewHub(loader)

	sub := hub.Subscribe(context.Background(), "u1")
	defer sub.Cancel()
	// Don't drain: the initial snapshot sits in the buffer.

	loader.items["u1"] = []core.BudgetItem{item("x", "first")}
	hub.Notify(context.Background(), "u1")
	loader.items["u1"] = []core.BudgetItem{item("y", "second")}
	hub.Notify(context.Background(), "u1")

	snap := recv(t, sub)
	if len(snap) != 1 || snap[0].ID != "y" {
		t.Fatalf("slow subscriber got %v, want only the latest snapshot", snap)
	}
}

func TestCancelIsIdempotentAndClosesChannel(t *testing.T) {
	hub := NewHub(&fakeLoader{items: map[string][]core.BudgetItem{}})

	sub := hub.Subscribe(context.Background(), "u1")
	recv(t, sub)

	sub.Cancel()
	sub.Cancel()

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("expected closed channel after Cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Cancel")
	}

	// Notifying after cancel must not panic or deliver.
	hub.Notify(context.Background(), "u1")
}

func TestContextCancellationEndsSubscription(t *testing.T) {
	hub := NewHub(&fakeLoader{items: map[string][]core.BudgetItem{}})

	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, "u1")
	recv(t, sub)

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed after context cancellation")
		}
	}
}
