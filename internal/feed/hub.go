// Package feed fans out per-user budget item snapshots to live subscribers.
// Local stores notify the hub in-process; the sheets backend routes change
// notifications through the message broker instead, and a consumer loop feeds
// them back into the hub.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"budget/internal/amqp"
	"budget/internal/core"
)

// Loader provides the current snapshot for a user. Satisfied by every item store.
type Loader interface {
	Load(ctx context.Context, userID string) ([]core.BudgetItem, error)
}

// Subscription is a live feed of item snapshots for one user. C receives the
// current snapshot on subscribe and a fresh one after every change. Cancel is
// idempotent; after it returns C is closed.
type Subscription struct {
	C <-chan []core.BudgetItem

	ch     chan []core.BudgetItem
	once   sync.Once
	cancel func()
}

func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

type Hub struct {
	loader Loader

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub(loader Loader) *Hub {
	return &Hub{
		loader: loader,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a feed for userID and immediately delivers the current
// snapshot. The subscription is cancelled when ctx is done or Cancel is called.
func (h *Hub) Subscribe(ctx context.Context, userID string) *Subscription {
	sub := &Subscription{
		// Buffer of one: a slow subscriber holds at most the latest snapshot,
		// older pending ones are replaced.
		ch: make(chan []core.BudgetItem, 1),
	}
	sub.C = sub.ch
	sub.cancel = func() { h.remove(userID, sub) }

	snapshot := h.load(ctx, userID)

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	push(sub, snapshot)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()

	return sub
}

// Notify reloads userID's items and fans the snapshot out to all subscribers.
// A failed reload degrades to an empty snapshot rather than a stale one.
func (h *Hub) Notify(ctx context.Context, userID string) {
	snapshot := h.load(ctx, userID)

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[userID] {
		push(sub, snapshot)
	}
}

// ItemsChanged makes the hub usable directly as a store notifier.
func (h *Hub) ItemsChanged(ctx context.Context, userID string) {
	h.Notify(ctx, userID)
}

// Consume pumps broker change notifications into the hub until ctx is done.
func (h *Hub) Consume(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeItemsChanged(ctx, func(msg *amqp.ItemChangeMessage) error {
		h.Notify(ctx, msg.UserID)
		return nil
	})
}

func (h *Hub) load(ctx context.Context, userID string) []core.BudgetItem {
	items, err := h.loader.Load(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load feed snapshot, degrading to empty",
			"user_id", userID,
			"error", err)
		return []core.BudgetItem{}
	}
	if items == nil {
		items = []core.BudgetItem{}
	}
	return items
}

func (h *Hub) remove(userID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[userID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, userID)
	}
	close(sub.ch)
}

// push delivers snapshot without blocking: if an older snapshot is still
// pending it is dropped in favour of the new one. Callers hold h.mu, so the
// channel cannot be closed concurrently.
func push(sub *Subscription, snapshot []core.BudgetItem) {
	select {
	case sub.ch <- snapshot:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snapshot:
	default:
	}
}
