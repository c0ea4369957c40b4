package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/store"
)

func TestAddAssignsIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	item, err := s.Add(ctx, "u1", core.ItemDraft{
		Type: core.Expense, Description: "Rent", Amount: core.Money{Cents: 30000}, Category: "Bills",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected assigned id")
	}
	if item.Date.IsZero() {
		t.Fatal("expected assigned timestamp")
	}

	items, err := s.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("expected the stored item back, got %+v", items)
	}
}

func TestAddRejectsInvalidDraft(t *testing.T) {
	s := New()
	_, err := s.Add(context.Background(), "u1", core.ItemDraft{Type: core.Expense, Description: "", Amount: core.Money{Cents: 100}})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	items, _ := s.Load(context.Background(), "u1")
	if len(items) != 0 {
		t.Fatal("rejected draft must not be stored")
	}
}

func TestLoadOrderedByDateDescending(t *testing.T) {
	s := New()
	ctx := context.Background()
	old := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	mustAdd(t, s, "u1", core.ItemDraft{Type: core.Income, Description: "old", Amount: core.Money{Cents: 1}, Date: old})
	mustAdd(t, s, "u1", core.ItemDraft{Type: core.Income, Description: "new", Amount: core.Money{Cents: 1}, Date: newer})

	items, _ := s.Load(ctx, "u1")
	if items[0].Description != "new" || items[1].Description != "old" {
		t.Fatalf("expected date-descending order, got %q then %q", items[0].Description, items[1].Description)
	}
}

func TestRemoveExactlyOne(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustAdd(t, s, "u1", core.ItemDraft{Type: core.Expense, Description: "a", Amount: core.Money{Cents: 100}})
	b := mustAdd(t, s, "u1", core.ItemDraft{Type: core.Expense, Description: "b", Amount: core.Money{Cents: 200}})

	if err := s.Remove(ctx, "u1", a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	items, _ := s.Load(ctx, "u1")
	if len(items) != 1 || items[0].ID != b.ID {
		t.Fatalf("expected only %s to survive, got %+v", b.ID, items)
	}

	// Unknown id is a silent no-op.
	if err := s.Remove(ctx, "u1", "missing"); err != nil {
		t.Fatalf("remove of unknown id should not fail: %v", err)
	}
	items, _ = s.Load(ctx, "u1")
	if len(items) != 1 {
		t.Fatal("collection changed by removing an unknown id")
	}
}

func TestImportAllReplacesAndReassignsIDs(t *testing.T) {
	s := New()
	ctx := context.Background()
	mustAdd(t, s, "u1", core.ItemDraft{Type: core.Expense, Description: "stale", Amount: core.Money{Cents: 100}})

	n, err := s.ImportAll(ctx, "u1", []core.ItemDraft{
		{Type: core.Income, Description: "Salary", Amount: core.Money{Cents: 100000}, Category: "Salary"},
		{Type: core.Expense, Description: "Rent", Amount: core.Money{Cents: 30000}, Category: "Bills"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d, expected 2", n)
	}

	items, _ := s.Load(ctx, "u1")
	if len(items) != 2 {
		t.Fatalf("expected replacement semantics, got %d items", len(items))
	}
	for _, it := range items {
		if it.Description == "stale" {
			t.Fatal("pre-import item survived the replace")
		}
		if it.ID == "" {
			t.Fatal("imported record missing fresh id")
		}
	}
}

func TestImportAllRejectsBadRecordWithoutChange(t *testing.T) {
	s := New()
	ctx := context.Background()
	kept := mustAdd(t, s, "u1", core.ItemDraft{Type: core.Expense, Description: "keep", Amount: core.Money{Cents: 100}})

	_, err := s.ImportAll(ctx, "u1", []core.ItemDraft{
		{Type: core.Income, Description: "ok", Amount: core.Money{Cents: 100}},
		{Type: "transfer", Description: "bad", Amount: core.Money{Cents: 100}},
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	items, _ := s.Load(ctx, "u1")
	if len(items) != 1 || items[0].ID != kept.ID {
		t.Fatal("failed import must leave prior state untouched")
	}
}

func TestSessionExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.CreateSession(ctx, "tok", "u1", now.Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if uid, err := s.SessionUserID(ctx, "tok"); err != nil || uid != "u1" {
		t.Fatalf("live session lookup failed: %s, %v", uid, err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := s.SessionUserID(ctx, "tok"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expired session should be gone, got %v", err)
	}
}

type countingNotifier struct{ calls int }

func (c *countingNotifier) ItemsChanged(context.Context, string) { c.calls++ }

func TestMutationsNotify(t *testing.T) {
	s := New()
	n := &countingNotifier{}
	s.SetNotifier(n)
	ctx := context.Background()

	item := mustAdd(t, s, "u1", core.ItemDraft{Type: core.Expense, Description: "a", Amount: core.Money{Cents: 100}})
	if n.calls != 1 {
		t.Fatalf("add should notify once, got %d", n.calls)
	}
	_ = s.Remove(ctx, "u1", "missing")
	if n.calls != 1 {
		t.Fatalf("no-op remove must not notify, got %d", n.calls)
	}
	_ = s.Remove(ctx, "u1", item.ID)
	if n.calls != 2 {
		t.Fatalf("remove should notify, got %d", n.calls)
	}
	if _, err := s.ImportAll(ctx, "u1", nil); err != nil {
		t.Fatalf("empty import: %v", err)
	}
	if n.calls != 3 {
		t.Fatalf("import should notify, got %d", n.calls)
	}
}

func mustAdd(t *testing.T, s *Store, userID string, d core.ItemDraft) core.BudgetItem {
	t.Helper()
	item, err := s.Add(context.Background(), userID, d)
	if err != nil {
		t.Fatalf("add %q: %v", d.Description, err)
	}
	return item
}
