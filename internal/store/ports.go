// Package store defines the ports every persistence variant implements.
// Three variants exist: sqlite (local disk), sheets (remote document
// collection), and memory (tests and development).
package store

import (
	"context"
	"errors"
	"time"

	"budget/internal/core"
)

// ErrNotFound reports a missing user, session, or item. Stores return it
// instead of driver-specific sentinel errors.
var ErrNotFound = errors.New("not found")

type (
	// ItemStore is the sole mutator of a user's budget-item collection.
	// Every write validates the draft at this boundary and, on success,
	// raises a change notification.
	ItemStore interface {
		// Load returns the user's full collection ordered by date
		// descending; an unknown user yields an empty collection.
		Load(ctx context.Context, userID string) ([]core.BudgetItem, error)

		// Add assigns an id and creation timestamp, persists, and
		// returns the stored item.
		Add(ctx context.Context, userID string, draft core.ItemDraft) (core.BudgetItem, error)

		// Remove deletes by id. Removing an absent id is a no-op.
		Remove(ctx context.Context, userID, itemID string) error

		// ImportAll replaces the user's collection with the given
		// records, each receiving a fresh id. Returns how many records
		// were inserted.
		ImportAll(ctx context.Context, userID string, drafts []core.ItemDraft) (int, error)
	}

	// UserStore persists account identities for the auth gate.
	UserStore interface {
		// CreateUser fails with core.ErrDuplicateUser when the email
		// is already registered.
		CreateUser(ctx context.Context, u core.User) error
		UserByEmail(ctx context.Context, email string) (core.User, error)
		UserByID(ctx context.Context, id string) (core.User, error)
	}

	// SessionStore persists opaque session tokens.
	SessionStore interface {
		CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
		// SessionUserID resolves a token to its user id; expired or
		// unknown tokens return ErrNotFound.
		SessionUserID(ctx context.Context, token string) (string, error)
		// DeleteSession is idempotent.
		DeleteSession(ctx context.Context, token string) error
	}

	// Notifier receives a change signal after an item mutation commits.
	// The local variants notify the feed hub in-process; the remote
	// variant publishes to the change-event bus instead.
	Notifier interface {
		ItemsChanged(ctx context.Context, userID string)
	}
)

// NopNotifier discards change signals. Stores fall back to it so mutation
// paths never nil-check their notifier.
type NopNotifier struct{}

func (NopNotifier) ItemsChanged(context.Context, string) {}
