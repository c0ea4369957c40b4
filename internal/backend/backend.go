// Package backend assembles a complete storage stack (item store, account
// stores, live feed hub) for the configured variant.
package backend

import (
	"context"

	"budget/internal/feed"
	"budget/internal/store"
)

type Type string

const (
	SQLite Type = "sqlite"
	Sheets Type = "sheets"
	Memory Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Sheets, Memory:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result bundles everything the HTTP layer needs from a backend.
type Result struct {
	Items    store.ItemStore
	Users    store.UserStore
	Sessions store.SessionStore
	Hub      *feed.Hub

	// Run blocks pumping broker notifications into the hub; nil for
	// backends that notify in-process.
	Run func(ctx context.Context) error

	// Cleanup may be nil.
	Cleanup CleanupFunc
}
