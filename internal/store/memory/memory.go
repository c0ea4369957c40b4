// Package memory is the in-process persistence variant, used by tests and as
// the default development backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/store"
)

type session struct {
	userID    string
	expiresAt time.Time
}

// Store keeps users, sessions, and per-user item collections behind a single
// mutex. Mutations within one session are already serialized by the caller;
// the lock only guards against concurrent sessions of different users.
type Store struct {
	mu       sync.Mutex
	users    map[string]core.User // keyed by id
	sessions map[string]session   // keyed by token
	items    map[string][]core.BudgetItem

	notifier store.Notifier

	// now is swappable in tests that need deterministic timestamps.
	now func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[string]core.User),
		sessions: make(map[string]session),
		items:    make(map[string][]core.BudgetItem),
		notifier: store.NopNotifier{},
		now:      time.Now,
	}
}

// SetNotifier installs the change-signal sink. Must be called before the
// store starts serving mutations.
func (s *Store) SetNotifier(n store.Notifier) {
	if n != nil {
		s.notifier = n
	}
}

var (
	_ store.ItemStore    = (*Store)(nil)
	_ store.UserStore    = (*Store)(nil)
	_ store.SessionStore = (*Store)(nil)
)

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.ErrDuplicateUser
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, store.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateSession(_ context.Context, token, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) SessionUserID(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", store.ErrNotFound
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return "", store.ErrNotFound
	}
	return sess.userID, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) Load(_ context.Context, userID string) ([]core.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(userID), nil
}

func (s *Store) Add(ctx context.Context, userID string, draft core.ItemDraft) (core.BudgetItem, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return core.BudgetItem{}, err
	}
	item := materialize(draft, s.now())

	s.mu.Lock()
	s.items[userID] = append(s.items[userID], item)
	s.mu.Unlock()

	s.notifier.ItemsChanged(ctx, userID)
	return item, nil
}

func (s *Store) Remove(ctx context.Context, userID, itemID string) error {
	s.mu.Lock()
	items := s.items[userID]
	removed := false
	for i, it := range items {
		if it.ID == itemID {
			s.items[userID] = append(items[:i:i], items[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.notifier.ItemsChanged(ctx, userID)
	}
	return nil
}

func (s *Store) ImportAll(ctx context.Context, userID string, drafts []core.ItemDraft) (int, error) {
	replacement := make([]core.BudgetItem, 0, len(drafts))
	for i := range drafts {
		d := drafts[i]
		d.Normalize()
		if err := d.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
		replacement = append(replacement, materialize(d, s.now()))
	}

	s.mu.Lock()
	s.items[userID] = replacement
	s.mu.Unlock()

	s.notifier.ItemsChanged(ctx, userID)
	return len(replacement), nil
}

// snapshotLocked copies the collection ordered by date descending so callers
// never observe internal slices.
func (s *Store) snapshotLocked(userID string) []core.BudgetItem {
	items := s.items[userID]
	out := make([]core.BudgetItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

func materialize(d core.ItemDraft, now time.Time) core.BudgetItem {
	date := d.Date
	if date.IsZero() {
		date = now
	}
	return core.BudgetItem{
		ID:          uuid.NewString(),
		Type:        d.Type,
		Description: d.Description,
		Amount:      d.Amount,
		Category:    d.Category,
		Date:        core.DateTime{Time: date.UTC()},
	}
}
