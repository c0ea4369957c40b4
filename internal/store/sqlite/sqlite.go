// Package sqlite is the local persistence variant: users, sessions, and
// budget items in a single SQLite database on local disk. Loads are
// synchronous snapshots; there is no remote round-trip.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"budget/internal/core"
	"budget/internal/store"
)

// timeLayout is RFC 3339 with a fixed-width fraction so the stored strings
// sort lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements store.ItemStore, store.UserStore, and store.SessionStore
// over a single database handle.
type Store struct {
	db       *sql.DB
	notifier store.Notifier
}

var (
	_ store.ItemStore    = (*Store)(nil)
	_ store.UserStore    = (*Store)(nil)
	_ store.SessionStore = (*Store)(nil)
)

// New opens (creating if necessary) the database at dbPath and brings the
// schema up to date. Pass ":memory:" for an ephemeral test database.
func New(dbPath string) (*Store, error) {
	inMemory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if inMemory {
		// A second connection would see a different empty database.
		db.SetMaxOpenConns(1)
		err = migrateOn(db)
	} else {
		err = runMigrations(dbPath)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{db: db, notifier: store.NopNotifier{}}, nil
}

// SetNotifier installs the change-signal sink. Must be called before the
// store starts serving mutations.
func (s *Store) SetNotifier(n store.Notifier) {
	if n != nil {
		s.notifier = n
	}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrPersistence, err)
}

func (s *Store) CreateUser(ctx context.Context, u core.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return core.ErrDuplicateUser
		}
		return persistErr("create user", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID, "email", u.Email)
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ? COLLATE NOCASE`, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, persistErr("read user", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return u, nil
}

func (s *Store) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.UTC().Format(timeLayout))
	if err != nil {
		return persistErr("create session", err)
	}
	return nil
}

func (s *Store) SessionUserID(ctx context.Context, token string) (string, error) {
	var userID, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", persistErr("read session", err)
	}
	exp, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil || time.Now().After(exp) {
		// Expired tokens are purged lazily on their next use.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
		return "", store.ErrNotFound
	}
	return userID, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return persistErr("delete session", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, userID string) ([]core.BudgetItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, description, amount_cents, category, created_at
		   FROM budget_items WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, persistErr("load items", err)
	}
	defer rows.Close()

	items := []core.BudgetItem{}
	for rows.Next() {
		var it core.BudgetItem
		var createdAt string
		if err := rows.Scan(&it.ID, &it.Type, &it.Description, &it.Amount.Cents, &it.Category, &createdAt); err != nil {
			return nil, persistErr("scan item", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, persistErr("parse item date", err)
		}
		it.Date = core.DateTime{Time: ts}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("load items", err)
	}
	return items, nil
}

func (s *Store) Add(ctx context.Context, userID string, draft core.ItemDraft) (core.BudgetItem, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return core.BudgetItem{}, err
	}

	item := materialize(draft)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budget_items (id, user_id, type, description, amount_cents, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, userID, item.Type, item.Description, item.Amount.Cents, item.Category,
		item.Date.UTC().Format(timeLayout))
	if err != nil {
		return core.BudgetItem{}, persistErr("insert item", err)
	}

	slog.InfoContext(ctx, "Budget item saved",
		"user_id", userID,
		"item_id", item.ID,
		"type", item.Type,
		"amount_cents", item.Amount.Cents)

	s.notifier.ItemsChanged(ctx, userID)
	return item, nil
}

func (s *Store) Remove(ctx context.Context, userID, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM budget_items WHERE user_id = ? AND id = ?`, userID, itemID)
	if err != nil {
		return persistErr("delete item", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notifier.ItemsChanged(ctx, userID)
	}
	return nil
}

// ImportAll replaces the user's collection inside one transaction: either the
// whole import lands or the prior state survives untouched.
func (s *Store) ImportAll(ctx context.Context, userID string, drafts []core.ItemDraft) (int, error) {
	replacement := make([]core.BudgetItem, 0, len(drafts))
	for i := range drafts {
		d := drafts[i]
		d.Normalize()
		if err := d.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
		replacement = append(replacement, materialize(d))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistErr("begin import", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_items WHERE user_id = ?`, userID); err != nil {
		return 0, persistErr("clear items", err)
	}
	for _, item := range replacement {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budget_items (id, user_id, type, description, amount_cents, category, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, userID, item.Type, item.Description, item.Amount.Cents, item.Category,
			item.Date.UTC().Format(timeLayout))
		if err != nil {
			return 0, persistErr("insert imported item", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, persistErr("commit import", err)
	}

	slog.InfoContext(ctx, "Budget items imported", "user_id", userID, "count", len(replacement))
	s.notifier.ItemsChanged(ctx, userID)
	return len(replacement), nil
}

func materialize(d core.ItemDraft) core.BudgetItem {
	date := d.Date
	if date.IsZero() {
		date = time.Now()
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
