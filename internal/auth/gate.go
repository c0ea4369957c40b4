// Package auth gates every per-user operation behind password login and
// opaque session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/store"
)

// DefaultSessionTTL is how long a session stays valid without a new login.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Gate authenticates users and resolves session tokens back to accounts.
type Gate struct {
	users    store.UserStore
	sessions store.SessionStore
	ttl      time.Duration
	now      func() time.Time
}

func NewGate(users store.UserStore, sessions store.SessionStore, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Gate{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SessionTTL reports the configured session lifetime, for cookie expiry.
func (g *Gate) SessionTTL() time.Duration {
	return g.ttl
}

// Signup creates an account and opens a session for it. A taken email yields
// core.ErrDuplicateUser.
func (g *Gate) Signup(ctx context.Context, email, name, password string) (core.User, string, error) {
	email = normalizeEmail(email)

	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, "", err
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		CreatedAt:    g.now().UTC(),
		PasswordHash: hash,
	}
	if err := g.users.CreateUser(ctx, user); err != nil {
		return core.User{}, "", err
	}

	slog.InfoContext(ctx, "User signed up", "user_id", user.ID)

	token, err := g.openSession(ctx, user.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return user.Redacted(), token, nil
}

// Login verifies the credentials and opens a session. Unknown emails and wrong
// passwords both yield core.ErrInvalidCredentials; the caller cannot tell which.
func (g *Gate) Login(ctx context.Context, email, password string) (core.User, string, error) {
	user, err := g.users.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return core.User{}, "", core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, "", err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return core.User{}, "", core.ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)

	token, err := g.openSession(ctx, user.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return user.Redacted(), token, nil
}

// Logout ends the session. Unknown tokens are fine: logging out twice,
// or with a stale cookie, is a no-op.
func (g *Gate) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return g.sessions.DeleteSession(ctx, token)
}

// Current resolves a session token to its account. Invalid or expired tokens
// yield core.ErrInvalidCredentials.
func (g *Gate) Current(ctx context.Context, token string) (core.User, error) {
	if token == "" {
		return core.User{}, core.ErrInvalidCredentials
	}
	userID, err := g.sessions.SessionUserID(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}

	user, err := g.users.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		// The account vanished underneath the session.
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	return user.Redacted(), nil
}

func (g *Gate) openSession(ctx context.Context, userID string) (string, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return "", err
	}
	expiresAt := g.now().Add(g.ttl)
	if err := g.sessions.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
