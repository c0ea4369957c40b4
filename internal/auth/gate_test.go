package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/store/memory"
)

func newGate(t *testing.T) *Gate {
	t.Helper()
	st := memory.New()
	return NewGate(st, st, time.Hour)
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	gate := newGate(t)

	user, token, err := gate.Signup(ctx, "  Alice@Example.COM ", "Alice", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.Empty(t, user.PasswordHash, "hash never leaves the gate")

	logged, token2, err := gate.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEqual(t, token, token2, "each login opens a fresh session")
}

func TestSignupDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	gate := newGate(t)

	_, _, err := gate.Signup(ctx, "a@b.com", "Alice", "hunter22")
	require.NoError(t, err)

	_, _, err = gate.Signup(ctx, "A@B.com", "Impostor", "different")
	assert.ErrorIs(t, err, core.ErrDuplicateUser)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	gate := newGate(t)

	_, _, err := gate.Signup(ctx, "a@b.com", "Alice", "hunter22")
	require.NoError(t, err)

	_, _, err = gate.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials, "wrong password")

	_, _, err = gate.Login(ctx, "nobody@b.com", "hunter22")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials, "unknown email looks identical")
}

func TestCurrentResolvesSession(t *testing.T) {
	ctx := context.Background()
	gate := newGate(t)

	user, token, err := gate.Signup(ctx, "a@b.com", "Alice", "hunter22")
	require.NoError(t, err)

	current, err := gate.Current(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
	assert.Empty(t, current.PasswordHash)

	_, err = gate.Current(ctx, "bogus-token")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, err = gate.Current(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestLogoutEndsSessionAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gate := newGate(t)

	_, token, err := gate.Signup(ctx, "a@b.com", "Alice", "hunter22")
	require.NoError(t, err)

	require.NoError(t, gate.Logout(ctx, token))
	_, err = gate.Current(ctx, token)
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	assert.NoError(t, gate.Logout(ctx, token), "second logout is a no-op")
	assert.NoError(t, gate.Logout(ctx, ""), "empty token is a no-op")
}

func TestExpiredSessionRejected(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	gate := NewGate(st, st, time.Minute)

	// Backdate the gate's clock so the session is born already expired.
	gate.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	_, token, err := gate.Signup(ctx, "a@b.com", "Alice", "hunter22")
	require.NoError(t, err)

	_, err = gate.Current(ctx, token)
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.True(t, CheckPassword("secret", hash))
	assert.False(t, CheckPassword("other", hash))

	t1, err := GenerateSessionToken()
	require.NoError(t, err)
	t2, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.Len(t, t1, 64)
	assert.NotEqual(t, t1, t2)
}
