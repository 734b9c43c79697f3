package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager("secret", 5)

	token, exp, err := tm.GenerateToken("agent-1", "a@example.com")
	req.NoError(err)
	req.WithinDuration(time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	req.NoError(err)
	req.Equal("agent-1", claims.AgentID)
	req.Equal("a@example.com", claims.Email)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken("agent-1", "a@example.com")
	require.NoError(t, err)

	_, err = NewTokenManager("two", 5).ParseToken(token)
	require.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := tm.GenerateToken("agent-1", "a@example.com")
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	require.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	req := require.New(t)

	_, err := HashPassword("short", 4)
	req.ErrorIs(err, ErrPasswordTooShort)

	hash, err := HashPassword("long-enough", 4)
	req.NoError(err)
	req.NoError(ComparePassword(hash, "long-enough"))
	req.Error(ComparePassword(hash, "wrong-password"))
}
