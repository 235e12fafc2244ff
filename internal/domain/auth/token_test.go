package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("pepper"), time.Hour)
	userID := uuid.New()

	got, err := tokens.Verify(tokens.Issue(userID))
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokens_WrongPepper(t *testing.T) {
	issued := NewTokens([]byte("pepper"), time.Hour).Issue(uuid.New())

	_, err := NewTokens([]byte("other"), time.Hour).Verify(issued)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Tampered(t *testing.T) {
	tokens := NewTokens([]byte("pepper"), time.Hour)
	token := tokens.Issue(uuid.New())

	// Swap the user ID for another one, keeping the original signature.
	tampered := uuid.New().String() + token[36:]
	_, err := tokens.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens([]byte("pepper"), time.Minute)
	token := tokens.Issue(uuid.New())

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := tokens.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokens_Garbage(t *testing.T) {
	tokens := NewTokens([]byte("pepper"), time.Hour)

	for _, token := range []string{"", "abc", "a.b.c", uuid.New().String()} {
		_, err := tokens.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}
