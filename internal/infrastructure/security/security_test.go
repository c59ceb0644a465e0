package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementIDsAreOrderedAndUnique(t *testing.T) {
	g := NewElementIDGenerator()
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 500; i++ {
		id := g.NewID()
		require.True(t, strings.HasPrefix(id, "el_"))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestSurfaceTokenRoundTrip(t *testing.T) {
	tokens, err := NewSurfaceTokens("secret", time.Hour)
	require.NoError(t, err)

	tok, err := tokens.Issue("s1")
	require.NoError(t, err)

	assert.NoError(t, tokens.Validate(tok, "s1"))
	assert.ErrorIs(t, tokens.Validate(tok, "s2"), ErrInvalidSurfaceToken)

	other, _ := NewSurfaceTokens("other", time.Hour)
	assert.ErrorIs(t, other.Validate(tok, "s1"), ErrInvalidSurfaceToken)
}

func TestSurfaceTokenExpiry(t *testing.T) {
	tokens, err := NewSurfaceTokens("secret", time.Minute)
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := tokens.Issue("s1")
	require.NoError(t, err)
	assert.ErrorIs(t, tokens.Validate(tok, "s1"), ErrInvalidSurfaceToken)
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := NewSurfaceTokens("", time.Hour)
	assert.Error(t, err)

	key, err := GenerateSecureKey(32)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
