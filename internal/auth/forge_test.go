package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken(t *testing.T) {
	frozen := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	forge := NewTokenForgeWithClock(func() time.Time { return frozen })

	token, err := forge.Issue(24 * time.Hour)
	require.NoError(t, err)

	assert.Len(t, token.Raw, 64, "32 random bytes hex-encoded")
	_, err = hex.DecodeString(token.Raw)
	assert.NoError(t, err)

	assert.Equal(t, DigestToken(token.Raw), token.Digest)
	assert.NotEqual(t, token.Raw, token.Digest, "the raw secret is never what gets stored")
	assert.Equal(t, frozen.Add(24*time.Hour), token.ExpiresAt)
}

func TestIssueTokensAreUnique(t *testing.T) {
	forge := NewTokenForge()
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		token, err := forge.Issue(time.Hour)
		require.NoError(t, err)
		require.False(t, seen[token.Raw], "tokens must never repeat")
		seen[token.Raw] = true
	}
}

func TestDigestToken(t *testing.T) {
	sum := sha256.Sum256([]byte("raw-token"))
	assert.Equal(t, hex.EncodeToString(sum[:]), DigestToken("raw-token"))
	assert.Equal(t, DigestToken("raw-token"), DigestToken("raw-token"), "digest is deterministic")
	assert.NotEqual(t, DigestToken("raw-token"), DigestToken("raw-token2"))
}
