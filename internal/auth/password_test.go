package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	digest, err := hasher.Hash("hunter2hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, "hunter2hunter2", digest)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))
	assert.True(t, hasher.Verify("hunter2hunter2", digest))
	assert.False(t, hasher.Verify("Hunter2hunter2", digest))
}

func TestPasswordHashesAreSalted(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("hunter2hunter2")
	require.NoError(t, err)
	second, err := hasher.Hash("hunter2hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("hunter2hunter2", first))
	assert.True(t, hasher.Verify("hunter2hunter2", second))
}

func TestVerifyMalformedDigest(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	assert.False(t, hasher.Verify("hunter2hunter2", ""))
	assert.False(t, hasher.Verify("hunter2hunter2", "not-a-bcrypt-digest"))
	assert.False(t, hasher.Verify("hunter2hunter2", "hunter2hunter2"))
}

func TestNewPasswordHasherDefaultCost(t *testing.T) {
	hasher := NewPasswordHasher(0)
	assert.Equal(t, DefaultBcryptCost, hasher.cost)

	hasher = NewPasswordHasher(-3)
	assert.Equal(t, DefaultBcryptCost, hasher.cost)
}
