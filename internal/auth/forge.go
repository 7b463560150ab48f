package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// tokenBytes gives 256 bits of entropy per issued token.
const tokenBytes = 32

// IssuedToken is the result of minting a single-use token. Raw goes to
// the recipient exactly once and is never persisted or logged; only
// Digest and ExpiresAt are stored on the account.
type IssuedToken struct {
	Raw       string
	Digest    string
	ExpiresAt time.Time
}

// TokenForge mints single-use, time-boxed secrets. The clock is
// injectable so expiry behavior can be exercised in tests.
type TokenForge struct {
	now func() time.Time
}

// NewTokenForge builds a forge using the wall clock.
func NewTokenForge() *TokenForge {
	return &TokenForge{now: time.Now}
}

// NewTokenForgeWithClock builds a forge with a custom clock.
func NewTokenForgeWithClock(now func() time.Time) *TokenForge {
	if now == nil {
		now = time.Now
	}
	return &TokenForge{now: now}
}

// Issue mints a raw token from the CSPRNG together with its storage
// digest and absolute expiry.
func (f *TokenForge) Issue(ttl time.Duration) (IssuedToken, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return IssuedToken{}, err
	}

	raw := hex.EncodeToString(buf)
	return IssuedToken{
		Raw:       raw,
		Digest:    DigestToken(raw),
		ExpiresAt: f.now().Add(ttl),
	}, nil
}

// DigestToken computes the deterministic storage digest of a raw token.
// Lookups match on exact digest equality, so this is a fast sha256, not
// the adaptive password hasher.
func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
