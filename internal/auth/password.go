package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost matches the work factor the platform has always used.
const DefaultBcryptCost = 10

// PasswordHasher wraps bcrypt with a configured work factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher builds a hasher; non-positive cost falls back to the
// default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash derives a salted one-way digest of the plaintext.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext matches the stored digest. It
// never returns an error: a malformed digest is simply a mismatch.
func (h *PasswordHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
