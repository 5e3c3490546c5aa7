// Package bcrypt implements ports.PasswordHasher on top of golang.org/x/crypto/bcrypt.
package bcrypt

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/target/gatekeeper/internal/ports"
)

// DefaultCost is the work factor used for stored passwords.
const DefaultCost = 12

// Hasher hashes and verifies passwords with a fixed cost.
type Hasher struct {
	cost int
}

var _ ports.PasswordHasher = (*Hasher)(nil)

// NewHasher returns a Hasher using cost, or DefaultCost when cost is outside
// bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost reports the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. Empty, truncated, or
// otherwise malformed hashes never match.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
