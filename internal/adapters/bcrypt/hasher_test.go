package bcrypt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/gatekeeper/internal/validation"
)

func testHasher() *Hasher { return NewHasher(bcrypt.MinCost) }

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).Cost())
	assert.Equal(t, DefaultCost, NewHasher(bcrypt.MaxCost+1).Cost())
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).Cost())
}

func TestHasher_RoundTrip(t *testing.T) {
	h := testHasher()
	for _, p := range []string{"secret1", "correct horse battery staple", "ünïcødé-pässwörd", ""} {
		hash, err := h.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash, "hash must never equal the plaintext")
		assert.True(t, h.Verify(p, hash), "verify(%q, hash(%q))", p, p)
	}
}

func TestHasher_LengthLimitMatchesSignupRule(t *testing.T) {
	h := testHasher()
	_, err := h.Hash(strings.Repeat("a", validation.PasswordMaxBytes))
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", validation.PasswordMaxBytes+1))
	require.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}

func TestHasher_DifferentPlaintextDoesNotVerify(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.False(t, h.Verify("secret2", hash))
	assert.False(t, h.Verify("Secret1", hash))
	assert.False(t, h.Verify("", hash))
}

func TestHasher_IsSalted(t *testing.T) {
	h := testHasher()
	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_DefaultCostIsEncoded(t *testing.T) {
	hash, err := NewHasher(DefaultCost).Hash("secret1")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 12, cost)
}

func TestHasher_MalformedHashFailsClosed(t *testing.T) {
	h := testHasher()
	valid, err := h.Hash("secret1")
	require.NoError(t, err)

	for _, bad := range []string{"", "not-a-hash", "$2a$", valid[:len(valid)-5], "$2a$99$" + strings.Repeat("x", 53)} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("secret1", bad), "malformed hash %q must not verify", bad)
		})
	}
}

func TestHasher_TooLongPasswordIsAnError(t *testing.T) {
	_, err := testHasher().Hash(strings.Repeat("a", 73))
	require.Error(t, err)
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}
