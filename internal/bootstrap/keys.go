package bootstrap

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/target/gatekeeper/config"
	httpx "github.com/target/gatekeeper/internal/http"
)

// CookieKeySet holds the keys for the two signed cookies the app sets.
type CookieKeySet struct {
	Session httpx.CookieKeys
	Flash   httpx.CookieKeys
}

// DeriveCookieKeys turns the configured session secret into cookie keys.
// The session cookie uses the secret directly; the flash cookie gets keys
// derived from it so a value signed for one cookie never verifies as the other.
func DeriveCookieKeys(cfg config.SessionConfig) CookieKeySet {
	keys := CookieKeySet{
		Session: httpx.CookieKeys{Hash: []byte(cfg.Secret)},
		Flash:   httpx.CookieKeys{Hash: deriveKey(cfg.Secret, "flash-hash", sha256.Size)},
	}
	if cfg.BlockKey != "" {
		keys.Session.Block = []byte(cfg.BlockKey)
		keys.Flash.Block = deriveKey(cfg.BlockKey, "flash-block", len(cfg.BlockKey))
	}
	return keys
}

// deriveKey returns the first n bytes of HMAC-SHA256(secret, label).
func deriveKey(secret, label string, n int) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(label))
	return mac.Sum(nil)[:n]
}
