package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
)

// DefaultSessionCookieName names the cookie carrying the signed session id.
const DefaultSessionCookieName = "session_id"

// CookieKeys holds the securecookie keys. Hash is required; Block enables
// encryption when set (16, 24 or 32 bytes).
type CookieKeys struct {
	Hash  []byte
	Block []byte
}

// CookieAttrs controls the attributes of cookies the app sets.
type CookieAttrs struct {
	Name   string
	Domain string
	Secure bool // always set Secure, regardless of the request scheme
}

// SessionCookieConfig configures SessionCookies.
type SessionCookieConfig struct {
	Keys  CookieKeys
	Attrs CookieAttrs
	TTL   time.Duration
}

// SessionCookies signs the session id into the browser cookie. Only the
// opaque id travels; the session itself stays server-side.
type SessionCookies struct {
	codec *securecookie.SecureCookie
	attrs CookieAttrs
	now   func() time.Time
}

// NewSessionCookies builds a cookie codec from cfg.
func NewSessionCookies(cfg SessionCookieConfig) (*SessionCookies, error) {
	if len(cfg.Keys.Hash) < 32 {
		return nil, errors.New("session hash key must be at least 32 bytes")
	}
	switch len(cfg.Keys.Block) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("session block key must be 16, 24 or 32 bytes, got %d", len(cfg.Keys.Block))
	}
	attrs := cfg.Attrs
	if attrs.Name == "" {
		attrs.Name = DefaultSessionCookieName
	}

	var block []byte
	if len(cfg.Keys.Block) > 0 {
		block = cfg.Keys.Block
	}
	codec := securecookie.New(cfg.Keys.Hash, block)
	if cfg.TTL > 0 {
		// Signed timestamps older than one TTL are rejected even if the
		// browser kept the cookie around.
		codec.MaxAge(int(cfg.TTL.Seconds()))
	}
	return &SessionCookies{codec: codec, attrs: attrs, now: time.Now}, nil
}

// Read returns the verified session id carried by r.
func (c *SessionCookies) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.attrs.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var id string
	if err := c.codec.Decode(c.attrs.Name, cookie.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

// Write sets the signed cookie for sess, expiring with the session.
func (c *SessionCookies) Write(w http.ResponseWriter, r *http.Request, sess domainauth.Session) error {
	encoded, err := c.codec.Encode(c.attrs.Name, sess.ID)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	maxAge := int(sess.ExpiresAt.Sub(c.now()).Seconds())
	if maxAge <= 0 {
		c.Clear(w, r)
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.attrs.Name,
		Value:    encoded,
		Path:     "/",
		Domain:   c.attrs.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	return nil
}

// Clear expires the session cookie, mirroring the attributes used to set it.
func (c *SessionCookies) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.attrs.Name,
		Value:    "",
		Path:     "/",
		Domain:   c.attrs.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}

func (c *SessionCookies) secure(r *http.Request) bool {
	return c.attrs.Secure || isSecureRequest(r)
}

// isSecureRequest reports whether r arrived over TLS, directly or through a proxy.
// Handles comma-separated X-Forwarded-Proto values.
func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}
