package httpx

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const flashSessionName = "gatekeeper_flash"

// FlashStore carries one-shot messages across a redirect in a signed cookie.
type FlashStore struct {
	store  *sessions.CookieStore
	logger *slog.Logger
}

// NewFlashStore builds a flash store. keys must satisfy the same rules as
// the session cookie keys.
func NewFlashStore(keys CookieKeys, attrs CookieAttrs, logger *slog.Logger) *FlashStore {
	pairs := [][]byte{keys.Hash}
	if len(keys.Block) > 0 {
		pairs = append(pairs, keys.Block)
	}
	store := sessions.NewCookieStore(pairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   attrs.Domain,
		MaxAge:   300,
		HttpOnly: true,
		Secure:   attrs.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashStore{store: store, logger: logger}
}

// Add queues msg for the next page render. It must run before the response
// header is written.
func (f *FlashStore) Add(w http.ResponseWriter, r *http.Request, msg string) {
	if f == nil {
		return
	}
	sess, err := f.store.Get(r, flashSessionName)
	if err != nil {
		// A tampered or stale cookie decodes to a fresh session; keep going.
		f.logger.DebugContext(r.Context(), "discarding unreadable flash cookie", "error", err)
	}
	sess.AddFlash(msg)
	if err := sess.Save(r, w); err != nil {
		f.logger.WarnContext(r.Context(), "failed to save flash", "error", err)
	}
}

// Pop returns and clears pending messages.
func (f *FlashStore) Pop(w http.ResponseWriter, r *http.Request) []string {
	if f == nil {
		return nil
	}
	sess, err := f.store.Get(r, flashSessionName)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		f.logger.WarnContext(r.Context(), "failed to clear flashes", "error", err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
