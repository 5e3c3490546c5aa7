package httpx

import (
	"context"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
)

// sessionStateKey is an unexported context key type to avoid collisions across packages.
type sessionStateKey struct{}

// SessionState is the per-request view of the caller's session. The Sessions
// middleware creates it, handlers mutate it, and the middleware flushes the
// resulting cookie change before the response is written.
type SessionState struct {
	session *domainauth.Session
	loadErr error
	dirty   bool
}

// Session returns the authenticated session, or nil when anonymous.
func (s *SessionState) Session() *domainauth.Session {
	if s == nil {
		return nil
	}
	return s.session
}

// Authenticated reports whether the request carries a live authenticated session.
func (s *SessionState) Authenticated() bool {
	return s.Session() != nil && s.session.Authenticated
}

// LoadError reports a store failure hit while loading the session.
func (s *SessionState) LoadError() error {
	if s == nil {
		return nil
	}
	return s.loadErr
}

// Establish replaces the request's session; the cookie is rewritten on flush.
func (s *SessionState) Establish(sess domainauth.Session) {
	s.session = &sess
	s.dirty = true
}

// Clear drops the session; the cookie is expired on flush.
func (s *SessionState) Clear() {
	s.session = nil
	s.dirty = true
}

// WithSessionState returns a child context carrying state.
func WithSessionState(ctx context.Context, state *SessionState) context.Context {
	return context.WithValue(ctx, sessionStateKey{}, state)
}

// SessionStateFromContext returns the request's session state, or nil when
// the Sessions middleware did not run.
func SessionStateFromContext(ctx context.Context) *SessionState {
	s, _ := ctx.Value(sessionStateKey{}).(*SessionState)
	return s
}

// GetSessionFromContext returns the authenticated session, or nil.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	return SessionStateFromContext(ctx).Session()
}
