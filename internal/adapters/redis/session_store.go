package redis

// Package redis provides Redis-based adapters for gatekeeper.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	"github.com/target/gatekeeper/internal/ports"
)

// DefaultSessionPrefix namespaces session keys.
const DefaultSessionPrefix = "session:"

// SessionStore is a Redis-based session store.
// Every Save sets the key TTL from the session's ExpiresAt, so rewriting a
// session with a later ExpiresAt slides its expiry.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStoreOptions configures a SessionStore.
type SessionStoreOptions struct {
	Client redis.UniversalClient
	Prefix string           // defaults to DefaultSessionPrefix
	Now    func() time.Time // defaults to time.Now
}

// NewSessionStore creates a Redis session store with the default prefix.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithOptions(SessionStoreOptions{Client: client})
}

// NewSessionStoreWithOptions creates a Redis session store.
func NewSessionStoreWithOptions(opts SessionStoreOptions) *SessionStore {
	s := &SessionStore{client: opts.Client, prefix: opts.Prefix, now: opts.Now}
	if s.prefix == "" {
		s.prefix = DefaultSessionPrefix
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

// Save writes sess with a TTL matching its remaining lifetime.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get loads a session. Missing and expired sessions both return ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	// Redis expiry has millisecond granularity and the clock may be injected.
	if sess.Expired(s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// ErrNotFound is returned when a session is missing or expired.
var ErrNotFound = ports.ErrSessionNotFound
