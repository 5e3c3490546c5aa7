package auth

// Package auth contains hand-written in-memory doubles for the auth ports.
// They are goroutine-safe and suitable for unit and HTTP flow tests without infrastructure.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/target/gatekeeper/internal/core"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	"github.com/target/gatekeeper/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider  = (*MockAuthProvider)(nil)
	_ ports.SessionStore  = (*MemorySessionStore)(nil)
	_ core.UserRepository = (*MemoryUserRepository)(nil)
	_ core.RoleSource     = (*MemoryUserRepository)(nil)
)

// MockAuthProvider simulates an IdP with deterministic state/nonce values.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	DefaultUser domainauth.Identity

	mu        sync.Mutex
	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultUser: domainauth.Identity{
			Subject:   "mock-user-1",
			FirstName: "Mock",
			LastName:  "User",
			Email:     "mock.user@example.com",
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	return authURL, fmt.Sprintf("state-%d", n), fmt.Sprintf("nonce-%d", n), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	return m.DefaultUser, nil
}

// MemorySessionStore is an in-memory session store honouring ExpiresAt.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	Now      func() time.Time
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session), Now: time.Now}
}

func (m *MemorySessionStore) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if sess.Expired(m.now()) {
		return errors.New("session is expired")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	if sess.Expired(m.now()) {
		delete(m.sessions, id)
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports how many sessions are stored, expired ones included.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ErrNotFound is returned by MemorySessionStore when a session is missing or expired.
var ErrNotFound = ports.ErrSessionNotFound

// MemoryUserRepository is an in-memory credential store with a unique email index.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]domainauth.User // by id
	seq   int
}

// NewMemoryUserRepository creates an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domainauth.User)}
}

func (m *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*domainauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

// canonicalID accepts the uuid spellings a PostgreSQL uuid column does.
func canonicalID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}

func (m *MemoryUserRepository) FindByID(_ context.Context, id string) (*domainauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[canonicalID(id)]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryUserRepository) Insert(_ context.Context, nu domainauth.NewUser) (*domainauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == nu.Email {
			return nil, core.ErrDuplicateEmail
		}
	}
	role := nu.Role
	if role == "" {
		role = domainauth.RoleUser
	}
	m.seq++
	// Keep insertion order observable through CreatedAt.
	now := time.Unix(0, 0).Add(time.Duration(m.seq) * time.Second)
	u := domainauth.User{
		ID:           uuid.NewString(),
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemoryUserRepository) UpdateRole(_ context.Context, id string, role domainauth.Role) error {
	if !role.Valid() {
		return fmt.Errorf("update role: invalid role %q", role)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id = canonicalID(id)
	u, ok := m.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *MemoryUserRepository) List(_ context.Context) ([]domainauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domainauth.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryUserRepository) CurrentRole(ctx context.Context, userID string) (domainauth.Role, error) {
	u, err := m.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}
