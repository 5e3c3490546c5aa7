package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/target/gatekeeper/internal/core"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	apperrors "github.com/target/gatekeeper/internal/errors"
	"github.com/target/gatekeeper/internal/ports"
	"github.com/target/gatekeeper/internal/validation"
)

// DefaultSessionTTL is the lifetime granted to a session on establishment
// and on every authenticated request.
const DefaultSessionTTL = time.Hour

// AuthStores groups the persistence dependencies of AuthService.
type AuthStores struct {
	Users    core.UserRepository // Required
	Sessions ports.SessionStore  // Required
	Hasher   ports.PasswordHasher
}

// AuthConfig tunes AuthService behaviour.
type AuthConfig struct {
	SessionTTL time.Duration      // Defaults to DefaultSessionTTL
	Provider   ports.AuthProvider // Optional: enables single sign-on
	Now        func() time.Time
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Stores    AuthStores
	Config    AuthConfig
	Telemetry Telemetry
}

// AuthService orchestrates signup, password login and single sign-on, and
// owns the lifecycle of server-side sessions.
type AuthService struct {
	users     core.UserRepository
	sessions  ports.SessionStore
	hasher    ports.PasswordHasher
	provider  ports.AuthProvider
	ttl       time.Duration
	now       func() time.Time
	telemetry Telemetry
	logger    *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Stores.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Stores.Sessions == nil {
		return nil, errors.New("SessionStore is required")
	}
	if opts.Stores.Hasher == nil {
		return nil, errors.New("PasswordHasher is required")
	}
	ttl := opts.Config.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:     opts.Stores.Users,
		sessions:  opts.Stores.Sessions,
		hasher:    opts.Stores.Hasher,
		provider:  opts.Config.Provider,
		ttl:       ttl,
		now:       now,
		telemetry: opts.Telemetry,
		logger:    opts.Telemetry.logger("auth_service"),
	}, nil
}

// MustNewAuthService constructs a new AuthService and panics on error.
func MustNewAuthService(opts AuthServiceOptions) *AuthService {
	svc, err := NewAuthService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// SessionTTL reports the sliding session lifetime.
func (s *AuthService) SessionTTL() time.Duration { return s.ttl }

// SignupInput carries the raw signup form and the caller's current session
// id, which is discarded once the new session is stored.
type SignupInput struct {
	Form              url.Values
	PreviousSessionID string
}

// LoginInput carries the raw login form and the caller's current session id.
type LoginInput struct {
	Form              url.Values
	PreviousSessionID string
}

// AuthResult is returned by every successful authentication.
type AuthResult struct {
	Session domainauth.Session
	User    domainauth.User
	Landing string
}

// Signup validates the form, creates a user with role user and establishes
// an authenticated session for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	payload, ferr := validation.SignupSchema.Check(in.Form)
	if ferr != nil {
		s.telemetry.count("auth.signup", map[string]string{"result": "invalid"})
		return nil, apperrors.ValidationField(ferr.Field, ferr.Message)
	}
	email := payload.Get(validation.FieldEmail)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.telemetry.count("auth.signup", map[string]string{"result": "duplicate"})
		return nil, apperrors.DuplicateEmail(nil)
	case !errors.Is(err, core.ErrUserNotFound):
		return nil, storeFailure(fmt.Errorf("lookup email: %w", err))
	}

	hash, err := s.hasher.Hash(payload.Get(validation.FieldPassword))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user, err := s.users.Insert(ctx, domainauth.NewUser{
		Name:         payload.Get(validation.FieldName),
		Email:        email,
		PasswordHash: hash,
		Role:         domainauth.RoleUser,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			s.telemetry.count("auth.signup", map[string]string{"result": "duplicate"})
			return nil, apperrors.DuplicateEmail(err)
		}
		return nil, storeFailure(fmt.Errorf("insert user: %w", err))
	}

	sess, err := s.establish(ctx, user, in.PreviousSessionID)
	if err != nil {
		return nil, err
	}
	s.telemetry.count("auth.signup", map[string]string{"result": "created"})
	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID)
	return &AuthResult{Session: sess, User: *user, Landing: user.Role.LandingPath()}, nil
}

// Login verifies email and password and establishes an authenticated
// session. Unknown emails and wrong passwords are reported distinctly.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	payload, ferr := validation.LoginSchema.Check(in.Form)
	if ferr != nil {
		s.loginFailed("invalid")
		return nil, apperrors.ValidationField(ferr.Field, ferr.Message)
	}

	user, err := s.users.FindByEmail(ctx, payload.Get(validation.FieldEmail))
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			s.loginFailed("user_not_found")
			return nil, apperrors.UserNotFound()
		}
		return nil, storeFailure(fmt.Errorf("lookup email: %w", err))
	}

	if !s.hasher.Verify(payload.Get(validation.FieldPassword), user.PasswordHash) {
		s.loginFailed("incorrect_password")
		return nil, apperrors.IncorrectPassword()
	}

	sess, err := s.establish(ctx, user, in.PreviousSessionID)
	if err != nil {
		return nil, err
	}
	s.telemetry.count("auth.login.success", map[string]string{"method": "password"})
	return &AuthResult{Session: sess, User: *user, Landing: user.Role.LandingPath()}, nil
}

func (s *AuthService) loginFailed(reason string) {
	s.telemetry.count("auth.login.failure", map[string]string{"reason": reason})
}

// establish stores a fresh authenticated session for user and discards the
// caller's previous session so its id cannot be reused.
func (s *AuthService) establish(ctx context.Context, user *domainauth.User, previousID string) (domainauth.Session, error) {
	sess := domainauth.Session{
		ID:            uuid.NewString(),
		Authenticated: true,
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		ExpiresAt:     s.now().Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domainauth.Session{}, apperrors.Internal(fmt.Errorf("save session: %w", err))
	}
	if previousID != "" {
		if err := s.sessions.Delete(ctx, previousID); err != nil {
			s.logger.WarnContext(ctx, "failed to discard previous session", "error", err)
		}
	}
	return sess, nil
}

// GetSession loads a live authenticated session. Missing, anonymous and
// expired sessions are reported as unauthenticated; expired ones are removed.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, apperrors.Unauthenticated()
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil, apperrors.Unauthenticated()
		}
		return nil, apperrors.Internal(fmt.Errorf("get session: %w", err))
	}

	now := s.now()
	if sess.Expired(now) {
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete expired session", "error", delErr)
		}
		return nil, apperrors.Unauthenticated()
	}
	if sess.IsAnonymous(now) {
		return nil, apperrors.Unauthenticated()
	}
	return &sess, nil
}

// Touch extends an authenticated session by the TTL from now.
func (s *AuthService) Touch(ctx context.Context, sess domainauth.Session) (domainauth.Session, error) {
	sess.ExpiresAt = s.now().Add(s.ttl)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return sess, apperrors.Internal(fmt.Errorf("touch session: %w", err))
	}
	return sess, nil
}

// Logout removes a session. An empty id is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperrors.Internal(fmt.Errorf("delete session: %w", err))
	}
	return nil
}
