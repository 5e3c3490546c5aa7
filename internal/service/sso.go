package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/target/gatekeeper/internal/core"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	apperrors "github.com/target/gatekeeper/internal/errors"
	"github.com/target/gatekeeper/internal/ports"
)

const maxNameRunes = 50

// ErrSSODisabled is returned by the single sign-on methods when no provider
// is configured.
var ErrSSODisabled = errors.New("single sign-on is not configured")

// SSOEnabled reports whether an identity provider is configured.
func (s *AuthService) SSOEnabled() bool { return s.provider != nil }

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginSSO initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginSSO(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, ErrSSODisabled
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("begin auth flow: %w", err))
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteSSOInput groups parameters for completing a login flow.
type CompleteSSOInput struct {
	Code              string
	State             string
	Nonce             string
	PreviousSessionID string
}

// CompleteSSO exchanges the authorization code, links the identity to a
// user by email (creating one with role user and no password when absent)
// and establishes a session.
func (s *AuthService) CompleteSSO(ctx context.Context, in CompleteSSOInput) (*AuthResult, error) {
	if s.provider == nil {
		return nil, ErrSSODisabled
	}
	if in.Code == "" || in.State == "" || in.Nonce == "" {
		s.loginFailed("sso_invalid")
		return nil, apperrors.Validation("Single sign-on response was incomplete.")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{Code: in.Code, State: in.State, Nonce: in.Nonce})
	if err != nil {
		s.loginFailed("sso_exchange")
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "Single sign-on failed. Please try again.")
	}
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		s.loginFailed("sso_no_email")
		return nil, apperrors.Validation("Identity provider did not return an email address.")
	}

	user, err := s.findOrCreateSSOUser(ctx, identity, email)
	if err != nil {
		return nil, err
	}

	sess, err := s.establish(ctx, user, in.PreviousSessionID)
	if err != nil {
		return nil, err
	}
	s.telemetry.count("auth.login.success", map[string]string{"method": "sso"})
	return &AuthResult{Session: sess, User: *user, Landing: user.Role.LandingPath()}, nil
}

func (s *AuthService) findOrCreateSSOUser(ctx context.Context, identity domainauth.Identity, email string) (*domainauth.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return nil, apperrors.Internal(fmt.Errorf("lookup email: %w", err))
	}

	user, err = s.users.Insert(ctx, domainauth.NewUser{
		Name:  truncateRunes(identity.DisplayName(), maxNameRunes),
		Email: email,
		Role:  domainauth.RoleUser,
	})
	if errors.Is(err, core.ErrDuplicateEmail) {
		// Lost a race with a concurrent signup for the same address.
		user, err = s.users.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("link sso user: %w", err))
	}
	s.logger.InfoContext(ctx, "created user from single sign-on", "user_id", user.ID, "subject", identity.Subject)
	return user, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
