// Package oidc implements ports.AuthProvider against an OpenID Connect
// identity provider using go-oidc for discovery and ID token verification.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	"github.com/target/gatekeeper/internal/ports"
)

const (
	stateLength = 32
	nonceLength = 32
)

// Provider implements the AuthProvider interface using OIDC/OAuth2.
type Provider struct {
	config   *oauth2.Config
	verifier *gooidc.IDTokenVerifier
	client   *http.Client

	// userinfo fills claims the ID token omits; nil disables the lookup.
	userInfo func(ctx context.Context, ts oauth2.TokenSource) (*gooidc.UserInfo, error)
}

var _ ports.AuthProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	// RedirectURL is the absolute callback URL registered with the IdP. It is
	// authoritative; the path handed to Begin only has to be non-empty.
	RedirectURL  string
	Scope        string // space separated; "openid email profile" when empty
	DiscoveryURL string // issuer URL, with or without /.well-known/openid-configuration
	HTTPClient   *http.Client
}

// NewProvider discovers the issuer's endpoints and keys.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	switch {
	case cfg.ClientID == "":
		return nil, errors.New("client ID is required")
	case cfg.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case cfg.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case cfg.DiscoveryURL == "":
		return nil, errors.New("discovery URL is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	ctx = gooidc.ClientContext(ctx, client)

	op, err := gooidc.NewProvider(ctx, issuerFromDiscovery(cfg.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scopes := strings.Fields(cfg.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}
	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		verifier: op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		client:   client,
		userInfo: op.UserInfo,
	}, nil
}

func issuerFromDiscovery(u string) string {
	issuer := strings.TrimSuffix(u, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return strings.TrimSuffix(issuer, "/")
}

// Begin returns the authorization URL with a fresh state and nonce.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}
	state, err := randomToken(stateLength)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(nonceLength)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	authURL := p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange redeems the code, verifies the ID token signature, audience and
// nonce, and maps the standard claims onto an Identity.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}
	ctx = gooidc.ClientContext(ctx, p.client)

	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}
	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return domainauth.Identity{}, errors.New("missing id_token in token response")
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != in.Nonce {
		return domainauth.Identity{}, errors.New("invalid nonce")
	}

	var c claims
	if err := idTok.Claims(&c); err != nil {
		return domainauth.Identity{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	if c.Email == "" && p.userInfo != nil {
		ui, uerr := p.userInfo(ctx, p.config.TokenSource(ctx, token))
		if uerr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", uerr)
		}
		var extra claims
		if cerr := ui.Claims(&extra); cerr != nil {
			return domainauth.Identity{}, fmt.Errorf("decode user info: %w", cerr)
		}
		c.fillFrom(extra)
	}
	if c.EmailVerified != nil && !*c.EmailVerified {
		return domainauth.Identity{}, errors.New("email address is not verified")
	}
	return c.identity(idTok.Subject), nil
}

type claims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Name          string `json:"name"`
}

func (c *claims) fillFrom(o claims) {
	if c.Email == "" {
		c.Email = o.Email
		c.EmailVerified = o.EmailVerified
	}
	if c.GivenName == "" {
		c.GivenName = o.GivenName
	}
	if c.FamilyName == "" {
		c.FamilyName = o.FamilyName
	}
	if c.Name == "" {
		c.Name = o.Name
	}
}

func (c claims) identity(subject string) domainauth.Identity {
	id := domainauth.Identity{
		Subject:   subject,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
		Email:     strings.TrimSpace(c.Email),
	}
	if id.FirstName == "" && id.LastName == "" {
		id.FirstName = c.Name
	}
	return id
}

// randomToken returns a URL-safe random string of exactly n characters.
func randomToken(n int) (string, error) {
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
