package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// AppleIssuer is the issuer URL for Sign in with Apple.
const AppleIssuer = "https://appleid.apple.com"

// idTokenVerifier is the subset of *oidc.IDTokenVerifier the
// authenticator needs. Narrowed for tests.
type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// codeExchanger is the subset of *oauth2.Config the authenticator needs.
type codeExchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
}

// OIDCAuthenticator completes logins for providers that return identity
// inside a signed id_token instead of a userinfo endpoint (Apple).
type OIDCAuthenticator struct {
	provider Provider
	clientID string
	config   codeExchanger
	verifier idTokenVerifier
	logger   *slog.Logger
}

var _ Authenticator = (*OIDCAuthenticator)(nil)

// NewOIDCAuthenticator discovers the issuer's endpoints and builds an
// authenticator for p.
func NewOIDCAuthenticator(ctx context.Context, p Provider, issuer, clientID, clientSecret, redirectURL string) (*OIDCAuthenticator, error) {
	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discovering %s issuer: %w", p, err)
	}
	return &OIDCAuthenticator{
		provider: p,
		clientID: clientID,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "name", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
		logger:   slog.Default(),
	}, nil
}

// SetLogger replaces the authenticator's logger.
func (a *OIDCAuthenticator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

func (a *OIDCAuthenticator) Provider() Provider { return a.provider }

func (a *OIDCAuthenticator) ClientID() string { return a.clientID }

// AuthCodeURL builds the authorization URL for state. Apple requires
// form_post response mode when name or email scopes are requested.
func (a *OIDCAuthenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "form_post"))
}

// CompleteLogin exchanges the code, verifies the returned id_token, and
// normalizes its claims. The provider's refresh token is captured as the
// revoke token; Apple only includes one on the account's first
// authorization, so an empty value is not an error.
func (a *OIDCAuthenticator) CompleteLogin(ctx context.Context, cb Callback) (*ExternalIdentity, error) {
	token, err := a.config.Exchange(ctx, cb.Code)
	if err != nil {
		a.logger.Warn("token exchange failed", "provider", a.provider, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: response carries no id_token", ErrInvalidIDToken)
	}
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		a.logger.Warn("id_token rejected", "provider", a.provider, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
	}
	identity, err := ExtractIdentity(a.provider, claims)
	if err != nil {
		return nil, err
	}
	identity.RevokeToken = token.RefreshToken
	if name := nameFromUserPayload(cb.UserPayload); name != "" {
		identity.Nickname = name
	}
	return identity, nil
}

// nameFromUserPayload extracts a display name from the first-login user
// object, family name first.
func nameFromUserPayload(payload string) string {
	if payload == "" {
		return ""
	}
	var doc struct {
		Name struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"name"`
	}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Name.LastName + doc.Name.FirstName)
}
