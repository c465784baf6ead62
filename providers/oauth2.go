package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Userinfo endpoints for the code-plus-userinfo providers.
const (
	KakaoUserInfoURL  = "https://kapi.kakao.com/v2/user/me"
	NaverUserInfoURL  = "https://openapi.naver.com/v1/nid/me"
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

const userInfoTimeout = 10 * time.Second

// OAuth2Authenticator completes logins for providers that expose a
// userinfo endpoint behind a bearer token (Kakao, Naver, Google).
type OAuth2Authenticator struct {
	provider    Provider
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ Authenticator = (*OAuth2Authenticator)(nil)

// NewOAuth2Authenticator wires an authenticator for p. config must carry
// the provider's endpoints and client credentials.
func NewOAuth2Authenticator(p Provider, config *oauth2.Config, userInfoURL string) *OAuth2Authenticator {
	return &OAuth2Authenticator{
		provider:    p,
		config:      config,
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: userInfoTimeout},
		logger:      slog.Default(),
	}
}

// SetHTTPClient replaces the userinfo client. Intended for tests.
func (a *OAuth2Authenticator) SetHTTPClient(c *http.Client) {
	if c != nil {
		a.httpClient = c
	}
}

// SetLogger replaces the authenticator's logger.
func (a *OAuth2Authenticator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

func (a *OAuth2Authenticator) Provider() Provider { return a.provider }

func (a *OAuth2Authenticator) ClientID() string { return a.config.ClientID }

// AuthCodeURL builds the provider's authorization URL for state.
func (a *OAuth2Authenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// CompleteLogin exchanges the authorization code for an access token,
// fetches the userinfo document, and normalizes it.
func (a *OAuth2Authenticator) CompleteLogin(ctx context.Context, cb Callback) (*ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	token, err := a.config.Exchange(ctx, cb.Code)
	if err != nil {
		a.logger.Warn("token exchange failed", "provider", a.provider, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	claims, err := a.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	return ExtractIdentity(a.provider, claims)
}

func (a *OAuth2Authenticator) fetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("userinfo request rejected",
			"provider", a.provider, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUserInfoFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}
	var claims map[string]any
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}
	return claims, nil
}
