package storage

import (
	"errors"
	"net/http"
	"time"

	"github.com/gotchalabs/social-auth/security"
)

// Lifetimes for stored artifacts. Authorization requests must survive the
// user's trip to the provider consent screen; exchange codes only bridge
// the callback redirect to the client's follow-up request.
const (
	AuthRequestTTL  = 180 * time.Second
	ExchangeCodeTTL = 30 * time.Second
)

var (
	// ErrStateNotFound is returned when no authorization request exists
	// for the presented state value.
	ErrStateNotFound = errors.New("authorization request not found")

	// ErrStateExpired is returned when an authorization request exists
	// but its lifetime has elapsed.
	ErrStateExpired = errors.New("authorization request expired")

	// ErrCodeNotFound is returned when an exchange code is unknown,
	// already consumed, or expired. The three cases are deliberately
	// indistinguishable to callers.
	ErrCodeNotFound = errors.New("exchange code not found")

	// ErrStoreFull is returned when a capacity-bounded store cannot
	// accept another entry.
	ErrStoreFull = errors.New("store at capacity")
)

// AuthorizationRequest is the snapshot of an outbound authorization
// redirect, saved before sending the user to the provider and reloaded
// on the callback to validate the returned state.
type AuthorizationRequest struct {
	AuthorizationURL string            `json:"authorizationUri"`
	ClientID         string            `json:"clientId"`
	RedirectURI      string            `json:"redirectUri"`
	Scopes           []string          `json:"scopes,omitempty"`
	State            string            `json:"state"`
	AdditionalParams map[string]string `json:"additionalParameters,omitempty"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// IsExpiredAt reports whether the request's lifetime has elapsed at the
// given instant. A zero CreatedAt never expires.
func (a *AuthorizationRequest) IsExpiredAt(now time.Time) bool {
	return security.IsExpiredAt(now, a.CreatedAt, AuthRequestTTL)
}

// IsExpired is IsExpiredAt against the wall clock.
func (a *AuthorizationRequest) IsExpired() bool {
	return a.IsExpiredAt(time.Now())
}

// TokenBundle carries the session tokens minted after a successful login,
// parked server- or cookie-side until the client exchanges its one-time
// code for them.
type TokenBundle struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	IsNewUser    bool   `json:"isNewUser"`
}

// AuthRequestStore persists authorization requests across the provider
// redirect. Implementations key by state value; the http request and
// response are threaded through so cookie-backed implementations can
// read and write their own transport.
type AuthRequestStore interface {
	// SaveAuthorizationRequest records req, keyed by req.State. A nil
	// req removes any existing record instead.
	SaveAuthorizationRequest(w http.ResponseWriter, r *http.Request, req *AuthorizationRequest) error

	// LoadAuthorizationRequest returns the request matching the state
	// parameter of r without consuming it. ErrStateNotFound and
	// ErrStateExpired signal absence. The call is strictly read-only;
	// cookie-backed stores cannot discard a corrupt or expired value
	// here and do so on RemoveAuthorizationRequest instead.
	LoadAuthorizationRequest(r *http.Request) (*AuthorizationRequest, error)

	// RemoveAuthorizationRequest atomically loads and deletes the
	// request matching r's state parameter. Concurrent callers see at
	// most one success.
	RemoveAuthorizationRequest(w http.ResponseWriter, r *http.Request) (*AuthorizationRequest, error)

	// RedirectURI returns the client-requested post-login redirect
	// target associated with r, or "" if none survives validation.
	// For server-side stores the value is readable once after
	// RemoveAuthorizationRequest.
	RedirectURI(r *http.Request) string

	// ClearRedirectURI discards any stored redirect target.
	ClearRedirectURI(w http.ResponseWriter, r *http.Request)
}

// ExchangeStore parks token bundles behind single-use opaque codes.
type ExchangeStore interface {
	// StoreTokens saves bundle and returns the opaque code the client
	// presents to retrieve it.
	StoreTokens(w http.ResponseWriter, r *http.Request, bundle *TokenBundle) (string, error)

	// ExchangeCode redeems a code for its bundle, consuming it. Every
	// failure mode returns ErrCodeNotFound.
	ExchangeCode(w http.ResponseWriter, r *http.Request, code string) (*TokenBundle, error)
}

// RedirectValidator gates which client-supplied redirect targets a store
// will persist.
type RedirectValidator interface {
	IsAllowed(uri string) bool
}

// RedirectValidatorFunc adapts a function to the RedirectValidator
// interface.
type RedirectValidatorFunc func(uri string) bool

// IsAllowed implements RedirectValidator.
func (f RedirectValidatorFunc) IsAllowed(uri string) bool { return f(uri) }
