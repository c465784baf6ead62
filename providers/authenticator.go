package providers

import (
	"context"
	"errors"
)

var (
	ErrExchangeFailed = errors.New("authorization code exchange failed")
	ErrUserInfoFailed = errors.New("userinfo request failed")
	ErrInvalidIDToken = errors.New("id_token verification failed")
)

// Callback carries the provider's answer to an authorization redirect.
type Callback struct {
	// Code is the authorization code from the provider.
	Code string

	// UserPayload is the JSON user object Apple posts alongside the
	// code on the very first authorization. Empty for every other
	// provider and for repeat Apple logins.
	UserPayload string
}

// Authenticator starts and completes an external login against one
// provider.
type Authenticator interface {
	Provider() Provider

	// ClientID returns the OAuth client id registered with the provider.
	ClientID() string

	// AuthCodeURL builds the provider authorization URL carrying state.
	AuthCodeURL(state string) string

	// CompleteLogin redeems the callback against the provider and
	// returns the normalized identity.
	CompleteLogin(ctx context.Context, cb Callback) (*ExternalIdentity, error)
}
