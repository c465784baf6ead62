package socialauth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gotchalabs/social-auth/identity"
	"github.com/gotchalabs/social-auth/providers"
	"github.com/gotchalabs/social-auth/storage"
)

// Safe error codes surfaced to browsers and clients. Free-text detail
// from providers or internals never joins them.
const (
	CodeLoginCancelled    = "login_cancelled"
	CodeInvalidToken      = "invalid_token"
	CodeInvalidResponse   = "invalid_provider_response"
	CodeInvalidState      = "invalid_state"
	CodeSessionExpired    = "session_expired"
	CodeAccountDeleted    = "account_deleted"
	CodeAccountBanned     = "account_banned"
	CodeAccountSuspended  = "account_suspended"
	CodeTooManyRequests   = "too_many_requests"
	CodeSocialLoginFailed = "social_login_failed"
	CodeInvalidCode       = "invalid_code"
	CodeUnknownProvider   = "unknown_provider"
)

// AuthError is a login failure safe to show to end users.
type AuthError struct {
	Code    string
	Message string
	Status  int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var authErrors = map[string]*AuthError{
	CodeLoginCancelled:    {CodeLoginCancelled, "Login was cancelled.", http.StatusUnauthorized},
	CodeInvalidToken:      {CodeInvalidToken, "The login token was not valid.", http.StatusUnauthorized},
	CodeInvalidResponse:   {CodeInvalidResponse, "The login provider returned an invalid response.", http.StatusBadGateway},
	CodeInvalidState:      {CodeInvalidState, "The login session could not be verified.", http.StatusUnauthorized},
	CodeSessionExpired:    {CodeSessionExpired, "The login session expired. Please try again.", http.StatusUnauthorized},
	CodeAccountDeleted:    {CodeAccountDeleted, "This account has been deleted.", http.StatusForbidden},
	CodeAccountBanned:     {CodeAccountBanned, "This account has been banned.", http.StatusForbidden},
	CodeAccountSuspended:  {CodeAccountSuspended, "This account is suspended.", http.StatusForbidden},
	CodeTooManyRequests:   {CodeTooManyRequests, "Too many login attempts. Please try again later.", http.StatusTooManyRequests},
	CodeSocialLoginFailed: {CodeSocialLoginFailed, "Social login failed. Please try again.", http.StatusUnauthorized},
	CodeInvalidCode:       {CodeInvalidCode, "The exchange code was not valid.", http.StatusUnauthorized},
	CodeUnknownProvider:   {CodeUnknownProvider, "Unsupported login provider.", http.StatusBadRequest},
}

// NewAuthError returns the AuthError for a known code, falling back to
// the generic failure for anything unknown.
func NewAuthError(code string) *AuthError {
	if e, ok := authErrors[code]; ok {
		return e
	}
	return authErrors[CodeSocialLoginFailed]
}

// ClassifyCallbackError maps the error parameter a provider sends on a
// failed authorization to a safe AuthError. Only a fixed set of
// provider codes gets a specific answer; everything else collapses to
// the generic failure so unvetted text cannot leak through.
func ClassifyCallbackError(providerCode string) *AuthError {
	switch providerCode {
	case "access_denied":
		return authErrors[CodeLoginCancelled]
	case "invalid_token":
		return authErrors[CodeInvalidToken]
	case "invalid_response":
		return authErrors[CodeInvalidResponse]
	default:
		return authErrors[CodeSocialLoginFailed]
	}
}

// ClassifyError maps internal errors from the flow's collaborators to a
// safe AuthError.
func ClassifyError(err error) *AuthError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrStateExpired):
		return authErrors[CodeSessionExpired]
	case errors.Is(err, storage.ErrStateNotFound):
		return authErrors[CodeInvalidState]
	case errors.Is(err, storage.ErrCodeNotFound):
		return authErrors[CodeInvalidCode]
	case errors.Is(err, identity.ErrUserDeleted):
		return authErrors[CodeAccountDeleted]
	case errors.Is(err, identity.ErrUserBanned):
		return authErrors[CodeAccountBanned]
	case errors.Is(err, identity.ErrUserSuspended):
		return authErrors[CodeAccountSuspended]
	case errors.Is(err, providers.ErrInvalidIDToken):
		return authErrors[CodeInvalidToken]
	case errors.Is(err, providers.ErrUserInfoFailed):
		return authErrors[CodeInvalidResponse]
	case errors.Is(err, providers.ErrUnknownProvider):
		return authErrors[CodeUnknownProvider]
	default:
		return authErrors[CodeSocialLoginFailed]
	}
}
