package security

// Event type constants for security audit logging. Using constants keeps the
// event vocabulary consistent across the codebase and greppable in logs.
const (
	// Login flow events

	// EventLoginStarted is logged when an authorization request is saved
	// and the browser is about to be redirected to the provider.
	EventLoginStarted = "login_started"

	// EventLoginSucceeded is logged when a provider callback completes and
	// session tokens are minted.
	EventLoginSucceeded = "login_succeeded"

	// EventLoginFailed is logged when a provider callback fails for any
	// reason (user cancel, invalid token, internal error).
	EventLoginFailed = "login_failed"

	// Exchange code events

	// EventExchangeCodeIssued is logged when a one-time exchange code is
	// stored for a freshly minted token bundle.
	EventExchangeCodeIssued = "exchange_code_issued"

	// EventExchangeCodeConsumed is logged when a one-time code is
	// successfully redeemed for its token bundle.
	EventExchangeCodeConsumed = "exchange_code_consumed"

	// EventExchangeCodeRejected is logged when an unknown, expired, or
	// already-consumed code is presented.
	EventExchangeCodeRejected = "exchange_code_rejected"

	// Security violation events

	// EventRedirectURIBlocked is logged when a front-end supplied
	// redirect_uri fails the allow-list check and is dropped.
	EventRedirectURIBlocked = "redirect_uri_blocked"

	// EventStateReplayDetected is logged when a provider callback carries a
	// state with no matching (or an already-consumed) authorization request.
	EventStateReplayDetected = "state_replay_detected"

	// EventDeletedUserLogin is logged when a soft-deleted account attempts
	// to log in.
	EventDeletedUserLogin = "deleted_user_login"

	// EventRateLimitExceeded is logged when a per-IP rate limit trips.
	EventRateLimitExceeded = "rate_limit_exceeded"
)
