package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor handles security event logging with PII protection. Subject IDs
// and user IDs are hashed before they reach the log stream; raw provider
// error text is never passed through.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor.
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event.
type Event struct {
	Type      string
	UserID    string
	Provider  string
	IPAddress string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with hashed PII.
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"user_id_hash", hashForLogging(event.UserID),
		"provider", event.Provider,
		"ip_address", event.IPAddress,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogLoginSucceeded logs a completed social login.
func (a *Auditor) LogLoginSucceeded(userID, provider, ipAddress string, isNewUser bool) {
	a.LogEvent(Event{
		Type:      EventLoginSucceeded,
		UserID:    userID,
		Provider:  provider,
		IPAddress: ipAddress,
		Details: map[string]any{
			"is_new_user": isNewUser,
		},
	})
}

// LogLoginFailed logs a failed social login with a bounded reason code,
// never raw provider text.
func (a *Auditor) LogLoginFailed(provider, ipAddress, reasonCode string) {
	a.LogEvent(Event{
		Type:      EventLoginFailed,
		Provider:  provider,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reasonCode,
		},
	})
}

// LogExchangeCodeIssued logs issuance of a one-time exchange code.
func (a *Auditor) LogExchangeCodeIssued(userID, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventExchangeCodeIssued,
		UserID:    userID,
		IPAddress: ipAddress,
	})
}

// LogExchangeCodeRejected logs a rejected exchange attempt.
func (a *Auditor) LogExchangeCodeRejected(ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventExchangeCodeRejected,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogRedirectURIBlocked logs a blocked front-end redirect URI.
func (a *Auditor) LogRedirectURIBlocked(ipAddress, uri string) {
	a.LogEvent(Event{
		Type:      EventRedirectURIBlocked,
		IPAddress: ipAddress,
		Details: map[string]any{
			"redirect_uri": uri,
		},
	})
}

// hashForLogging produces a short SHA-256 prefix so events for the same
// subject can be correlated without exposing the identifier itself.
func hashForLogging(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:16]
}
