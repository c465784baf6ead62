package socialauth

import (
	"strings"

	"github.com/gotchalabs/social-auth/internal/util"
)

// RedirectPolicy validates client-requested post-login redirect targets
// against a configured allow list. The list is re-parsed on every check
// so a reconfigured policy takes effect without restarts.
type RedirectPolicy struct {
	// Authorized is a comma-separated list of permitted redirect URIs.
	Authorized string

	// Default is the target used when the client requested none.
	Default string
}

// IsAllowed reports whether uri exactly matches an allow list entry.
// A blank uri is never allowed. Satisfies storage.RedirectValidator.
func (p *RedirectPolicy) IsAllowed(uri string) bool {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return false
	}
	for _, allowed := range util.SplitAndTrim(p.Authorized) {
		if uri == allowed {
			return true
		}
	}
	return false
}

// Resolve returns uri when allow-listed, the default target otherwise.
func (p *RedirectPolicy) Resolve(uri string) string {
	if p.IsAllowed(uri) {
		return strings.TrimSpace(uri)
	}
	return p.Default
}
