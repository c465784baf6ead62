package cookie

import (
	"context"
	"net/http"
	"time"

	"github.com/gotchalabs/social-auth/instrumentation"
)

// Cookie names shared with the original browser clients.
const (
	authRequestCookie = "oauth2_auth_request"
	redirectURICookie = "oauth2_redirect_uri"
	tokenDataCookie   = "oauth2_token_data"
)

// setCrossSiteCookie writes a cookie that survives the provider's
// cross-site redirect back to us. SameSite=None requires Secure.
func setCrossSiteCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// setSameSiteCookie writes a cookie read back on a same-site request.
func setSameSiteCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func deleteCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// recordCrypto reports a cookie codec operation's outcome and latency.
func recordCrypto(ctx context.Context, m *instrumentation.Metrics, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RecordEncryptionOperation(ctx, operation, err == nil,
		float64(time.Since(start).Microseconds())/1000.0)
}

func readCookie(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
