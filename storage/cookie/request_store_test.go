package cookie

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gotchalabs/social-auth/instrumentation"
	"github.com/gotchalabs/social-auth/security"
	"github.com/gotchalabs/social-auth/storage"
)

func testCodec(t *testing.T) *security.Codec {
	t.Helper()
	codec, err := security.NewCodec(security.DeriveKey("cookie-store-test-secret"))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

// carryCookies builds a request to target carrying every cookie the
// recorder set, as a browser would on the next round-trip.
func carryCookies(w *httptest.ResponseRecorder, target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			r.AddCookie(c)
		}
	}
	return r
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCookieRequestStore_RoundTrip(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	w := httptest.NewRecorder()

	req := &storage.AuthorizationRequest{
		AuthorizationURL: "https://kauth.kakao.com/oauth/authorize",
		ClientID:         "client-1",
		State:            "state-abc",
		AdditionalParams: map[string]string{"prompt": "login"},
	}
	save := httptest.NewRequest(http.MethodGet, "/auth/kakao", nil)
	if err := s.SaveAuthorizationRequest(w, save, req); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadAuthorizationRequest(carryCookies(w, "/callback?state=state-abc"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ClientID != "client-1" || got.AdditionalParams["prompt"] != "login" {
		t.Errorf("loaded wrong request: %+v", got)
	}
}

func TestCookieRequestStore_CookieAttributes(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	w := httptest.NewRecorder()
	save := httptest.NewRequest(http.MethodGet, "/auth/apple", nil)

	_ = s.SaveAuthorizationRequest(w, save, &storage.AuthorizationRequest{State: "s1"})

	c := cookieByName(w, authRequestCookie)
	if c == nil {
		t.Fatal("auth request cookie not set")
	}
	if !c.HttpOnly || !c.Secure {
		t.Error("expected HttpOnly and Secure")
	}
	if c.SameSite != http.SameSiteNoneMode {
		t.Errorf("expected SameSite=None for the cross-site callback, got %v", c.SameSite)
	}
	if want := int(storage.AuthRequestTTL.Seconds()); c.MaxAge != want {
		t.Errorf("MaxAge = %d, want %d", c.MaxAge, want)
	}
}

func TestCookieRequestStore_StateMismatch(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	w := httptest.NewRecorder()
	_ = s.SaveAuthorizationRequest(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil),
		&storage.AuthorizationRequest{State: "expected"})

	_, err := s.LoadAuthorizationRequest(carryCookies(w, "/callback?state=forged"))
	if !errors.Is(err, storage.ErrStateNotFound) {
		t.Errorf("expected ErrStateNotFound on state mismatch, got %v", err)
	}
}

func TestCookieRequestStore_TamperedCookie(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	r := httptest.NewRequest(http.MethodGet, "/callback?state=s1", nil)
	r.AddCookie(&http.Cookie{Name: authRequestCookie, Value: "bm90LWEtcmVhbC1jaXBoZXJ0ZXh0"})

	if _, err := s.LoadAuthorizationRequest(r); !errors.Is(err, storage.ErrStateNotFound) {
		t.Errorf("expected ErrStateNotFound for tampered cookie, got %v", err)
	}
}

func TestCookieRequestStore_Expiry(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	now := time.Now()
	s.SetClock(func() time.Time { return now })

	w := httptest.NewRecorder()
	_ = s.SaveAuthorizationRequest(w, httptest.NewRequest(http.MethodGet, "/auth/naver", nil),
		&storage.AuthorizationRequest{State: "s1"})

	now = now.Add(storage.AuthRequestTTL + time.Second)
	_, err := s.LoadAuthorizationRequest(carryCookies(w, "/callback?state=s1"))
	if !errors.Is(err, storage.ErrStateExpired) {
		t.Errorf("expected ErrStateExpired, got %v", err)
	}
}

func TestCookieRequestStore_RemoveExpiresCookie(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	w := httptest.NewRecorder()
	_ = s.SaveAuthorizationRequest(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil),
		&storage.AuthorizationRequest{State: "s1"})

	w2 := httptest.NewRecorder()
	if _, err := s.RemoveAuthorizationRequest(w2, carryCookies(w, "/callback?state=s1")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	c := cookieByName(w2, authRequestCookie)
	if c == nil || c.MaxAge != -1 {
		t.Error("expected auth request cookie expired on removal")
	}
}

func TestCookieRequestStore_RemoveClearsCorruptCookie(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	r := httptest.NewRequest(http.MethodGet, "/callback?state=s1", nil)
	r.AddCookie(&http.Cookie{Name: authRequestCookie, Value: "bm90LWEtcmVhbC1jaXBoZXJ0ZXh0"})

	w := httptest.NewRecorder()
	if _, err := s.RemoveAuthorizationRequest(w, r); !errors.Is(err, storage.ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound for corrupt cookie, got %v", err)
	}
	c := cookieByName(w, authRequestCookie)
	if c == nil || c.MaxAge != -1 {
		t.Error("expected corrupt auth request cookie expired on removal")
	}
}

func TestCookieRequestStore_SaveNilDeletesCookies(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	w := httptest.NewRecorder()

	if err := s.SaveAuthorizationRequest(w, httptest.NewRequest(http.MethodGet, "/", nil), nil); err != nil {
		t.Fatalf("save nil: %v", err)
	}
	for _, name := range []string{authRequestCookie, redirectURICookie} {
		c := cookieByName(w, name)
		if c == nil || c.MaxAge != -1 {
			t.Errorf("expected %s cookie deleted", name)
		}
	}
}

func TestCookieRequestStore_RedirectURICookie(t *testing.T) {
	allow := storage.RedirectValidatorFunc(func(uri string) bool {
		return uri == "https://app.example.com/done"
	})
	s := NewRequestStore(testCodec(t), allow)

	tests := []struct {
		name      string
		redirect  string
		wantSaved bool
	}{
		{"allowed target", "https://app.example.com/done", true},
		{"disallowed target", "https://evil.example.net/phish", false},
		{"no target", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			_ = s.SaveAuthorizationRequest(w, httptest.NewRequest(http.MethodGet, "/auth/kakao", nil),
				&storage.AuthorizationRequest{State: "s1", RedirectURI: tt.redirect})

			c := cookieByName(w, redirectURICookie)
			if tt.wantSaved {
				if c == nil {
					t.Fatal("expected redirect URI cookie")
				}
				if c.Value != url.QueryEscape(tt.redirect) {
					t.Errorf("cookie value = %q, want URL-encoded target", c.Value)
				}
				r := carryCookies(w, "/callback?state=s1")
				if got := s.RedirectURI(r); got != tt.redirect {
					t.Errorf("RedirectURI = %q, want %q", got, tt.redirect)
				}
			} else if c != nil {
				t.Errorf("unexpected redirect URI cookie %q", c.Value)
			}
		})
	}
}

func TestCookieRequestStore_WithInstrumentation(t *testing.T) {
	inst, err := instrumentation.New(instrumentation.Config{Enabled: true})
	if err != nil {
		t.Fatalf("instrumentation: %v", err)
	}
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })

	s := NewRequestStore(testCodec(t), nil)
	s.SetInstrumentation(inst)

	w := httptest.NewRecorder()
	if err := s.SaveAuthorizationRequest(w, httptest.NewRequest(http.MethodGet, "/auth/kakao", nil),
		&storage.AuthorizationRequest{State: "s1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.LoadAuthorizationRequest(carryCookies(w, "/callback?state=s1")); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestCookieRequestStore_ClearRedirectURI(t *testing.T) {
	s := NewRequestStore(testCodec(t), nil)
	w := httptest.NewRecorder()
	s.ClearRedirectURI(w, httptest.NewRequest(http.MethodGet, "/", nil))

	c := cookieByName(w, redirectURICookie)
	if c == nil || c.MaxAge != -1 {
		t.Error("expected redirect URI cookie expired")
	}
}
