package cookie

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gotchalabs/social-auth/instrumentation"
	"github.com/gotchalabs/social-auth/internal/util"
	"github.com/gotchalabs/social-auth/security"
	"github.com/gotchalabs/social-auth/storage"
)

// RequestStore is a storage.AuthRequestStore that round-trips the
// authorization request through an encrypted browser cookie. Nothing is
// held server-side, so any replica can complete a flow another started.
type RequestStore struct {
	codec     *security.Codec
	validator storage.RedirectValidator
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	now       security.NowFunc
}

var _ storage.AuthRequestStore = (*RequestStore)(nil)

// NewRequestStore creates a cookie-backed RequestStore. validator may be
// nil to accept any redirect target.
func NewRequestStore(codec *security.Codec, validator storage.RedirectValidator) *RequestStore {
	return &RequestStore{
		codec:     codec,
		validator: validator,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// SetLogger replaces the store's logger.
func (s *RequestStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetClock replaces the store's time source. Intended for tests.
func (s *RequestStore) SetClock(now security.NowFunc) {
	if now != nil {
		s.now = now
	}
}

// SetInstrumentation attaches metric recording for codec operations.
func (s *RequestStore) SetInstrumentation(inst *instrumentation.Instrumentation) {
	if inst != nil {
		s.metrics = inst.Metrics()
	}
}

// SaveAuthorizationRequest serializes req into the auth request cookie.
// The redirect target, when allow-listed, travels in its own URL-encoded
// cookie. A nil req deletes both cookies.
func (s *RequestStore) SaveAuthorizationRequest(w http.ResponseWriter, r *http.Request, req *storage.AuthorizationRequest) error {
	if req == nil {
		deleteCookie(w, authRequestCookie)
		deleteCookie(w, redirectURICookie)
		return nil
	}
	if req.State == "" {
		return storage.ErrStateNotFound
	}

	stored := *req
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}

	redirect := stored.RedirectURI
	stored.RedirectURI = ""
	if redirect != "" {
		if s.validator == nil || s.validator.IsAllowed(redirect) {
			setCrossSiteCookie(w, redirectURICookie, url.QueryEscape(redirect), int(storage.AuthRequestTTL.Seconds()))
		} else {
			s.logger.Warn("rejecting unauthorized redirect URI",
				"redirect_uri", util.SafeTruncate(redirect, 64))
		}
	}

	payload, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	start := time.Now()
	blob, err := s.codec.Encrypt(payload)
	recordCrypto(r.Context(), s.metrics, "encrypt", start, err)
	if err != nil {
		return err
	}
	setCrossSiteCookie(w, authRequestCookie, blob, int(storage.AuthRequestTTL.Seconds()))
	return nil
}

// LoadAuthorizationRequest decrypts the auth request cookie and returns
// the request if its state matches r's state parameter.
func (s *RequestStore) LoadAuthorizationRequest(r *http.Request) (*storage.AuthorizationRequest, error) {
	return s.load(r)
}

// RemoveAuthorizationRequest loads the request and expires its cookie.
// The cookie is expired even when the load fails, so a corrupt or
// tampered value does not linger in the browser. The redirect URI
// cookie is left for a later RedirectURI read.
func (s *RequestStore) RemoveAuthorizationRequest(w http.ResponseWriter, r *http.Request) (*storage.AuthorizationRequest, error) {
	req, err := s.load(r)
	deleteCookie(w, authRequestCookie)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// RedirectURI returns the URL-decoded redirect target cookie value, or
// "" when the cookie is absent or malformed.
func (s *RequestStore) RedirectURI(r *http.Request) string {
	raw := readCookie(r, redirectURICookie)
	if raw == "" {
		return ""
	}
	uri, err := url.QueryUnescape(raw)
	if err != nil {
		return ""
	}
	if s.validator != nil && !s.validator.IsAllowed(uri) {
		return ""
	}
	return uri
}

// ClearRedirectURI expires the redirect target cookie.
func (s *RequestStore) ClearRedirectURI(w http.ResponseWriter, r *http.Request) {
	deleteCookie(w, redirectURICookie)
}

func (s *RequestStore) load(r *http.Request) (*storage.AuthorizationRequest, error) {
	blob := readCookie(r, authRequestCookie)
	if blob == "" {
		return nil, storage.ErrStateNotFound
	}
	start := time.Now()
	payload, err := s.codec.Decrypt(blob)
	recordCrypto(r.Context(), s.metrics, "decrypt", start, err)
	if err != nil {
		s.logger.Warn("failed to decrypt authorization request cookie", "error", err)
		return nil, storage.ErrStateNotFound
	}
	var req storage.AuthorizationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("failed to decode authorization request cookie", "error", err)
		return nil, storage.ErrStateNotFound
	}
	if state := stateParam(r); state != "" && state != req.State {
		return nil, storage.ErrStateNotFound
	}
	if req.IsExpiredAt(s.now()) {
		return nil, storage.ErrStateExpired
	}
	return &req, nil
}

func stateParam(r *http.Request) string {
	if v := r.URL.Query().Get("state"); v != "" {
		return v
	}
	if r.Method == http.MethodPost {
		return r.PostFormValue("state")
	}
	return ""
}
