package socialauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gotchalabs/social-auth/identity"
	"github.com/gotchalabs/social-auth/instrumentation"
	"github.com/gotchalabs/social-auth/providers"
	"github.com/gotchalabs/social-auth/security"
	"github.com/gotchalabs/social-auth/storage"
)

// TokenMinter issues the application's own session tokens once a user
// is resolved.
type TokenMinter interface {
	MintTokens(ctx context.Context, user *identity.User) (accessToken, refreshToken string, err error)
}

// RefreshTokenSaver persists minted refresh tokens so they can be
// rotated and revoked later.
type RefreshTokenSaver interface {
	SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error
}

// FlowConfig wires a Flow's collaborators. Authenticators, Requests,
// Exchanges, Resolver, Minter, and Redirects are required.
type FlowConfig struct {
	Authenticators []providers.Authenticator
	Requests       storage.AuthRequestStore
	Exchanges      storage.ExchangeStore
	Resolver       *identity.Resolver
	Minter         TokenMinter
	RefreshSaver   RefreshTokenSaver
	Redirects      *RedirectPolicy
}

// Flow drives a social login end to end: authorize redirect, provider
// callback, and the one-time code exchange handing tokens to the
// client.
type Flow struct {
	authenticators map[providers.Provider]providers.Authenticator
	requests       storage.AuthRequestStore
	exchanges      storage.ExchangeStore
	resolver       *identity.Resolver
	minter         TokenMinter
	refreshSaver   RefreshTokenSaver
	redirects      *RedirectPolicy

	logger   *slog.Logger
	auditor  *security.Auditor
	limiter  *security.RateLimiter
	metrics  *instrumentation.Metrics
	newState func() string

	trustProxy        bool
	trustedProxyCount int
}

// NewFlow validates cfg and builds a Flow.
func NewFlow(cfg FlowConfig) (*Flow, error) {
	switch {
	case len(cfg.Authenticators) == 0:
		return nil, errors.New("at least one authenticator is required")
	case cfg.Requests == nil:
		return nil, errors.New("request store is required")
	case cfg.Exchanges == nil:
		return nil, errors.New("exchange store is required")
	case cfg.Resolver == nil:
		return nil, errors.New("resolver is required")
	case cfg.Minter == nil:
		return nil, errors.New("token minter is required")
	case cfg.Redirects == nil:
		return nil, errors.New("redirect policy is required")
	}

	byProvider := make(map[providers.Provider]providers.Authenticator, len(cfg.Authenticators))
	for _, a := range cfg.Authenticators {
		if _, dup := byProvider[a.Provider()]; dup {
			return nil, fmt.Errorf("duplicate authenticator for %s", a.Provider())
		}
		byProvider[a.Provider()] = a
	}

	return &Flow{
		authenticators: byProvider,
		requests:       cfg.Requests,
		exchanges:      cfg.Exchanges,
		resolver:       cfg.Resolver,
		minter:         cfg.Minter,
		refreshSaver:   cfg.RefreshSaver,
		redirects:      cfg.Redirects,
		logger:         slog.Default(),
		newState:       uuid.NewString,
	}, nil
}

// SetLogger replaces the flow's logger.
func (f *Flow) SetLogger(logger *slog.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// SetAuditor attaches a security audit logger.
func (f *Flow) SetAuditor(a *security.Auditor) { f.auditor = a }

// SetRateLimiter attaches a per-IP rate limiter for the authorize and
// exchange endpoints.
func (f *Flow) SetRateLimiter(l *security.RateLimiter) { f.limiter = l }

// SetProxyTrust controls whether forwarding headers are honored when
// extracting the client address used for rate limiting and auditing.
// count is the number of proxies under our control in front of the
// service; leave trust false when clients connect directly.
func (f *Flow) SetProxyTrust(trust bool, count int) {
	f.trustProxy = trust
	f.trustedProxyCount = count
}

// SetInstrumentation attaches metric recording.
func (f *Flow) SetInstrumentation(inst *instrumentation.Instrumentation) {
	if inst != nil {
		f.metrics = inst.Metrics()
	}
}

// HandleAuthorize starts a login: it records the authorization request
// and redirects the browser to the provider. The provider comes from
// the "provider" query or path value; an optional "redirect_uri" query
// names the post-login target.
func (f *Flow) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !f.allow(w, r, "authorize") {
		return
	}

	name := r.PathValue("provider")
	if name == "" {
		name = r.URL.Query().Get("provider")
	}
	p, err := providers.ParseProvider(name)
	if err != nil {
		f.writeError(w, NewAuthError(CodeUnknownProvider))
		return
	}
	authenticator, ok := f.authenticators[p]
	if !ok {
		f.writeError(w, NewAuthError(CodeUnknownProvider))
		return
	}

	state := f.newState()
	authURL := authenticator.AuthCodeURL(state)
	req := &storage.AuthorizationRequest{
		AuthorizationURL: authURL,
		ClientID:         authenticator.ClientID(),
		RedirectURI:      r.URL.Query().Get("redirect_uri"),
		State:            state,
		Attributes:       map[string]string{"provider": p.String()},
	}
	if req.RedirectURI != "" && !f.redirects.IsAllowed(req.RedirectURI) {
		f.blockRedirect(ctx, r, req.RedirectURI)
		req.RedirectURI = ""
	}
	start := time.Now()
	err = f.requests.SaveAuthorizationRequest(w, r, req)
	f.recordStoreOp(ctx, "save_auth_request", start, err)
	if err != nil {
		f.logger.Error("failed to save authorization request",
			"provider", p, "error", err)
		f.writeError(w, NewAuthError(CodeSocialLoginFailed))
		return
	}

	if f.metrics != nil {
		f.metrics.RecordLoginStarted(ctx, p.String())
	}
	f.logger.Info("starting social login", "provider", p)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback completes a login from the provider's redirect. Apple
// posts the callback as a form; everyone else uses query parameters.
func (f *Flow) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if providerErr := callbackParam(r, "error"); providerErr != "" {
		// Consume the pending request so the state cannot be replayed.
		_, _ = f.requests.RemoveAuthorizationRequest(w, r)
		f.HandleFailure(w, r, "", ClassifyCallbackError(providerErr))
		return
	}

	start := time.Now()
	authReq, err := f.requests.RemoveAuthorizationRequest(w, r)
	f.recordStoreOp(ctx, "remove_auth_request", start, err)
	if err != nil {
		if errors.Is(err, storage.ErrStateNotFound) {
			f.recordStateReplay(ctx, r)
		}
		f.HandleFailure(w, r, "", ClassifyError(err))
		return
	}

	p, err := providers.ParseProvider(authReq.Attributes["provider"])
	if err != nil {
		f.HandleFailure(w, r, "", ClassifyError(err))
		return
	}
	authenticator, ok := f.authenticators[p]
	if !ok {
		f.HandleFailure(w, r, p.String(), NewAuthError(CodeUnknownProvider))
		return
	}

	ext, err := authenticator.CompleteLogin(ctx, providers.Callback{
		Code:        callbackParam(r, "code"),
		UserPayload: callbackParam(r, "user"),
	})
	if err != nil {
		f.logger.Warn("provider login failed", "provider", p, "error", err)
		f.HandleFailure(w, r, p.String(), ClassifyError(err))
		return
	}

	user, isNew, err := f.resolver.Resolve(ctx, ext)
	if err != nil {
		f.logger.Warn("identity resolution failed", "provider", p, "error", err)
		f.HandleFailure(w, r, p.String(), ClassifyError(err))
		return
	}

	f.HandleSuccess(w, r, user, isNew)
}

// HandleSuccess mints session tokens for user, parks them behind a
// one-time code, and redirects the browser to the post-login target
// with only that code attached.
func (f *Flow) HandleSuccess(w http.ResponseWriter, r *http.Request, user *identity.User, isNew bool) {
	ctx := r.Context()

	access, refresh, err := f.minter.MintTokens(ctx, user)
	if err != nil {
		f.logger.Error("failed to mint tokens", "user_id", user.ID, "error", err)
		f.HandleFailure(w, r, user.Provider.String(), NewAuthError(CodeSocialLoginFailed))
		return
	}
	if f.refreshSaver != nil {
		if err := f.refreshSaver.SaveRefreshToken(ctx, user.ID, refresh); err != nil {
			f.logger.Error("failed to save refresh token", "user_id", user.ID, "error", err)
			f.HandleFailure(w, r, user.Provider.String(), NewAuthError(CodeSocialLoginFailed))
			return
		}
	}

	start := time.Now()
	code, err := f.exchanges.StoreTokens(w, r, &storage.TokenBundle{
		AccessToken:  access,
		RefreshToken: refresh,
		IsNewUser:    isNew,
	})
	f.recordStoreOp(ctx, "store_tokens", start, err)
	if err != nil {
		f.logger.Error("failed to park tokens", "user_id", user.ID, "error", err)
		f.HandleFailure(w, r, user.Provider.String(), NewAuthError(CodeSocialLoginFailed))
		return
	}

	target := f.redirects.Resolve(f.requests.RedirectURI(r))
	f.requests.ClearRedirectURI(w, r)

	if f.auditor != nil {
		f.auditor.LogLoginSucceeded(fmt.Sprintf("%d", user.ID), user.Provider.String(), f.clientIP(r), isNew)
		f.auditor.LogExchangeCodeIssued(fmt.Sprintf("%d", user.ID), f.clientIP(r))
	}
	if f.metrics != nil {
		f.metrics.RecordCallbackProcessed(ctx, user.Provider.String(), true)
	}
	f.logger.Info("social login succeeded",
		"provider", user.Provider, "user_id", user.ID, "new_user", isNew)

	http.Redirect(w, r, appendQuery(target, url.Values{"code": {code}}), http.StatusFound)
}

// HandleFailure redirects the browser to the post-login target carrying
// only the safe error code and message.
func (f *Flow) HandleFailure(w http.ResponseWriter, r *http.Request, provider string, authErr *AuthError) {
	target := f.redirects.Resolve(f.requests.RedirectURI(r))
	f.requests.ClearRedirectURI(w, r)

	if f.auditor != nil {
		f.auditor.LogLoginFailed(provider, f.clientIP(r), authErr.Code)
	}
	if f.metrics != nil {
		f.metrics.RecordCallbackProcessed(r.Context(), provider, false)
	}

	http.Redirect(w, r, appendQuery(target, url.Values{
		"error":   {authErr.Code},
		"message": {authErr.Message},
	}), http.StatusFound)
}

// exchangeResponse is the JSON body returned to the client on a
// successful code exchange.
type exchangeResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	IsNewUser    bool   `json:"isNewUser"`
}

// HandleTokenExchange redeems a one-time code for the parked session
// tokens. The code comes from the "code" form or query value.
func (f *Flow) HandleTokenExchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !f.allow(w, r, "exchange") {
		return
	}

	code := r.FormValue("code")
	start := time.Now()
	bundle, err := f.exchanges.ExchangeCode(w, r, code)
	f.recordStoreOp(ctx, "exchange_code", start, err)
	if err != nil {
		if f.auditor != nil {
			f.auditor.LogExchangeCodeRejected(f.clientIP(r), CodeInvalidCode)
		}
		if f.metrics != nil {
			f.metrics.RecordCodeExchange(ctx, false)
		}
		f.writeError(w, NewAuthError(CodeInvalidCode))
		return
	}

	if f.metrics != nil {
		f.metrics.RecordCodeExchange(ctx, true)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(exchangeResponse{
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		IsNewUser:    bundle.IsNewUser,
	})
}

func (f *Flow) allow(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	if f.limiter == nil || f.limiter.Allow(f.clientIP(r)) {
		return true
	}
	if f.metrics != nil {
		f.metrics.RecordRateLimitExceeded(r.Context(), endpoint)
	}
	f.logger.Warn("rate limit exceeded", "endpoint", endpoint, "ip", f.clientIP(r))
	f.writeError(w, NewAuthError(CodeTooManyRequests))
	return false
}

func (f *Flow) blockRedirect(ctx context.Context, r *http.Request, uri string) {
	if f.auditor != nil {
		f.auditor.LogRedirectURIBlocked(f.clientIP(r), uri)
	}
	if f.metrics != nil {
		f.metrics.RecordRedirectURIBlocked(ctx)
	}
}

func (f *Flow) recordStateReplay(ctx context.Context, r *http.Request) {
	if f.auditor != nil {
		f.auditor.LogEvent(security.Event{
			Type:      security.EventStateReplayDetected,
			IPAddress: f.clientIP(r),
		})
	}
	if f.metrics != nil {
		f.metrics.RecordStateReplay(ctx, "")
	}
}

func (f *Flow) writeError(w http.ResponseWriter, authErr *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   authErr.Code,
		"message": authErr.Message,
	})
}

// callbackParam reads a callback value from the query string or, for
// form_post callbacks, the body.
func callbackParam(r *http.Request, name string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	if r.Method == http.MethodPost {
		return r.PostFormValue(name)
	}
	return ""
}

// appendQuery adds params to target, preserving any existing query.
func appendQuery(target string, params url.Values) string {
	u, err := url.Parse(target)
	if err != nil {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		return target + sep + params.Encode()
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (f *Flow) clientIP(r *http.Request) string {
	return security.ClientIP(r, f.trustProxy, f.trustedProxyCount)
}

// recordStoreOp reports a store operation's outcome and latency.
func (f *Flow) recordStoreOp(ctx context.Context, operation string, start time.Time, err error) {
	if f.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	f.metrics.RecordStoreOperation(ctx, operation, result,
		float64(time.Since(start).Microseconds())/1000.0)
}
