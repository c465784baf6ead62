package cookie

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gotchalabs/social-auth/instrumentation"
	"github.com/gotchalabs/social-auth/security"
	"github.com/gotchalabs/social-auth/storage"
)

type tokenEnvelope struct {
	storage.TokenBundle
	CreatedAt time.Time `json:"createdAt"`
}

// ExchangeCache is a storage.ExchangeStore that parks the token bundle
// in an encrypted cookie on the client itself. The returned code is an
// opaque handle for API symmetry; possession of the cookie is what
// authorizes the exchange.
type ExchangeCache struct {
	codec   *security.Codec
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     security.NowFunc
	newCode func() string
}

var _ storage.ExchangeStore = (*ExchangeCache)(nil)

// NewExchangeCache creates a cookie-backed ExchangeCache.
func NewExchangeCache(codec *security.Codec) *ExchangeCache {
	return &ExchangeCache{
		codec:   codec,
		logger:  slog.Default(),
		now:     time.Now,
		newCode: uuid.NewString,
	}
}

// SetLogger replaces the cache's logger.
func (c *ExchangeCache) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetClock replaces the cache's time source. Intended for tests.
func (c *ExchangeCache) SetClock(now security.NowFunc) {
	if now != nil {
		c.now = now
	}
}

// SetInstrumentation attaches metric recording for codec operations.
func (c *ExchangeCache) SetInstrumentation(inst *instrumentation.Instrumentation) {
	if inst != nil {
		c.metrics = inst.Metrics()
	}
}

// StoreTokens encrypts bundle into the token data cookie and returns a
// fresh code.
func (c *ExchangeCache) StoreTokens(w http.ResponseWriter, r *http.Request, bundle *storage.TokenBundle) (string, error) {
	if bundle == nil {
		return "", storage.ErrCodeNotFound
	}
	env := tokenEnvelope{TokenBundle: *bundle, CreatedAt: c.now()}
	payload, err := json.Marshal(&env)
	if err != nil {
		return "", err
	}
	start := time.Now()
	blob, err := c.codec.Encrypt(payload)
	recordCrypto(r.Context(), c.metrics, "encrypt", start, err)
	if err != nil {
		return "", err
	}
	setSameSiteCookie(w, tokenDataCookie, blob, int(storage.ExchangeCodeTTL.Seconds()))
	return c.newCode(), nil
}

// ExchangeCode reads and clears the token data cookie. The cookie is
// cleared even when it fails to decrypt or decode, so a corrupt value
// cannot be retried.
func (c *ExchangeCache) ExchangeCode(w http.ResponseWriter, r *http.Request, code string) (*storage.TokenBundle, error) {
	blob := readCookie(r, tokenDataCookie)
	if blob == "" {
		return nil, storage.ErrCodeNotFound
	}
	deleteCookie(w, tokenDataCookie)

	start := time.Now()
	payload, err := c.codec.Decrypt(blob)
	recordCrypto(r.Context(), c.metrics, "decrypt", start, err)
	if err != nil {
		c.logger.Warn("failed to decrypt token data cookie", "error", err)
		return nil, storage.ErrCodeNotFound
	}
	var env tokenEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.logger.Warn("failed to decode token data cookie", "error", err)
		return nil, storage.ErrCodeNotFound
	}
	if security.IsExpiredAt(c.now(), env.CreatedAt, storage.ExchangeCodeTTL) {
		return nil, storage.ErrCodeNotFound
	}
	bundle := env.TokenBundle
	return &bundle, nil
}
