package socialauth

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/gotchalabs/social-auth/security"
)

// ProviderCredentials holds one provider's OAuth client registration.
type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Configured reports whether the provider has credentials at all.
func (c ProviderCredentials) Configured() bool {
	return c.ClientID != ""
}

// Config configures the login subsystem.
type Config struct {
	// EncryptionSecret derives the AES key protecting cookie payloads.
	EncryptionSecret string `env:"AUTH_ENCRYPTION_SECRET"`

	// AuthorizedRedirectURIs is the comma-separated redirect allow list.
	AuthorizedRedirectURIs string `env:"AUTH_AUTHORIZED_REDIRECT_URIS"`

	// DefaultRedirectURI is used when the client requested no target.
	DefaultRedirectURI string `env:"AUTH_DEFAULT_REDIRECT_URI"`

	// DefaultAvatarURL is applied to new accounts when the provider
	// supplies no profile image.
	DefaultAvatarURL string `env:"AUTH_DEFAULT_AVATAR_URL"`

	// CookieBacked selects the cookie store implementations instead of
	// the in-memory ones.
	CookieBacked bool `env:"AUTH_COOKIE_BACKED"`

	// TrustProxy honors X-Forwarded-For and X-Real-IP when extracting
	// client addresses. TrustedProxyCount is the number of proxies in
	// front of the service.
	TrustProxy        bool `env:"AUTH_TRUST_PROXY"`
	TrustedProxyCount int  `env:"AUTH_TRUSTED_PROXY_COUNT"`

	// Rate limiting for the authorize and exchange endpoints, per
	// client IP. A non-positive rate disables limiting.
	RateLimitPerSecond int `env:"AUTH_RATE_LIMIT_PER_SECOND" envDefault:"5"`
	RateLimitBurst     int `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// AuditEnabled turns security audit logging on.
	AuditEnabled bool `env:"AUTH_AUDIT_ENABLED" envDefault:"true"`

	Kakao  ProviderCredentials `envPrefix:"AUTH_KAKAO_"`
	Naver  ProviderCredentials `envPrefix:"AUTH_NAVER_"`
	Google ProviderCredentials `envPrefix:"AUTH_GOOGLE_"`
	Apple  ProviderCredentials `envPrefix:"AUTH_APPLE_"`
}

// FromEnv builds a Config from the process environment and validates
// it.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for unusable combinations.
func (c *Config) Validate() error {
	if c.EncryptionSecret == "" {
		return errors.New("encryption secret is required")
	}
	if c.DefaultRedirectURI == "" {
		return errors.New("default redirect URI is required")
	}
	if !c.Kakao.Configured() && !c.Naver.Configured() && !c.Google.Configured() && !c.Apple.Configured() {
		return errors.New("at least one provider must be configured")
	}
	return nil
}

// RedirectPolicy builds the redirect allow-list policy for this config.
func (c *Config) RedirectPolicy() *RedirectPolicy {
	return &RedirectPolicy{
		Authorized: c.AuthorizedRedirectURIs,
		Default:    c.DefaultRedirectURI,
	}
}

// Codec builds the cookie encryption codec for this config.
func (c *Config) Codec() (*security.Codec, error) {
	return security.NewCodec(security.DeriveKey(c.EncryptionSecret))
}
