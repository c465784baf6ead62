package socialauth

import (
	"testing"
)

func validConfig() *Config {
	return &Config{
		EncryptionSecret:   "test-secret",
		DefaultRedirectURI: "https://app.example.com/done",
		Kakao:              ProviderCredentials{ClientID: "kakao-client"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.EncryptionSecret = "" }, true},
		{"missing default redirect", func(c *Config) { c.DefaultRedirectURI = "" }, true},
		{"no providers", func(c *Config) { c.Kakao = ProviderCredentials{} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AUTH_ENCRYPTION_SECRET", "env-secret")
	t.Setenv("AUTH_DEFAULT_REDIRECT_URI", "https://app.example.com/done")
	t.Setenv("AUTH_AUTHORIZED_REDIRECT_URIS", "https://app.example.com/done,https://admin.example.com/done")
	t.Setenv("AUTH_KAKAO_CLIENT_ID", "kakao-client")
	t.Setenv("AUTH_KAKAO_CLIENT_SECRET", "kakao-secret")
	t.Setenv("AUTH_COOKIE_BACKED", "true")
	t.Setenv("AUTH_DEFAULT_AVATAR_URL", "https://cdn.example.com/default.png")
	t.Setenv("AUTH_TRUST_PROXY", "true")
	t.Setenv("AUTH_TRUSTED_PROXY_COUNT", "2")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.EncryptionSecret != "env-secret" {
		t.Errorf("EncryptionSecret = %q", cfg.EncryptionSecret)
	}
	if !cfg.CookieBacked {
		t.Error("expected CookieBacked")
	}
	if cfg.Kakao.ClientID != "kakao-client" || cfg.Kakao.ClientSecret != "kakao-secret" {
		t.Errorf("Kakao credentials = %+v", cfg.Kakao)
	}
	if cfg.RateLimitPerSecond != 5 || cfg.RateLimitBurst != 10 {
		t.Errorf("rate limit defaults = %d/%d", cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}
	if !cfg.AuditEnabled {
		t.Error("expected audit enabled by default")
	}
	if cfg.DefaultAvatarURL != "https://cdn.example.com/default.png" {
		t.Errorf("DefaultAvatarURL = %q", cfg.DefaultAvatarURL)
	}
	if !cfg.TrustProxy || cfg.TrustedProxyCount != 2 {
		t.Errorf("proxy trust = %v/%d", cfg.TrustProxy, cfg.TrustedProxyCount)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("AUTH_ENCRYPTION_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Error("expected validation error")
	}
}

func TestConfig_RedirectPolicyAndCodec(t *testing.T) {
	cfg := validConfig()
	cfg.AuthorizedRedirectURIs = "https://app.example.com/done"

	p := cfg.RedirectPolicy()
	if !p.IsAllowed("https://app.example.com/done") {
		t.Error("policy should allow the configured URI")
	}
	if p.Default != cfg.DefaultRedirectURI {
		t.Errorf("policy default = %q", p.Default)
	}

	codec, err := cfg.Codec()
	if err != nil {
		t.Fatalf("Codec: %v", err)
	}
	blob, err := codec.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if got, err := codec.Decrypt(blob); err != nil || string(got) != "payload" {
		t.Errorf("roundtrip = %q, %v", got, err)
	}
}
