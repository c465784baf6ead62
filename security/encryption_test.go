package security

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	if len(key) != KeySize {
		t.Errorf("GenerateKey() returned key of length %d, want %d", len(key), KeySize)
	}

	key2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	if bytes.Equal(key, key2) {
		t.Error("GenerateKey() returned identical keys")
	}
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "short secret is zero padded", secret: "short"},
		{name: "exact 32 bytes", secret: "0123456789abcdef0123456789abcdef"},
		{name: "long secret is truncated", secret: "0123456789abcdef0123456789abcdefEXTRA"},
		{name: "empty secret", secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := DeriveKey(tt.secret)
			if len(key) != KeySize {
				t.Fatalf("DeriveKey() key length = %d, want %d", len(key), KeySize)
			}
			// Derivation must be deterministic.
			if !bytes.Equal(key, DeriveKey(tt.secret)) {
				t.Error("DeriveKey() is not deterministic")
			}
		})
	}

	// Truncation keeps only the first 32 bytes.
	long := DeriveKey("0123456789abcdef0123456789abcdefEXTRA")
	exact := DeriveKey("0123456789abcdef0123456789abcdef")
	if !bytes.Equal(long, exact) {
		t.Error("DeriveKey() did not truncate long secret to first 32 bytes")
	}
}

func TestDeriveKeyScrypt(t *testing.T) {
	salt := []byte("social-auth-test-salt")

	key, err := DeriveKeyScrypt("secret", salt)
	if err != nil {
		t.Fatalf("DeriveKeyScrypt() error = %v", err)
	}
	if len(key) != KeySize {
		t.Errorf("DeriveKeyScrypt() key length = %d, want %d", len(key), KeySize)
	}

	again, err := DeriveKeyScrypt("secret", salt)
	if err != nil {
		t.Fatalf("DeriveKeyScrypt() error = %v", err)
	}
	if !bytes.Equal(key, again) {
		t.Error("DeriveKeyScrypt() is not deterministic for same secret+salt")
	}

	other, err := DeriveKeyScrypt("other", salt)
	if err != nil {
		t.Fatalf("DeriveKeyScrypt() error = %v", err)
	}
	if bytes.Equal(key, other) {
		t.Error("DeriveKeyScrypt() returned same key for different secrets")
	}

	if _, err := DeriveKeyScrypt("secret", nil); err == nil {
		t.Error("DeriveKeyScrypt() with empty salt should fail")
	}
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{name: "valid 32-byte key", key: make([]byte, 32), wantErr: false},
		{name: "nil key", key: nil, wantErr: true},
		{name: "16-byte key", key: make([]byte, 16), wantErr: true},
		{name: "64-byte key", key: make([]byte, 64), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCodec() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCodec_EncryptDecrypt(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	codec, err := NewCodec(key)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "simple string", plaintext: "hello world"},
		{name: "empty", plaintext: ""},
		{name: "json payload", plaintext: `{"state":"abc","scopes":["profile","email"]}`},
		{name: "unicode", plaintext: "빨간캡슐#1234"},
		{name: "binary-ish", plaintext: "\x00\x01\x02\xff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := codec.Encrypt([]byte(tt.plaintext))
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			// Blob must be valid URL-safe base64 without padding.
			if _, err := base64.RawURLEncoding.DecodeString(blob); err != nil {
				t.Errorf("Encrypt() output is not raw URL base64: %v", err)
			}

			got, err := codec.Decrypt(blob)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if string(got) != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestCodec_IVFreshness(t *testing.T) {
	key, _ := GenerateKey()
	codec, _ := NewCodec(key)

	blob1, err := codec.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	blob2, err := codec.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if blob1 == blob2 {
		t.Error("two Encrypt() calls for the same plaintext produced identical blobs")
	}
}

func TestCodec_WrongKey(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()
	codec1, _ := NewCodec(key1)
	codec2, _ := NewCodec(key2)

	blob, err := codec1.Encrypt([]byte("secret payload"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := codec2.Decrypt(blob); err == nil {
		t.Error("Decrypt() with wrong key should fail")
	}
}

func TestCodec_DecryptFailsClosed(t *testing.T) {
	key, _ := GenerateKey()
	codec, _ := NewCodec(key)

	blob, err := codec.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	tests := []struct {
		name string
		blob string
	}{
		{name: "not base64", blob: "%%%not-base64%%%"},
		{name: "empty", blob: ""},
		{name: "too short for IV", blob: base64.RawURLEncoding.EncodeToString([]byte("tiny"))},
		{name: "bit flip", blob: flipLastChar(blob)},
		{name: "truncated", blob: blob[:len(blob)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decrypt(tt.blob)
			if err == nil {
				t.Fatalf("Decrypt(%q) should fail, got %q", tt.blob, got)
			}
			if got != nil {
				t.Errorf("Decrypt() returned partial plaintext %q on failure", got)
			}
		})
	}
}

func flipLastChar(s string) string {
	b := []byte(s)
	last := b[len(b)-1]
	if last == 'A' {
		b[len(b)-1] = 'B'
	} else {
		b[len(b)-1] = 'A'
	}
	return string(b)
}
