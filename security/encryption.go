package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// ivSize is the GCM nonce length. 12 bytes is the standard GCM nonce
	// size; a fresh random nonce is generated per Encrypt call.
	ivSize = 12
)

// ErrDecryptFailed is returned for any decode, key, or authentication-tag
// failure during Decrypt. Callers must treat it as "no value": a tampered or
// foreign blob never yields partial plaintext.
var ErrDecryptFailed = errors.New("decrypt failed")

// Codec seals arbitrary byte payloads into URL-safe, tamper-proof blobs
// using AES-256-GCM. The output format is base64url (no padding) over
// IV || ciphertext || tag.
type Codec struct {
	key []byte
}

// NewCodec creates a codec from a 32-byte AES-256 key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be exactly %d bytes for AES-256, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Codec{key: k}, nil
}

// DeriveKey turns a shared secret string into a 32-byte key by zero-padding
// short secrets and truncating long ones.
//
// This is a deliberate usability tradeoff, not a KDF: it preserves
// compatibility with existing deployments whose key material was provisioned
// as a plain string. New deployments should prefer DeriveKeyScrypt.
func DeriveKey(secret string) []byte {
	key := make([]byte, KeySize)
	copy(key, secret)
	return key
}

// DeriveKeyScrypt stretches a shared secret into a 32-byte key using scrypt
// with interactive-login parameters (N=32768, r=8, p=1). The salt must be
// stable across restarts for blobs to remain decryptable.
func DeriveKeyScrypt(secret string, salt []byte) ([]byte, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt must not be empty")
	}
	key, err := scrypt.Key([]byte(secret), salt, 1<<15, 8, 1, KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext into a self-contained URL-safe blob. A fresh
// random IV is generated on every call, so encrypting the same plaintext
// twice yields different blobs.
func (c *Codec) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal with the IV slice as destination so the blob layout is
	// [iv][ciphertext][tag].
	sealed := gcm.Seal(iv, iv, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It fails closed: any base64 error, truncated
// blob, wrong key, or flipped bit yields ErrDecryptFailed, never garbage
// plaintext.
func (c *Codec) Decrypt(blob string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	if len(sealed) < ivSize {
		return nil, ErrDecryptFailed
	}

	iv, ciphertext := sealed[:ivSize], sealed[ivSize:]
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plaintext, nil
}

// GenerateKey generates a random 32-byte AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}
