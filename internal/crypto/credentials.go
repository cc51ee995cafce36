// Package crypto seals model credentials before they are written to the
// database and opens them again right before an inference call.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	ErrEmptyKey   = errors.New("credentials key must not be empty")
	ErrOpenFailed = errors.New("credential could not be decrypted")
)

// Cipher seals and opens credential strings. Empty input passes through.
type Cipher interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Plaintext stores credentials as given. Used when no key is configured.
type Plaintext struct{}

func (Plaintext) Seal(s string) (string, error) { return s, nil }
func (Plaintext) Open(s string) (string, error) { return s, nil }

// AESCipher is AES-256-GCM with the nonce prepended to the ciphertext and
// the result base64 encoded.
type AESCipher struct {
	aead cipher.AEAD
}

// NewAESCipher derives a 32-byte key from key: a base64 string decoding to
// exactly 32 bytes is used as is, anything else is hashed with SHA-256.
func NewAESCipher(key string) (*AESCipher, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 32 {
		sum := sha256.Sum256([]byte(key))
		raw = sum[:]
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("create aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &AESCipher{aead: aead}, nil
}

func (c *AESCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *AESCipher) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: not base64", ErrOpenFailed)
	}
	n := c.aead.NonceSize()
	if len(data) < n+c.aead.Overhead() {
		return "", fmt.Errorf("%w: too short", ErrOpenFailed)
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrOpenFailed)
	}
	return string(plain), nil
}

// New returns an AESCipher for a non-empty key and Plaintext otherwise.
func New(key string) (Cipher, error) {
	if key == "" {
		return Plaintext{}, nil
	}
	return NewAESCipher(key)
}
