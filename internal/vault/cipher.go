// Package vault resolves and decrypts per-venue API credentials across
// an encryption-key rotation boundary.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

const keySize = 32

var (
	ErrNoKeys            = errors.New("vault: no candidate keys configured")
	ErrInvalidCiphertext = errors.New("vault: invalid ciphertext format")
	ErrDecryptionFailed  = errors.New("vault: decryption failed under all candidate keys")
)

// Cipher decrypts AES-256-GCM payloads, trying an ordered list of
// candidate keys. The list form outlives any single rotation: adding a
// key version means appending a candidate, not changing the decrypt path.
type Cipher struct {
	candidates [][]byte
}

// NewCipher derives the candidate keys from the master key string:
// the current key is SHA-256 of the string, the legacy key is the raw
// bytes zero-padded (or truncated) to 32 — the padding scheme the
// pre-rotation deployment used. Current is always tried first.
func NewCipher(masterKey string) (*Cipher, error) {
	if masterKey == "" {
		return nil, ErrNoKeys
	}

	current := sha256.Sum256([]byte(masterKey))

	legacy := make([]byte, keySize)
	copy(legacy, []byte(masterKey))

	return &Cipher{candidates: [][]byte{current[:], legacy}}, nil
}

// Decrypt opens a base64 ciphertext with the base64 IV, trying each
// candidate key in order. Any per-key failure (tag mismatch, malformed
// data) falls through to the next candidate.
func (c *Cipher) Decrypt(ciphertextB64, ivB64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", fmt.Errorf("%w: bad iv: %v", ErrInvalidCiphertext, err)
	}

	for _, key := range c.candidates {
		plaintext, err := open(key, iv, data)
		if err == nil {
			return plaintext, nil
		}
	}
	return "", ErrDecryptionFailed
}

// Encrypt seals plaintext under the current key with the caller's IV.
// Used by onboarding tooling and tests; the aggregation path only reads.
func (c *Cipher) Encrypt(plaintext string, iv []byte) (string, error) {
	gcm, err := newGCM(c.candidates[0], len(iv))
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func open(key, iv, data []byte) (string, error) {
	gcm, err := newGCM(key, len(iv))
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, iv, data, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if nonceSize <= 0 {
		return nil, ErrInvalidCiphertext
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}
