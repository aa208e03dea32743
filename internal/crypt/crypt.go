// Package crypt provides authenticated encryption for personal data
// stored at rest and password hashing.
package crypt

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var ErrDecrypt = errors.New("the payload is invalid")

// Encrypter seals strings with XChaCha20-Poly1305. Ciphertext is
// base64(nonce || sealed box).
type Encrypter struct {
	key      []byte
	indexKey []byte
}

// NewEncrypter derives the encryption and blind-index keys from appKey.
// A "base64:" prefixed key is decoded first.
func NewEncrypter(appKey string) (*Encrypter, error) {
	raw, err := decodeKey(appKey)
	if err != nil {
		return nil, err
	}
	if len(raw) < 16 {
		return nil, fmt.Errorf("app key must be at least 16 bytes, got %d", len(raw))
	}

	enc := &Encrypter{
		key:      make([]byte, chacha20poly1305.KeySize),
		indexKey: make([]byte, 32),
	}
	if _, err := hkdf.New(sha256.New, raw, nil, []byte("teamscope field encryption")).Read(enc.key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	if _, err := hkdf.New(sha256.New, raw, nil, []byte("teamscope blind index")).Read(enc.indexKey); err != nil {
		return nil, fmt.Errorf("failed to derive index key: %w", err)
	}
	return enc, nil
}

func decodeKey(appKey string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(appKey, "base64:"); ok {
		raw, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 app key: %w", err)
		}
		return raw, nil
	}
	return []byte(appKey), nil
}

func (e *Encrypter) EncryptString(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *Encrypter) DecryptString(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrDecrypt
	}

	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrDecrypt
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

// BlindIndex is a deterministic keyed digest of a normalized value, used
// to look up and deduplicate encrypted columns.
func (e *Encrypter) BlindIndex(value string) string {
	mac := hmac.New(sha256.New, e.indexKey)
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(value))))
	return hex.EncodeToString(mac.Sum(nil))
}
