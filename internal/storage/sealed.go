package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Sealing errors.
var (
	ErrKeyTooShort  = errors.New("storage: encryption key too short (minimum 16 bytes)")
	ErrUnsealFailed = errors.New("storage: unseal failed - wrong key or corrupted value")
)

const (
	// MinKeyLength is the minimum accepted encryption key length.
	MinKeyLength = 16

	sealedPrefix = "dxs1:"
	hkdfInfo     = "dxshell storage value v1"
)

// SealedStore encrypts values with XChaCha20-Poly1305 before handing them
// to the wrapped store. The storage key is bound as additional data, so a
// sealed value copied under another key fails to open.
type SealedStore struct {
	inner Store
	aead  interface {
		NonceSize() int
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewSealedStore derives a 256-bit key from masterKey with HKDF-SHA256.
func NewSealedStore(inner Store, masterKey []byte) (*SealedStore, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("storage: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("storage: init cipher: %w", err)
	}
	return &SealedStore{inner: inner, aead: aead}, nil
}

// Get opens the value stored under key.
func (s *SealedStore) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := s.open(key, raw)
	if err != nil {
		return "", false, err
	}
	return plain, true, nil
}

// Set seals value and stores it under key.
func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

// Remove deletes key from the wrapped store.
func (s *SealedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

// Close closes the wrapped store.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}

// Unwrap returns the wrapped store.
func (s *SealedStore) Unwrap() Store {
	return s.inner
}

func (s *SealedStore) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("storage: nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *SealedStore) open(key, raw string) (string, error) {
	if len(raw) < len(sealedPrefix) || raw[:len(sealedPrefix)] != sealedPrefix {
		return "", ErrUnsealFailed
	}
	data, err := base64.RawStdEncoding.DecodeString(raw[len(sealedPrefix):])
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", ErrUnsealFailed
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", ErrUnsealFailed
	}
	return string(plain), nil
}
