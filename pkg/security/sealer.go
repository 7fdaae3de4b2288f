// Package security seals values at rest in the durable storage backend.
package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/angelmondragon/storefront/pkg/storage"
)

// ErrInvalidSealed signals a value that was not produced by this sealer's key.
var ErrInvalidSealed = errors.New("invalid sealed value")

// KeyParams captures the Argon2id parameters used to derive the sealing key.
type KeyParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// DefaultKeyParams are tuned for a one-off derivation at startup.
var DefaultKeyParams = KeyParams{Memory: 64 * 1024, Time: 1, Parallelism: 2}

// Sealer encrypts strings with XChaCha20-Poly1305 under a passphrase-derived key.
type Sealer struct {
	aead interface {
		NonceSize() int
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewSealer derives a key from passphrase and salt with Argon2id.
func NewSealer(passphrase, salt string, params KeyParams) (*Sealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if len(salt) < 8 {
		return nil, fmt.Errorf("salt must be at least 8 bytes")
	}
	if params.Memory == 0 || params.Time == 0 || params.Parallelism == 0 {
		params = DefaultKeyParams
	}
	key := argon2.IDKey([]byte(passphrase), []byte(salt), params.Time, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts value bound to key and returns base64(nonce || ciphertext).
func (s *Sealer) Seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.RawStdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. A value sealed under another key or storage key fails.
func (s *Sealer) Open(key, sealed string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrInvalidSealed
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", ErrInvalidSealed
	}
	return string(plain), nil
}

// SealedBackend encrypts every value before it reaches the wrapped backend. Values
// that fail to open are reported as storage.ErrCorrupt.
type SealedBackend struct {
	next   storage.Backend
	sealer *Sealer
}

func NewSealedBackend(next storage.Backend, sealer *Sealer) *SealedBackend {
	return &SealedBackend{next: next, sealer: sealer}
}

func (b *SealedBackend) Get(ctx context.Context, key string) (string, error) {
	sealed, err := b.next.Get(ctx, key)
	if err != nil {
		return "", err
	}
	value, err := b.sealer.Open(key, sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %s", storage.ErrCorrupt, err)
	}
	return value, nil
}

func (b *SealedBackend) Set(ctx context.Context, key, value string) error {
	sealed, err := b.sealer.Seal(key, value)
	if err != nil {
		return err
	}
	return b.next.Set(ctx, key, sealed)
}

func (b *SealedBackend) Remove(ctx context.Context, key string) error {
	return b.next.Remove(ctx, key)
}
