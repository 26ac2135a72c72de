package encryption

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// Sealer encrypts and authenticates byte payloads.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Algorithm names a supported AEAD cipher.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM, the default.
	AlgorithmAESGCM Algorithm = "aes-256-gcm"
	// AlgorithmChaCha20 is ChaCha20-Poly1305, fast on CPUs without AES-NI.
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// Option configures New.
type Option func(*options)

type options struct {
	algorithm Algorithm
}

// WithAlgorithm selects the cipher. An empty algorithm keeps the default.
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) {
		if alg != "" {
			o.algorithm = alg
		}
	}
}

// New creates a Sealer for key.
func New(key string, opts ...Option) (Sealer, error) {
	if key == "" {
		return nil, fmt.Errorf("encryption: empty key")
	}
	o := &options{algorithm: AlgorithmAESGCM}
	for _, opt := range opts {
		opt(o)
	}
	switch o.algorithm {
	case AlgorithmAESGCM:
		return newAESGCM(deriveKey(key))
	case AlgorithmChaCha20:
		return newChaCha20(deriveKey(key))
	}
	return nil, fmt.Errorf("encryption: unknown algorithm %q", o.algorithm)
}

func deriveKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

// aead is the cipher surface both algorithms share.
type aead interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}

type sealer struct {
	aead aead
}

func (s *sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+32)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("encryption: generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("encryption: payload too short")
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("encryption: open: %w", err)
	}
	return plaintext, nil
}
