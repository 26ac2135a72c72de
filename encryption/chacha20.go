package encryption

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

func newChaCha20(key []byte) (Sealer, error) {
	a, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: create chacha20: %w", err)
	}
	return &sealer{aead: a}, nil
}
