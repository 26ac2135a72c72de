package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

func newAESGCM(key []byte) (Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryption: create GCM: %w", err)
	}
	return &sealer{aead: gcm}, nil
}
