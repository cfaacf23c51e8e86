// Package secrets provides the decrypt capability for workspace bot tokens.
// Key management lives outside this engine; plaintext is never persisted.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/seisline/seisline/internal/domain/notify"
)

var ErrBadKey = errors.New("encryption key must be 32 bytes")

// AESGCM decrypts AES-256-GCM ciphertexts stored as separate
// (ciphertext, iv, tag) columns.
type AESGCM struct {
	key []byte
}

var _ notify.Decrypter = (*AESGCM)(nil)

func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != 32 {
		return nil, ErrBadKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &AESGCM{key: k}, nil
}

func (a *AESGCM) Decrypt(ciphertext, iv, tag []byte) ([]byte, error) {
	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}
	// Go's GCM expects the tag appended to the ciphertext.
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt token: %w", err)
	}
	return plain, nil
}
