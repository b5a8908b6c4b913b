// Package crypto seals stored document content with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
	NonceSize = 12
	// KeySize - длина ключа AES-256
	KeySize = 32
)

// ErrOpenFailed indicates a wrong key, a foreign associated data or
// corrupted ciphertext.
var ErrOpenFailed = errors.New("failed to open sealed data")

// Cipher seals and opens byte strings with one AES-256-GCM key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher for a 32 byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Seal шифрует plaintext, привязывая результат к ad.
// Формат результата: nonce (12 bytes) + ciphertext + auth_tag (16 bytes)
func (c *Cipher) Seal(plaintext, ad []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// GCM дописывает authentication tag в конец
	return c.aead.Seal(nonce, nonce, plaintext, ad), nil
}

// Open расшифровывает результат Seal с тем же ad.
func (c *Cipher) Open(sealed, ad []byte) ([]byte, error) {
	if len(sealed) < NonceSize+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: data too short", ErrOpenFailed)
	}

	nonce := sealed[:NonceSize]
	plaintext, err := c.aead.Open(nil, nonce, sealed[NonceSize:], ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	return plaintext, nil
}
