package security

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
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidKeyLength  = errors.New("encryption key must be 32 bytes for AES-256")
)

// CredentialVault handles encryption and decryption of stored passwords
type CredentialVault struct {
	aead cipher.AEAD
}

// KeyFromString turns the configured encryption key into 32 key bytes. A
// base64 string that decodes to exactly 32 bytes is used as is; anything else
// is treated as a passphrase and hashed with SHA-256.
func KeyFromString(configured string) []byte {
	if raw, err := base64.StdEncoding.DecodeString(configured); err == nil && len(raw) == 32 {
		return raw
	}
	sum := sha256.Sum256([]byte(configured))
	return sum[:]
}

// NewCredentialVault creates a new credential vault with the given master key
// The master key should be 32 bytes for AES-256-GCM
func NewCredentialVault(masterKey []byte) (*CredentialVault, error) {
	if len(masterKey) != 32 {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &CredentialVault{aead: gcm}, nil
}

// Encrypt seals plaintext with a random nonce and returns
// base64(nonce || ciphertext). The empty string stays empty.
func (cv *CredentialVault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, cv.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := cv.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (cv *CredentialVault) Decrypt(ciphertextB64 string) (string, error) {
	if ciphertextB64 == "" {
		return "", nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := cv.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := cv.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}
