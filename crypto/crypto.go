// Package crypto encrypts sensitive data at rest, primarily the Spotify OAuth
// tokens stored per linked user. It uses AES-256-GCM authenticated encryption;
// rows carry an encryption version so plaintext tokens written before a key
// was configured remain readable.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Encryptor is implemented by AEAD ciphers used for token storage.
type Encryptor interface {
	// Encrypt returns nonce||ciphertext||tag for the given plaintext.
	Encrypt(plaintext []byte) ([]byte, error)
	// Decrypt verifies and reverses Encrypt. It fails if the ciphertext was
	// tampered with or produced under a different key.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESEncryptor implements Encryptor with AES-256-GCM.
type AESEncryptor struct {
	key []byte // 32 bytes
}

// NewAESEncryptor builds an encryptor from a base64-encoded 32-byte key
// (generate with: openssl rand -base64 32).
func NewAESEncryptor(base64Key string) (*AESEncryptor, error) {
	if base64Key == "" {
		return nil, fmt.Errorf("encryption key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: base64 decode failed: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: must be 32 bytes (256 bits), got %d bytes", len(key))
	}
	return &AESEncryptor{key: key}, nil
}

func (e *AESEncryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext with a fresh random nonce. The nonce is prepended so
// Decrypt can recover it; GCM appends the 16-byte auth tag.
func (e *AESEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("plaintext is empty")
	}
	aead, err := e.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (e *AESEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("ciphertext is empty")
	}
	aead, err := e.gcm()
	if err != nil {
		return nil, err
	}
	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short: expected at least %d bytes, got %d", nonceSize, len(ciphertext))
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// Keep the underlying error opaque; it may leak key/nonce details.
		return nil, fmt.Errorf("decryption failed: authentication or integrity check failed")
	}
	return plaintext, nil
}

// EncryptString encrypts a string and base64-encodes the result for storage in
// a text column. Empty input round-trips as empty.
func EncryptString(enc Encryptor, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	ciphertext, err := enc.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString.
func DecryptString(enc Encryptor, base64Ciphertext string) (string, error) {
	if base64Ciphertext == "" {
		return "", nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(base64Ciphertext)
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}
	plaintext, err := enc.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
