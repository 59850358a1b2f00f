// Package cryptoutil seals small values, such as stored backend tokens,
// with AES-256-GCM.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Encryptor encrypts and decrypts opaque values.
type Encryptor interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// Versioned prefix so the algorithm or key can rotate without a data migration.
const prefixV1 = "v1:"

// ErrUnknownVersion is returned for ciphertexts this package did not produce.
var ErrUnknownVersion = errors.New("unknown ciphertext version")

// AESGCMEncryptor implements Encryptor with AES-256-GCM and a random nonce
// per value.
type AESGCMEncryptor struct {
	aead cipher.AEAD
}

var _ Encryptor = (*AESGCMEncryptor)(nil)

// NewAESGCMEncryptor constructs an encryptor. Key must be 32 bytes.
func NewAESGCMEncryptor(key []byte) (*AESGCMEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMEncryptor{aead: aead}, nil
}

// FromPassphrase derives the key from a configuration value: a 64-char hex
// string is used as is, anything else is hashed with SHA-256.
func FromPassphrase(passphrase string) (*AESGCMEncryptor, error) {
	if passphrase == "" {
		return nil, errors.New("encryption key is required")
	}
	if decoded, err := hex.DecodeString(passphrase); err == nil && len(decoded) == 32 {
		return NewAESGCMEncryptor(decoded)
	}
	sum := sha256.Sum256([]byte(passphrase))
	return NewAESGCMEncryptor(sum[:])
}

// Encrypt returns "v1:" + base64(nonce || ciphertext).
func (e *AESGCMEncryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(plaintext)+e.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return prefixV1 + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (e *AESGCMEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	b64, ok := strings.CutPrefix(ciphertext, prefixV1)
	if !ok {
		return nil, ErrUnknownVersion
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	n := e.aead.NonceSize()
	if len(data) < n {
		return nil, errors.New("ciphertext too short")
	}
	return e.aead.Open(nil, data[:n], data[n:], nil)
}
