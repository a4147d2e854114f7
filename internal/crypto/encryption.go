package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keyInfo = "sellerops-block-credentials"

// CredentialCipher encrypts block configuration credentials at rest.
// Every user gets an AES-256-GCM key derived from the master key with HKDF.
type CredentialCipher struct {
	masterKey []byte
}

// NewCredentialCipher creates a cipher from a 32-byte hex-encoded master key (64 characters)
func NewCredentialCipher(masterKeyHex string) (*CredentialCipher, error) {
	if masterKeyHex == "" {
		return nil, errors.New("encryption master key is required")
	}

	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid master key format (must be hex): %w", err)
	}

	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes (64 hex characters), got %d bytes", len(masterKey))
	}

	return &CredentialCipher{masterKey: masterKey}, nil
}

func (c *CredentialCipher) userGCM(userID string) (cipher.AEAD, error) {
	if userID == "" {
		return nil, errors.New("user ID is required for key derivation")
	}

	userKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, c.masterKey, []byte(userID), []byte(keyInfo)), userKey); err != nil {
		return nil, fmt.Errorf("failed to derive user key: %w", err)
	}

	block, err := aes.NewCipher(userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptString returns base64 ciphertext with the nonce prepended.
// Empty input encrypts to an empty string.
func (c *CredentialCipher) EncryptString(userID, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := c.userGCM(userID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

// DecryptString reverses EncryptString
func (c *CredentialCipher) DecryptString(userID, ciphertextB64 string) (string, error) {
	if ciphertextB64 == "" {
		return "", nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	gcm, err := c.userGCM(userID)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EncryptMap encrypts every value of a credential map
func (c *CredentialCipher) EncryptMap(userID string, values map[string]string) (map[string]string, error) {
	return c.transform(userID, values, c.EncryptString)
}

// DecryptMap decrypts every value of a credential map
func (c *CredentialCipher) DecryptMap(userID string, values map[string]string) (map[string]string, error) {
	return c.transform(userID, values, c.DecryptString)
}

func (c *CredentialCipher) transform(userID string, values map[string]string, fn func(string, string) (string, error)) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		converted, err := fn(userID, v)
		if err != nil {
			return nil, fmt.Errorf("credential %q: %w", k, err)
		}
		out[k] = converted
	}
	return out, nil
}

// GenerateMasterKey generates a new random 32-byte master key (for setup)
func GenerateMasterKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}
