package security

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// CreateKey returns a fresh random API key value
func CreateKey() string {
	return uuid.NewString()
}

// KeyCipher encrypts API keys with AES-256-GCM. The key is the SHA-256 of the
// named secret.
type KeyCipher struct {
	secrets *SecretCache
	name    string
}

func NewKeyCipher(secrets *SecretCache, name string) *KeyCipher {
	return &KeyCipher{secrets: secrets, name: name}
}

func (k *KeyCipher) aead(ctx context.Context) (cipher.AEAD, error) {
	secret, err := k.secrets.Get(ctx, k.name)
	if err != nil {
		return nil, err
	}

	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

// Encrypt returns base64(nonce || ciphertext)
func (k *KeyCipher) Encrypt(ctx context.Context, plain string) (string, error) {
	aesgcm, err := k.aead(ctx)
	if err != nil {
		return "", err
	}

	nonce, err := genRandByt(uint32(aesgcm.NonceSize()))
	if err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (k *KeyCipher) Decrypt(ctx context.Context, cipherText string) (string, error) {
	aesgcm, err := k.aead(ctx)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", err
	}

	n := aesgcm.NonceSize()
	if len(raw) < n {
		return "", errors.New("ciphertext too short")
	}

	plain, err := aesgcm.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", err
	}

	return string(plain), nil
}
