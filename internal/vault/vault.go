package vault

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/parishkit/livestream-service/internal/domain"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecryption is returned when a credential blob is malformed or its
// authentication tag does not verify. Callers must treat it as tampering,
// never as recoverable garbage.
var ErrDecryption = errors.New("credential blob failed to decrypt")

// Vault seals and opens OAuth credential blobs with an authenticated cipher
// before they touch persistent storage. It carries no OAuth semantics.
type Vault struct {
	key []byte
}

// New creates a vault from 32 bytes of key material
func New(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Vault{key: key}, nil
}

// Encrypt seals credentials into an opaque base64 blob
func (v *Vault) Encrypt(creds domain.Credentials) (string, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Returns ErrDecryption if the
// blob is malformed or has been tampered with.
func (v *Vault) Decrypt(blob string) (domain.Credentials, error) {
	var creds domain.Credentials

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return creds, fmt.Errorf("%w: invalid encoding", ErrDecryption)
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return creds, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	if len(raw) < aead.NonceSize() {
		return creds, fmt.Errorf("%w: blob too short", ErrDecryption)
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return creds, fmt.Errorf("%w: authentication failed", ErrDecryption)
	}

	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return creds, fmt.Errorf("%w: invalid payload", ErrDecryption)
	}

	return creds, nil
}
