package vault

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/amishk599/jobintake/internal/model"
)

const envelopeVersion = 1

// envelope is the stored form of a sealed secret.
type envelope struct {
	V     int    `json:"v"`
	Nonce string `json:"nonce"`
	CT    string `json:"ct"`
}

// Sealer encrypts secrets at rest with XChaCha20-Poly1305.
type Sealer struct {
	key []byte
}

// NewSealer builds a Sealer from a base64-encoded 32-byte key.
func NewSealer(keyB64 string) (*Sealer, error) {
	keyB64 = strings.TrimSpace(keyB64)
	if keyB64 == "" {
		return nil, &model.ConfigError{Field: "mailbox.encryption_key", Reason: "missing"}
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(keyB64, "="))
	}
	if err != nil {
		return nil, &model.ConfigError{Field: "mailbox.encryption_key", Reason: "not valid base64"}
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, &model.ConfigError{Field: "mailbox.encryption_key", Reason: fmt.Sprintf("must decode to %d bytes, got %d", chacha20poly1305.KeySize, len(key))}
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (s *Sealer) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ct := aead.Seal(nil, nonce, []byte(plaintext), nil)

	data, err := json.Marshal(envelope{
		V:     envelopeVersion,
		Nonce: base64.StdEncoding.EncodeToString(nonce),
		CT:    base64.StdEncoding.EncodeToString(ct),
	})
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return string(data), nil
}

// Open decrypts a payload produced by Seal. Any malformed, truncated or
// tampered payload yields ErrCorruptVault.
func (s *Sealer) Open(payload string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return "", fmt.Errorf("%w: decode envelope: %v", ErrCorruptVault, err)
	}
	if env.V != envelopeVersion {
		return "", fmt.Errorf("%w: unsupported envelope version %d", ErrCorruptVault, env.V)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: decode nonce: %v", ErrCorruptVault, err)
	}
	ct, err := base64.StdEncoding.DecodeString(env.CT)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrCorruptVault, err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return "", fmt.Errorf("%w: nonce is %d bytes", ErrCorruptVault, len(nonce))
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrCorruptVault)
	}
	return string(pt), nil
}
