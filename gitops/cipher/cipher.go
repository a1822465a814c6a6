// Package cipher encrypts credential tokens at rest
// with AES-256-GCM. Ciphertexts are self-contained:
// the random nonce is prefixed to the sealed bytes and
// the whole blob is base64-encoded for storage.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
)

// EnvKey names the environment variable carrying the
// base64-encoded 32-byte encryption key.
const EnvKey = "GRIMOIRE_ENCRYPTION_KEY"

const keySize = 32

// DecryptError reports a ciphertext that could not be
// opened, either because it is malformed or because it
// was sealed under a different key.
type DecryptError struct {
	Reason string
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf(
		"decrypting credential: %s", e.Reason,
	)
}

// Cipher seals and opens credential tokens.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from the key in EnvKey. When the
// variable is unset a random ephemeral key is used and
// a warning is logged: every credential stored under
// it becomes unreadable on restart.
func New() (*Cipher, error) {
	const errCtx = "creating cipher"

	encoded := os.Getenv(EnvKey)
	if encoded == "" {
		key := make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		slog.Warn(
			"no encryption key configured, " +
				"using ephemeral key; stored " +
				"credentials will not survive " +
				"a restart",
		)

		return NewWithKey(key)
	}

	key, err := base64.StdEncoding.DecodeString(
		encoded,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: decode key: %w", errCtx, err,
		)
	}

	return NewWithKey(key)
}

// NewWithKey builds a Cipher from a raw 32-byte key.
func NewWithKey(key []byte) (*Cipher, error) {
	const errCtx = "creating cipher"

	if len(key) != keySize {
		return nil, fmt.Errorf(
			"%s: key must be %d bytes, got %d",
			errCtx, keySize, len(key),
		)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh nonce and
// returns the base64 form.
func (c *Cipher) Encrypt(
	plaintext string,
) (string, error) {
	const errCtx = "encrypting credential"

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	sealed := c.aead.Seal(
		nonce, nonce, []byte(plaintext), nil,
	)

	return base64.StdEncoding.
		EncodeToString(sealed), nil
}

// Decrypt opens a base64 ciphertext produced by
// Encrypt. Failures return a *DecryptError.
func (c *Cipher) Decrypt(
	ciphertext string,
) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(
		ciphertext,
	)
	if err != nil {
		return "", &DecryptError{
			Reason: "not valid base64",
		}
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", &DecryptError{
			Reason: "ciphertext too short",
		}
	}

	plaintext, err := c.aead.Open(
		nil,
		raw[:nonceSize],
		raw[nonceSize:],
		nil,
	)
	if err != nil {
		return "", &DecryptError{
			Reason: "authentication failed",
		}
	}

	return string(plaintext), nil
}
