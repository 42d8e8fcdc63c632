// Package fieldcodec provides the two primitives every sensitive field goes
// through before persistence: a deterministic hash for equality lookups and a
// non-deterministic reversible encryption for display values.
//
// The split exists because encrypted values cannot be queried: the same
// plaintext encrypts to a different envelope every time (fresh nonce per
// call), so lookups (login by username, email dedup, storage-path
// cross-referencing) go through the stable hash instead.
package fieldcodec

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

// KeySize is the required length of the symmetric key (AES-256).
const KeySize = 32

// ErrDecode is returned when an envelope is malformed or was not produced
// with the codec's key.
var ErrDecode = errors.New("fieldcodec: cannot decode envelope")

// Codec encrypts, decrypts and hashes field values with a fixed key.
type Codec struct {
	aead cipher.AEAD
}

// New builds a Codec from a raw 32-byte key.
func New(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("fieldcodec: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Hash returns the lowercase hex SHA-256 digest of the plaintext. Same input,
// same output, always.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Encrypt seals the plaintext under a fresh random nonce and returns the
// envelope "base64(nonce):base64(ciphertext)".
//
// The empty string passes through unchanged. Persisted records rely on empty
// optional fields staying empty rather than becoming an encrypted
// empty-string envelope, so this quirk must not be "fixed".
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt is the inverse of Encrypt. The empty string passes through
// unchanged; anything else that is not a valid envelope sealed with the
// codec's key yields ErrDecode.
func (c *Codec) Decrypt(envelope string) (string, error) {
	if envelope == "" {
		return "", nil
	}
	parts := strings.SplitN(envelope, ":", 2)
	if len(parts) != 2 {
		return "", ErrDecode
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrDecode
	}
	sealed, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrDecode
	}
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecode
	}
	return string(plaintext), nil
}
