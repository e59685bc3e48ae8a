// ABOUTME: Reversible encoding of refresh tokens at rest
// ABOUTME: XChaCha20-Poly1305 when a key is available, base64 otherwise
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of the vault key in bytes.
const KeySize = chacha20poly1305.KeySize

// Codec turns secrets into storable strings and back.
// Decrypt reports false instead of returning an error so callers can skip bad entries.
type Codec interface {
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) (string, bool)
	Secure() bool
}

// NewCodec returns a SecureCodec for a 32-byte key and an EncodingCodec for anything else.
func NewCodec(key []byte) Codec {
	if len(key) != KeySize {
		return EncodingCodec{}
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return EncodingCodec{}
	}
	return &SecureCodec{aead: aead}
}

// SecureCodec seals values with XChaCha20-Poly1305. Output is hex(nonce || ciphertext).
type SecureCodec struct {
	aead cipher.AEAD
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *SecureCodec) Encrypt(plaintext string) string {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("vault: failed to read nonce: %v", err))
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed)
}

// Decrypt opens a value produced by Encrypt.
func (c *SecureCodec) Decrypt(ciphertext string) (string, bool) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil || len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", false
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(plain), true
}

// Secure is always true.
func (c *SecureCodec) Secure() bool { return true }

// EncodingCodec is base64 only. It is NOT encryption.
type EncodingCodec struct{}

// Encrypt base64-encodes plaintext.
func (EncodingCodec) Encrypt(plaintext string) string {
	return base64.StdEncoding.EncodeToString([]byte(plaintext))
}

// Decrypt base64-decodes ciphertext.
func (EncodingCodec) Decrypt(ciphertext string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// Secure is always false.
func (EncodingCodec) Secure() bool { return false }

// LoadOrCreateKey reads the key file at path, creating a random key when it is missing.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, decodeErr := hex.DecodeString(string(trimNewline(data)))
		if decodeErr != nil || len(key) != KeySize {
			return nil, fmt.Errorf("invalid vault key file %s", path)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read vault key: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to write vault key: %w", err)
	}
	return key, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
