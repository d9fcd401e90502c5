// Package contentcrypto encrypts script content at rest with a key derived
// from the owning user's identity.
package contentcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

const (
	saltSize = 16
	ivSize   = 12
	keySize  = 32

	// DefaultIterations is the PBKDF2 work factor for new blobs.
	DefaultIterations = 100000

	// FailureMarker replaces a field whose stored value could not be decrypted.
	FailureMarker = "[Decryption failed: content unavailable]"
)

// Config controls key derivation.
type Config struct {
	Iterations int
	// Pepper is mixed into every key. Changing it orphans existing blobs.
	Pepper string
}

// Cipher performs AES-256-GCM encryption with per-blob PBKDF2 keys.
// It holds no per-user state and is safe for concurrent use.
type Cipher struct {
	iterations int
	pepper     string
	random     io.Reader
}

// New creates a Cipher
func New(cfg Config) *Cipher {
	iter := cfg.Iterations
	if iter <= 0 {
		iter = DefaultIterations
	}
	return &Cipher{iterations: iter, pepper: cfg.Pepper, random: rand.Reader}
}

func (c *Cipher) deriveKey(keyMaterial string, salt []byte) []byte {
	return pbkdf2.Key([]byte(keyMaterial+c.pepper), salt, c.iterations, keySize, sha256.New)
}

func (c *Cipher) aead(keyMaterial string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.deriveKey(keyMaterial, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plainText under a key derived from keyMaterial. Every call
// draws a fresh salt and IV, so equal inputs never produce equal blobs.
func (c *Cipher) Encrypt(plainText, keyMaterial string) (*models.EncryptedBlob, error) {
	if keyMaterial == "" {
		return nil, &domain.UnauthorizedError{Message: "encryption requires an authenticated user"}
	}

	salt := make([]byte, saltSize)
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(c.random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	gcm, err := c.aead(keyMaterial, salt)
	if err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, iv, []byte(plainText), nil)

	return &models.EncryptedBlob{
		CipherText: base64.StdEncoding.EncodeToString(sealed),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Version:    models.CurrentEncryptionVersion,
	}, nil
}

// Decrypt accepts anything ParseStoredValue accepts. Plaintext values are
// returned unchanged; blobs are opened and fail with *domain.DecryptionError
// on a wrong key, tampering or undecodable fields.
func (c *Cipher) Decrypt(raw any, keyMaterial string) (string, error) {
	v := ParseStoredValue(raw)
	if !v.IsEncrypted() {
		return v.Plain, nil
	}
	return c.DecryptBlob(v.Blob, keyMaterial)
}

// DecryptBlob opens a single blob
func (c *Cipher) DecryptBlob(blob *models.EncryptedBlob, keyMaterial string) (string, error) {
	if !blob.Complete() {
		return "", &domain.DecryptionError{Reason: "incomplete blob"}
	}
	if keyMaterial == "" {
		return "", &domain.UnauthorizedError{Message: "decryption requires an authenticated user"}
	}

	sealed, err := base64.StdEncoding.DecodeString(blob.CipherText)
	if err != nil {
		return "", &domain.DecryptionError{Reason: "cipherText is not base64", Cause: err}
	}
	iv, err := base64.StdEncoding.DecodeString(blob.IV)
	if err != nil || len(iv) != ivSize {
		return "", &domain.DecryptionError{Reason: "invalid iv", Cause: err}
	}
	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil || len(salt) == 0 {
		return "", &domain.DecryptionError{Reason: "invalid salt", Cause: err}
	}

	gcm, err := c.aead(keyMaterial, salt)
	if err != nil {
		return "", &domain.DecryptionError{Reason: "cipher setup", Cause: err}
	}
	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", &domain.DecryptionError{Reason: "authentication failed", Cause: err}
	}
	return string(plain), nil
}

// DecryptField decrypts one field of a multi-field load. On failure it
// returns FailureMarker and false instead of an error so sibling fields
// still load. Missing identity is not a field failure and is returned.
func (c *Cipher) DecryptField(raw any, keyMaterial string) (string, bool, error) {
	plain, err := c.Decrypt(raw, keyMaterial)
	if err == nil {
		return plain, true, nil
	}
	if errors.Is(err, domain.ErrDecryption) {
		return FailureMarker, false, nil
	}
	return "", false, err
}

// EncryptToString encrypts and serializes the blob for a text column
func (c *Cipher) EncryptToString(plainText, keyMaterial string) (string, error) {
	blob, err := c.Encrypt(plainText, keyMaterial)
	if err != nil {
		return "", err
	}
	return MarshalBlob(blob)
}

// MarshalBlob serializes a blob the way it is stored
func MarshalBlob(blob *models.EncryptedBlob) (string, error) {
	data, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("marshal blob: %w", err)
	}
	return string(data), nil
}
