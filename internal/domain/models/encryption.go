package models

// CurrentEncryptionVersion is written on every new blob.
const CurrentEncryptionVersion = "v1"

// EncryptedBlob is the stored form of an encrypted text field. All three
// string fields are base64 and non-empty on a valid blob.
type EncryptedBlob struct {
	CipherText string `json:"cipherText"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	Version    string `json:"version,omitempty"`
}

// Complete reports whether every required field is present. An incomplete
// blob is never a decryption target.
func (b *EncryptedBlob) Complete() bool {
	return b != nil && b.CipherText != "" && b.IV != "" && b.Salt != ""
}

// StoredValue is the normalized form of a value read from the store: either
// an encrypted blob or opaque plaintext. Exactly one side is meaningful.
type StoredValue struct {
	Blob  *EncryptedBlob
	Plain string
}

// IsEncrypted reports whether the value is a decryption target.
func (v StoredValue) IsEncrypted() bool {
	return v.Blob != nil
}
