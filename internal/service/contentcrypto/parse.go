package contentcrypto

import (
	"encoding/json"
	"fmt"
	"strings"

	"scriptmentor/internal/domain/models"
)

// ParseStoredValue normalizes a value read from storage into either an
// encrypted blob or plaintext. Accepted inputs are a blob, a decoded JSON
// object, a JSON document ([]byte or json.RawMessage), a string holding a
// serialized blob, possibly JSON-quoted, or legacy plain text. It never fails:
// anything that is not a complete blob is plaintext.
func ParseStoredValue(raw any) models.StoredValue {
	return parse(raw, 2)
}

func parse(raw any, depth int) models.StoredValue {
	switch v := raw.(type) {
	case nil:
		return models.StoredValue{}
	case models.StoredValue:
		return v
	case *models.EncryptedBlob:
		if v == nil {
			return models.StoredValue{}
		}
		if v.Complete() {
			return models.StoredValue{Blob: v}
		}
		return plainFromObject(v)
	case models.EncryptedBlob:
		return parse(&v, depth)
	case map[string]any:
		if blob, ok := blobFromMap(v); ok {
			return models.StoredValue{Blob: blob}
		}
		return plainFromObject(v)
	case json.RawMessage:
		return parseString(string(v), depth, true)
	case []byte:
		return parseString(string(v), depth, true)
	case string:
		return parseString(v, depth, false)
	case *string:
		if v == nil {
			return models.StoredValue{}
		}
		return parseString(*v, depth, false)
	default:
		return models.StoredValue{Plain: fmt.Sprint(v)}
	}
}

// parseString reads s as plain text or a serialized blob. A JSON string
// literal is unwrapped when s is a JSON document; in a text value the quotes
// are kept unless they wrap a blob.
func parseString(s string, depth int, document bool) models.StoredValue {
	plain := models.StoredValue{Plain: s}
	if depth <= 0 {
		return plain
	}

	trimmed := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return plain
		}
		if blob, ok := blobFromMap(obj); ok {
			return models.StoredValue{Blob: blob}
		}
		return plain
	case strings.HasPrefix(trimmed, `"`):
		// JSON-encoded string, possibly wrapping a serialized blob
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return plain
		}
		v := parseString(inner, depth-1, false)
		if document || v.IsEncrypted() {
			return v
		}
		return plain
	}
	return plain
}

func blobFromMap(obj map[string]any) (*models.EncryptedBlob, bool) {
	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}
	blob := &models.EncryptedBlob{
		CipherText: str("cipherText"),
		IV:         str("iv"),
		Salt:       str("salt"),
		Version:    str("version"),
	}
	return blob, blob.Complete()
}

func plainFromObject(v any) models.StoredValue {
	data, err := json.Marshal(v)
	if err != nil {
		return models.StoredValue{Plain: fmt.Sprint(v)}
	}
	return models.StoredValue{Plain: string(data)}
}
