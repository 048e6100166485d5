package media

import (
	"strings"

	"github.com/catalog/backend/internal/domain/shared"
)

// MaxKeyLength bounds object keys
const MaxKeyLength = 1024

// StoredObject describes one object written to a storage tier
type StoredObject struct {
	Variant     Variant
	Tier        Tier
	Key         string
	ContentType string
	ByteSize    int64
	Width       int
	Height      int
}

// ValidateKey checks that key is a canonical, bucket-relative object key
func ValidateKey(key string) error {
	if key == "" {
		return shared.NewDomainError(CodeInvalidKey, "Object key cannot be empty")
	}
	if len(key) > MaxKeyLength {
		return shared.NewDomainError(CodeInvalidKey, "Object key is too long")
	}
	if strings.Contains(key, "://") || strings.HasPrefix(key, "data:") {
		return shared.NewDomainError(CodeInvalidKey, "Object key must not contain a scheme")
	}
	if strings.HasPrefix(key, "/") {
		return shared.NewDomainError(CodeInvalidKey, "Object key must be bucket-relative")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return shared.NewDomainError(CodeInvalidKey, "Object key cannot contain path traversal")
		}
	}
	return nil
}
