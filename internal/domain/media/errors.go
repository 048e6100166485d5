package media

import (
	"errors"
	"fmt"

	"github.com/catalog/backend/internal/domain/shared"
)

// Error codes surfaced to callers
const (
	CodeInvalidImage         = "INVALID_IMAGE"
	CodeStorageConfiguration = "STORAGE_CONFIGURATION"
	CodePartialUpload        = "PARTIAL_UPLOAD"
	CodeDisallowedMimeType   = "DISALLOWED_MIME_TYPE"
	CodeFileTooLarge         = "FILE_TOO_LARGE"
	CodeEmptyFile            = "EMPTY_FILE"
	CodeInvalidKey           = "INVALID_KEY"
	CodeInvalidTier          = "INVALID_TIER"
	CodeNotPoolEligible      = "NOT_POOL_ELIGIBLE"
)

// Sentinels for errors.Is checks. Matching is by code.
var (
	ErrInvalidImage         = shared.NewDomainError(CodeInvalidImage, "Image could not be decoded")
	ErrStorageConfiguration = shared.NewDomainError(CodeStorageConfiguration, "Storage tier is not configured")
	ErrPartialUpload        = shared.NewDomainError(CodePartialUpload, "Derivative upload failed after earlier writes succeeded")
)

// ConfigurationError reports a storage setting missing at first use of a tier
type ConfigurationError struct {
	Tier    Tier
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("storage tier %q is not configured: missing %s", e.Tier, e.Setting)
}

func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(ErrStorageConfiguration, target)
}

// AsDomainError converts the error for transport layers
func (e *ConfigurationError) AsDomainError() *shared.DomainError {
	return shared.NewDomainError(CodeStorageConfiguration, e.Error())
}

// InvalidImageError reports bytes whose image metadata could not be read
type InvalidImageError struct {
	Filename string
	Err      error
}

func (e *InvalidImageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid image %q", e.Filename)
	}
	return fmt.Sprintf("invalid image %q: %v", e.Filename, e.Err)
}

func (e *InvalidImageError) Unwrap() error {
	return e.Err
}

func (e *InvalidImageError) Is(target error) bool {
	return errors.Is(ErrInvalidImage, target)
}

// AsDomainError converts the error for transport layers
func (e *InvalidImageError) AsDomainError() *shared.DomainError {
	return shared.NewDomainError(CodeInvalidImage, e.Error())
}

// PartialUploadError reports a derivative write that failed after earlier
// writes of the same upload succeeded. Uploaded lists what is already stored;
// those objects are not rolled back.
type PartialUploadError struct {
	Failed   Variant
	Uploaded []StoredObject
	Err      error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("upload of %s derivative failed after %d successful writes: %v", e.Failed, len(e.Uploaded), e.Err)
}

func (e *PartialUploadError) Unwrap() error {
	return e.Err
}

func (e *PartialUploadError) Is(target error) bool {
	return errors.Is(ErrPartialUpload, target)
}

// AsDomainError converts the error for transport layers
func (e *PartialUploadError) AsDomainError() *shared.DomainError {
	return shared.NewDomainError(CodePartialUpload, e.Error())
}

// NewDisallowedMimeTypeError returns an invalid input error for an unsupported content type
func NewDisallowedMimeTypeError(mimeType string) *shared.DomainError {
	return shared.NewDomainError(CodeDisallowedMimeType, fmt.Sprintf("Content type %q is not allowed", mimeType))
}

// NewMismatchedMimeTypeError reports an upload whose decoded format is not
// the declared content type
func NewMismatchedMimeTypeError(declared, format string) *shared.DomainError {
	return shared.NewDomainError(CodeDisallowedMimeType,
		fmt.Sprintf("Content type %q does not match the %s data of the upload", declared, format))
}

// NewFileTooLargeError returns an invalid input error for an oversized payload
func NewFileTooLargeError(size, limit int64) *shared.DomainError {
	return shared.NewDomainError(CodeFileTooLarge, fmt.Sprintf("File size %d exceeds the limit of %d bytes", size, limit))
}

// NewAssetNotFoundError returns a not-found error naming the key or id that was looked up
func NewAssetNotFoundError(ref string) *shared.DomainError {
	return shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("Media asset %q not found", ref))
}
