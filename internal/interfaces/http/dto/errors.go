package dto

import (
	"net/http"
	"strings"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	shared.ErrNotFound.Code:      http.StatusNotFound,
	shared.ErrAlreadyExists.Code: http.StatusConflict,
	shared.ErrInvalidInput.Code:  http.StatusBadRequest,
	shared.ErrInvalidState.Code:  http.StatusConflict,

	media.CodeInvalidImage:         http.StatusUnprocessableEntity,
	media.CodeStorageConfiguration: http.StatusServiceUnavailable,
	media.CodePartialUpload:        http.StatusBadGateway,
	media.CodeDisallowedMimeType:   http.StatusUnsupportedMediaType,
	media.CodeFileTooLarge:         http.StatusRequestEntityTooLarge,
	media.CodeEmptyFile:            http.StatusBadRequest,
	media.CodeInvalidKey:           http.StatusBadRequest,
	media.CodeInvalidTier:          http.StatusBadRequest,
	media.CodeNotPoolEligible:      http.StatusConflict,
}

// GetHTTPStatus returns the status for code. Codes of domain validation
// failures that are not listed map to 400; anything else maps to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
