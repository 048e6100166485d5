package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{"NOT_FOUND", http.StatusNotFound},
		{"INVALID_INPUT", http.StatusBadRequest},
		{"INVALID_IMAGE", http.StatusUnprocessableEntity},
		{"STORAGE_CONFIGURATION", http.StatusServiceUnavailable},
		{"PARTIAL_UPLOAD", http.StatusBadGateway},
		{"DISALLOWED_MIME_TYPE", http.StatusUnsupportedMediaType},
		{"FILE_TOO_LARGE", http.StatusRequestEntityTooLarge},
		{"EMPTY_FILE", http.StatusBadRequest},
		{"INVALID_KEY", http.StatusBadRequest},
		{"INVALID_TIER", http.StatusBadRequest},
		{"NOT_POOL_ELIGIBLE", http.StatusConflict},
		{"INVALID_FILENAME", http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a"}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	empty := NewSuccessResponseWithMeta(nil, 0, 1, 20)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}

func TestErrorResponseJSON(t *testing.T) {
	body, err := json.Marshal(NewErrorResponse("NOT_FOUND", "Media asset not found", "req-1"))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"success":false,"error":{"code":"NOT_FOUND","message":"Media asset not found","request_id":"req-1"}}`,
		string(body))

	validation := NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{{Field: "inputs", Message: "This field is required"}})
	assert.Equal(t, ErrCodeValidation, validation.Error.Code)
	assert.Len(t, validation.Error.Details, 1)
}
