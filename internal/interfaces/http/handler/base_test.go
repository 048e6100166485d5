package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
	"github.com/catalog/backend/internal/interfaces/http/dto"
)

func TestBaseHandler_HandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        media.NewAssetNotFoundError("abc"),
			wantStatus: http.StatusNotFound,
			wantCode:   shared.ErrNotFound.Code,
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("update: %w", media.NewDisallowedMimeTypeError("text/plain")),
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   media.CodeDisallowedMimeType,
		},
		{
			name:       "typed configuration error",
			err:        fmt.Errorf("store: %w", &media.ConfigurationError{Tier: media.TierRestricted, Setting: "storage.restricted.bucket"}),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   media.CodeStorageConfiguration,
		},
		{
			name:       "typed invalid image",
			err:        &media.InvalidImageError{Filename: "a.png", Err: errors.New("unexpected EOF")},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   media.CodeInvalidImage,
		},
		{
			name:       "oversized body",
			err:        &http.MaxBytesError{Limit: 10},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   dto.ErrCodeRequestTooLarge,
		},
		{
			name:       "unknown error is hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h := &BaseHandler{}
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantCode == dto.ErrCodeInternal {
				assert.NotContains(t, resp.Error.Message, "pq:")
			}
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestBaseHandler_HandleNilError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	(&BaseHandler{}).HandleError(c, nil)
	assert.Empty(t, c.Errors)
	assert.False(t, c.Writer.Written())
}
