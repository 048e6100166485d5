package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/infrastructure/storage"
)

// ObjectReader is the part of the storage gateway the image proxy uses
type ObjectReader interface {
	Get(ctx context.Context, tier media.Tier, key string) (io.ReadCloser, storage.ObjectInfo, error)
	BuildURL(ctx context.Context, tier media.Tier, key string, opts storage.URLOptions) (string, error)
}

// ImageProxyHandler serves stored images from the API origin for
// environments where the browser cannot reach object storage
type ImageProxyHandler struct {
	BaseHandler
	objects  ObjectReader
	redirect bool
}

// NewImageProxyHandler creates an ImageProxyHandler. With redirect set the
// proxy answers with a signed URL instead of streaming the bytes.
func NewImageProxyHandler(objects ObjectReader, redirect bool) *ImageProxyHandler {
	return &ImageProxyHandler{objects: objects, redirect: redirect}
}

// Serve streams one object
// GET /api/images/*key?tier=
func (h *ImageProxyHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := media.ValidateKey(key); err != nil {
		h.HandleError(c, err)
		return
	}

	tier := media.TierPublic
	if raw := c.Query("tier"); raw != "" {
		parsed, err := media.ParseTier(raw)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		tier = parsed
	}

	ctx := c.Request.Context()
	if h.redirect {
		u, err := h.objects.BuildURL(ctx, tier, key, storage.URLOptions{Signed: true})
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Redirect(http.StatusFound, u)
		return
	}

	body, info, err := h.objects.Get(ctx, tier, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer body.Close()

	if info.ETag != "" && c.GetHeader("If-None-Match") == info.ETag {
		c.Header("ETag", info.ETag)
		c.Status(http.StatusNotModified)
		return
	}

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
	}
	if info.CacheControl != "" {
		headers["Cache-Control"] = info.CacheControl
	}
	if info.ETag != "" {
		headers["ETag"] = info.ETag
	}
	if !info.LastModified.IsZero() {
		headers["Last-Modified"] = info.LastModified.UTC().Format(http.TimeFormat)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := info.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, contentType, body, headers)
}
