package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	mediaapp "github.com/catalog/backend/internal/application/media"
	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/interfaces/http/dto"
)

// IdempotencyKeyHeader lets clients retry uploads without creating duplicates
const IdempotencyKeyHeader = "Idempotency-Key"

// MediaHandler handles the media catalog endpoints
type MediaHandler struct {
	BaseHandler
	service *mediaapp.AssetService
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(service *mediaapp.AssetService) *MediaHandler {
	return &MediaHandler{service: service}
}

// Upload stores a multipart image upload and its derivatives
// POST /api/v1/media
func (h *MediaHandler) Upload(c *gin.Context) {
	var form dto.UploadAssetForm
	if err := c.ShouldBind(&form); err != nil {
		h.BindError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		h.BindError(c, err)
		return
	}
	if fh.Size > h.service.MaxUploadSize() {
		h.HandleError(c, media.NewFileTooLargeError(fh.Size, h.service.MaxUploadSize()))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	tier, ok := h.tier(c, form.Tier)
	if !ok {
		return
	}

	resp, err := h.service.StoreAsset(c.Request.Context(), mediaapp.StoreAssetInput{
		Data:           data,
		Filename:       fh.Filename,
		MimeType:       contentType(fh.Header.Get("Content-Type"), data),
		IsDerived:      form.IsDerived,
		Tier:           tier,
		AltText:        form.AltText,
		Caption:        form.Caption,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// contentType trusts the part header unless it is missing or generic
func contentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared == "" || strings.HasPrefix(declared, "application/octet-stream") {
		return http.DetectContentType(data)
	}
	return declared
}

// List returns a page of catalog records
// GET /api/v1/media
func (h *MediaHandler) List(c *gin.Context) {
	var q mediaapp.ListAssetsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.ListAssets(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp.Items, resp.Total, resp.Page, resp.PageSize)
}

// Get returns one record
// GET /api/v1/media/:id
func (h *MediaHandler) Get(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	resp, err := h.service.GetAsset(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update changes alt text, caption or pool visibility
// PATCH /api/v1/media/:id
func (h *MediaHandler) Update(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	var in mediaapp.UpdateAssetInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.service.UpdateAsset(c.Request.Context(), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes a record and every object of its derivative set
// DELETE /api/v1/media/:id
func (h *MediaHandler) Delete(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	if err := h.service.DeleteAssetByID(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// DeleteObject removes the record owning a key or URL, or the bare object
// when no record references it
// DELETE /api/v1/media/objects?key=&tier=
func (h *MediaHandler) DeleteObject(c *gin.Context) {
	var q dto.ObjectQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	tier, ok := h.tier(c, q.Tier)
	if !ok {
		return
	}
	if err := h.service.DeleteAsset(c.Request.Context(), q.Key, h.orDefault(tier)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Resolve returns the canonical key and viewable URL of a reference
// GET /api/v1/media/resolve?url=&tier=
func (h *MediaHandler) Resolve(c *gin.Context) {
	var q dto.ResolveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	tier, ok := h.tier(c, q.Tier)
	if !ok {
		return
	}
	resp, err := h.service.Resolve(c.Request.Context(), q.URL, h.orDefault(tier))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Sign returns signed URLs for a batch of keys or URLs, in request order
// POST /api/v1/media/sign
func (h *MediaHandler) Sign(c *gin.Context) {
	var req dto.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	tier, ok := h.tier(c, req.Tier)
	if !ok {
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	resp, err := h.service.SignKeys(c.Request.Context(), h.orDefault(tier), req.Inputs, ttl)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *MediaHandler) id(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}

// tier parses an optional tier parameter; empty stays empty
func (h *MediaHandler) tier(c *gin.Context, raw string) (media.Tier, bool) {
	if raw == "" {
		return "", true
	}
	tier, err := media.ParseTier(raw)
	if err != nil {
		h.HandleError(c, err)
		return "", false
	}
	return tier, true
}

func (h *MediaHandler) orDefault(tier media.Tier) media.Tier {
	if tier == "" {
		return h.service.DefaultTier()
	}
	return tier
}
