package media

import (
	"time"

	"github.com/google/uuid"

	"github.com/catalog/backend/internal/domain/media"
)

// ============================================================================
// Inputs
// ============================================================================

// StoreAssetInput carries one upload
type StoreAssetInput struct {
	Data      []byte
	Filename  string
	MimeType  string
	IsDerived bool
	// Tier defaults to the configured default tier when empty
	Tier    media.Tier
	AltText string
	Caption string
	// IdempotencyKey makes retries of the same upload return the first record
	IdempotencyKey string
}

// ListAssetsQuery selects a page of catalog records
type ListAssetsQuery struct {
	PoolOnly bool   `form:"pool_only"`
	Source   string `form:"source" binding:"omitempty,oneof=upload derived"`
	Tier     string `form:"tier" binding:"omitempty,oneof=public restricted"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=created_at updated_at filename size width height"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// UpdateAssetInput changes the mutable fields of a record. Nil fields are left as they are.
type UpdateAssetInput struct {
	AltText       *string `json:"alt_text" binding:"omitempty,max=500"`
	Caption       *string `json:"caption" binding:"omitempty,max=2000"`
	IsInMediaPool *bool   `json:"is_in_media_pool"`
}

// ============================================================================
// Outputs
// ============================================================================

// AssetKeysResponse lists the stored keys of a record
type AssetKeysResponse struct {
	Original string `json:"original"`
	Large    string `json:"large,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Thumb    string `json:"thumb,omitempty"`
}

// AssetURLsResponse holds a viewable URL per slot. Slots that were not
// produced carry the original's URL.
type AssetURLsResponse struct {
	Original string `json:"original"`
	Large    string `json:"large"`
	Medium   string `json:"medium"`
	Thumb    string `json:"thumb"`
}

// AssetResponse is a catalog record as returned to callers
type AssetResponse struct {
	ID            uuid.UUID         `json:"id"`
	Filename      string            `json:"filename"`
	MimeType      string            `json:"mime_type"`
	Size          int64             `json:"size"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	AltText       string            `json:"alt_text"`
	Caption       string            `json:"caption"`
	Source        string            `json:"source"`
	IsInMediaPool bool              `json:"is_in_media_pool"`
	Tier          string            `json:"tier"`
	Keys          AssetKeysResponse `json:"keys"`
	URLs          AssetURLsResponse `json:"urls"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// AssetListResponse is one page of records
type AssetListResponse struct {
	Items    []AssetResponse `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ResolvedURL is the outcome of resolving one key or URL
type ResolvedURL struct {
	Input string `json:"input"`
	// Key is empty when the input is not one of ours
	Key      string `json:"key,omitempty"`
	URL      string `json:"url"`
	Resolved bool   `json:"resolved"`
}

func toAssetKeysResponse(k media.AssetKeys) AssetKeysResponse {
	return AssetKeysResponse{
		Original: k.Original,
		Large:    k.Large,
		Medium:   k.Medium,
		Thumb:    k.Thumb,
	}
}

func toAssetResponse(a *media.Asset, urls AssetURLsResponse) AssetResponse {
	return AssetResponse{
		ID:            a.ID,
		Filename:      a.Filename,
		MimeType:      a.MimeType,
		Size:          a.ByteSize,
		Width:         a.Width,
		Height:        a.Height,
		AltText:       a.AltText,
		Caption:       a.Caption,
		Source:        string(a.Source),
		IsInMediaPool: a.InPool,
		Tier:          a.Tier.String(),
		Keys:          toAssetKeysResponse(a.Keys),
		URLs:          urls,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
