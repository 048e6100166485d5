package dto

// UploadAssetForm is the non-file part of a multipart upload
type UploadAssetForm struct {
	IsDerived bool   `form:"is_derived"`
	Tier      string `form:"tier" binding:"omitempty,oneof=public restricted"`
	AltText   string `form:"alt_text" binding:"max=500"`
	Caption   string `form:"caption" binding:"max=2000"`
}

// ObjectQuery addresses one stored object by key or URL
type ObjectQuery struct {
	Key  string `form:"key" binding:"required"`
	Tier string `form:"tier" binding:"omitempty,oneof=public restricted"`
}

// ResolveQuery asks for the canonical key and viewable URL of a reference
type ResolveQuery struct {
	URL  string `form:"url" binding:"required"`
	Tier string `form:"tier" binding:"omitempty,oneof=public restricted"`
}

// SignRequest asks for signed URLs of several keys or URLs
type SignRequest struct {
	Tier       string   `json:"tier" binding:"omitempty,oneof=public restricted"`
	Inputs     []string `json:"inputs" binding:"required,min=1,max=500"`
	TTLSeconds int      `json:"ttl_seconds" binding:"omitempty,min=1,max=604800"`
}

// IDRequest carries a UUID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
