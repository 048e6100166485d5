package media

import (
	"fmt"
	"strings"

	"github.com/catalog/backend/internal/domain/shared"
)

// PoolMinDimension is the smallest long side an upload needs to be listed in the media pool
const PoolMinDimension = 800

const (
	maxFilenameLength = 255
	maxAltTextLength  = 500
	maxCaptionLength  = 2000
)

// Source records how an asset entered the catalog
type Source string

const (
	// SourceUpload is an image uploaded directly by a user
	SourceUpload Source = "upload"
	// SourceDerived is an image produced from another asset (crops, edits, imports of variants)
	SourceDerived Source = "derived"
)

// IsValid checks if the source is known
func (s Source) IsValid() bool {
	return s == SourceUpload || s == SourceDerived
}

// PoolEligible reports whether an asset belongs in the media pool
func PoolEligible(source Source, width, height int) bool {
	return source == SourceUpload && max(width, height) >= PoolMinDimension
}

// AssetKeys holds the canonical keys of an asset's derivative set.
// Empty strings mark derivatives that were not produced.
type AssetKeys struct {
	Original string
	Large    string
	Medium   string
	Thumb    string
}

// For returns the key of a variant, falling back to the original when the
// variant was not produced for this asset.
func (k AssetKeys) For(v Variant) string {
	var key string
	switch v {
	case VariantLarge:
		key = k.Large
	case VariantMedium:
		key = k.Medium
	case VariantThumb:
		key = k.Thumb
	}
	if key == "" {
		return k.Original
	}
	return key
}

// All returns every stored key, original first
func (k AssetKeys) All() []string {
	keys := []string{k.Original}
	for _, key := range []string{k.Large, k.Medium, k.Thumb} {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Contains reports whether key belongs to this derivative set
func (k AssetKeys) Contains(key string) bool {
	for _, stored := range k.All() {
		if stored == key {
			return true
		}
	}
	return false
}

// Asset is the catalog record of a stored image and its derivatives.
// Everything except AltText, Caption and InPool is fixed at creation;
// replacing an image means creating a new Asset.
type Asset struct {
	shared.BaseAggregateRoot
	Filename string
	Keys     AssetKeys
	MimeType string
	ByteSize int64
	Width    int
	Height   int
	AltText  string
	Caption  string
	Source   Source
	InPool   bool
	Tier     Tier
}

// NewAssetParams carries the values of a freshly generated derivative set
type NewAssetParams struct {
	Filename string
	Keys     AssetKeys
	MimeType string
	ByteSize int64
	Width    int
	Height   int
	AltText  string
	Caption  string
	Source   Source
	Tier     Tier
}

// NewAsset creates a catalog record. Pool membership is derived, never passed in.
func NewAsset(p NewAssetParams) (*Asset, error) {
	if err := validateFilename(p.Filename); err != nil {
		return nil, err
	}
	if err := ValidateKey(p.Keys.Original); err != nil {
		return nil, err
	}
	for _, key := range []string{p.Keys.Large, p.Keys.Medium, p.Keys.Thumb} {
		if key == "" {
			continue
		}
		if err := ValidateKey(key); err != nil {
			return nil, err
		}
	}
	if p.MimeType == "" {
		return nil, shared.NewDomainError("INVALID_MIME_TYPE", "Mime type cannot be empty")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, shared.NewDomainError("INVALID_DIMENSIONS", "Image dimensions must be positive")
	}
	if !p.Source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", fmt.Sprintf("Unknown asset source %q", p.Source))
	}
	if !p.Tier.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidTier, fmt.Sprintf("Unknown storage tier %q", p.Tier))
	}
	if err := validateText(p.AltText, maxAltTextLength, "Alt text"); err != nil {
		return nil, err
	}
	if err := validateText(p.Caption, maxCaptionLength, "Caption"); err != nil {
		return nil, err
	}

	asset := &Asset{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Filename:          p.Filename,
		Keys:              p.Keys,
		MimeType:          p.MimeType,
		ByteSize:          p.ByteSize,
		Width:             p.Width,
		Height:            p.Height,
		AltText:           strings.TrimSpace(p.AltText),
		Caption:           strings.TrimSpace(p.Caption),
		Source:            p.Source,
		InPool:            PoolEligible(p.Source, p.Width, p.Height),
		Tier:              p.Tier,
	}

	asset.AddDomainEvent(NewAssetStoredEvent(asset))

	return asset, nil
}

// UpdateMetadata replaces the descriptive text of the asset
func (a *Asset) UpdateMetadata(altText, caption string) error {
	if err := validateText(altText, maxAltTextLength, "Alt text"); err != nil {
		return err
	}
	if err := validateText(caption, maxCaptionLength, "Caption"); err != nil {
		return err
	}
	a.AltText = strings.TrimSpace(altText)
	a.Caption = strings.TrimSpace(caption)
	a.Touch()
	return nil
}

// SetPoolVisibility hides the asset from the media pool or lists it again.
// Only assets that satisfy the pool rule can be listed.
func (a *Asset) SetPoolVisibility(inPool bool) error {
	if inPool && !PoolEligible(a.Source, a.Width, a.Height) {
		return shared.NewDomainError(CodeNotPoolEligible,
			fmt.Sprintf("Only uploads with a side of at least %dpx can be listed in the media pool", PoolMinDimension))
	}
	if a.InPool == inPool {
		return nil
	}
	a.InPool = inPool
	a.Touch()
	return nil
}

// MarkDeleted records the deletion so subscribers can react once it is committed
func (a *Asset) MarkDeleted() {
	a.AddDomainEvent(NewAssetDeletedEvent(a))
}

func validateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_FILENAME", "Filename cannot be empty")
	}
	if len(name) > maxFilenameLength {
		return shared.NewDomainError("INVALID_FILENAME", fmt.Sprintf("Filename cannot exceed %d characters", maxFilenameLength))
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return shared.NewDomainError("INVALID_FILENAME", "Filename cannot contain path separators")
	}
	return nil
}

func validateText(s string, limit int, field string) error {
	if len(s) > limit {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s cannot exceed %d characters", field, limit))
	}
	return nil
}
