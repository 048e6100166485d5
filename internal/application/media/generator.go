package media

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/infrastructure/logger"
	"github.com/catalog/backend/internal/infrastructure/telemetry"
)

// GeneratedSet is the outcome of a successful derivative generation
type GeneratedSet struct {
	Keys    media.AssetKeys
	Objects []media.StoredObject
	Width   int
	Height  int
	Format  string
	// MimeType is the content type of the decoded bytes
	MimeType string
}

// DerivativeGenerator turns raw image bytes into the stored derivative set.
// Derivatives are rendered and written one at a time in table order, so at
// most one decoded source and one rendition are in memory per upload.
type DerivativeGenerator struct {
	processor ImageProcessor
	store     ObjectStore
}

// NewDerivativeGenerator creates a DerivativeGenerator
func NewDerivativeGenerator(processor ImageProcessor, store ObjectStore) *DerivativeGenerator {
	return &DerivativeGenerator{processor: processor, store: store}
}

// Generate decodes data once, writes the original unchanged and every
// derivative the source is large enough for. filename must already be unique.
//
// Undecodable bytes fail with media.InvalidImageError and bytes whose decoded
// format is not mimeType fail as a disallowed mime type, both before anything
// is written. A failure after the first successful write returns
// media.PartialUploadError listing the objects already stored; they are not
// removed.
func (g *DerivativeGenerator) Generate(ctx context.Context, data []byte, filename, mimeType string, tier media.Tier) (set *GeneratedSet, err error) {
	ctx, span := telemetry.StartSpan(ctx, "media", "generate",
		attribute.String("media.filename", filename),
		attribute.String("storage.tier", tier.String()),
		attribute.Int("media.size", len(data)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	src, err := g.processor.Decode(data)
	if err != nil {
		return nil, &media.InvalidImageError{Filename: filename, Err: err}
	}
	if decoded := media.FormatMimeType(src.Format()); decoded != mimeType {
		return nil, media.NewMismatchedMimeTypeError(mimeType, src.Format())
	}
	width, height := src.Width(), src.Height()
	span.SetAttributes(attribute.Int("media.width", width), attribute.Int("media.height", height))

	set = &GeneratedSet{Width: width, Height: height, Format: src.Format(), MimeType: mimeType}

	for _, spec := range media.DerivativeSpecs() {
		if !spec.Applies(width, height) {
			continue
		}

		obj, err := g.storeVariant(ctx, src, spec, data, filename, mimeType, tier)
		if err != nil {
			if len(set.Objects) == 0 {
				return nil, err
			}
			return nil, &media.PartialUploadError{Failed: spec.Variant, Uploaded: set.Objects, Err: err}
		}
		set.Objects = append(set.Objects, obj)
		setKey(&set.Keys, spec.Variant, obj.Key)
	}

	logger.L(ctx).Debug("Generated derivative set",
		zap.String("filename", filename),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("objects", len(set.Objects)),
	)
	return set, nil
}

// storeVariant renders one derivative and writes it
func (g *DerivativeGenerator) storeVariant(ctx context.Context, src media.Image, spec media.DerivativeSpec, data []byte, filename, mimeType string, tier media.Tier) (media.StoredObject, error) {
	if spec.Variant == media.VariantOriginal {
		key := spec.ObjectKey(filename, "")
		if err := g.store.Put(ctx, tier, key, data, mimeType); err != nil {
			return media.StoredObject{}, err
		}
		return media.StoredObject{
			Variant:     spec.Variant,
			Tier:        tier,
			Key:         key,
			ContentType: mimeType,
			ByteSize:    int64(len(data)),
			Width:       src.Width(),
			Height:      src.Height(),
		}, nil
	}

	rendition, err := g.processor.Render(src, spec)
	if err != nil {
		return media.StoredObject{}, fmt.Errorf("render %s derivative: %w", spec.Variant, err)
	}

	ext := rendition.Ext
	if rendition.ContentType == mimeType {
		ext = ""
	}
	key := spec.ObjectKey(filename, ext)
	if err := g.store.Put(ctx, tier, key, rendition.Data, rendition.ContentType); err != nil {
		return media.StoredObject{}, err
	}
	return media.StoredObject{
		Variant:     spec.Variant,
		Tier:        tier,
		Key:         key,
		ContentType: rendition.ContentType,
		ByteSize:    int64(len(rendition.Data)),
		Width:       rendition.Width,
		Height:      rendition.Height,
	}, nil
}

func setKey(keys *media.AssetKeys, v media.Variant, key string) {
	switch v {
	case media.VariantOriginal:
		keys.Original = key
	case media.VariantLarge:
		keys.Large = key
	case media.VariantMedium:
		keys.Medium = key
	case media.VariantThumb:
		keys.Thumb = key
	}
}
