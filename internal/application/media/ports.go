package media

import (
	"context"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/infrastructure/storage"
)

// ImageProcessor decodes uploads and renders derivatives.
// Implemented by infrastructure/imaging.
type ImageProcessor interface {
	Decode(data []byte) (media.Image, error)
	Render(src media.Image, spec media.DerivativeSpec) (*media.Rendition, error)
}

// ObjectStore is the storage gateway as seen by the media services.
// Implemented by storage.Gateway.
type ObjectStore interface {
	Put(ctx context.Context, tier media.Tier, key string, data []byte, contentType string) error
	Delete(ctx context.Context, tier media.Tier, key string) error
	Exists(ctx context.Context, tier media.Tier, key string) (bool, error)
	BuildURL(ctx context.Context, tier media.Tier, key string, opts storage.URLOptions) (string, error)
}

// KeyResolver canonicalizes historical key and URL shapes.
// Implemented by storage.KeyResolver.
type KeyResolver interface {
	Resolve(in string) (string, bool)
}
