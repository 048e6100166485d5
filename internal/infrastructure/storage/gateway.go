package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/infrastructure/telemetry"
)

// URLOptions controls how BuildURL renders a key
type URLOptions struct {
	// Signed requests a time-limited presigned URL
	Signed bool
	// TTL overrides the configured signed URL lifetime
	TTL time.Duration
}

// Gateway is the only component that talks to object storage. Every
// operation takes a tier and a canonical key.
type Gateway struct {
	holder *ClientHolder
	logger *zap.Logger
}

// NewGateway creates a gateway over the tier backends of holder
func NewGateway(holder *ClientHolder, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{holder: holder, logger: logger}
}

// Put writes data under key. Objects are marked immutable for caches.
func (g *Gateway) Put(ctx context.Context, tier media.Tier, key string, data []byte, contentType string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "storage", "put",
		attribute.String("storage.tier", tier.String()),
		attribute.String("storage.key", key),
		attribute.Int("storage.size", len(data)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if err := media.ValidateKey(key); err != nil {
		return err
	}
	backend, err := g.holder.Backend(tier)
	if err != nil {
		return err
	}
	if err := backend.Put(ctx, key, data, PutOptions{ContentType: contentType, CacheControl: ImmutableCacheControl}); err != nil {
		return &StorageError{Op: "put", Tier: tier, Key: key, Err: err}
	}

	g.logger.Debug("Stored object",
		zap.String("tier", tier.String()),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)
	return nil
}

// Get opens the object stored under key. The caller closes the body.
func (g *Gateway) Get(ctx context.Context, tier media.Tier, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := media.ValidateKey(key); err != nil {
		return nil, ObjectInfo{}, err
	}
	backend, err := g.holder.Backend(tier)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	body, info, err := backend.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Tier: tier, Key: key, Err: err}
	}
	return body, info, nil
}

// Delete removes the object stored under key
func (g *Gateway) Delete(ctx context.Context, tier media.Tier, key string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "storage", "delete",
		attribute.String("storage.tier", tier.String()),
		attribute.String("storage.key", key),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if err := media.ValidateKey(key); err != nil {
		return err
	}
	backend, err := g.holder.Backend(tier)
	if err != nil {
		return err
	}
	if err := backend.Delete(ctx, key); err != nil {
		return &StorageError{Op: "delete", Tier: tier, Key: key, Err: err}
	}
	return nil
}

// Exists reports whether key is stored in tier
func (g *Gateway) Exists(ctx context.Context, tier media.Tier, key string) (bool, error) {
	if err := media.ValidateKey(key); err != nil {
		return false, err
	}
	backend, err := g.holder.Backend(tier)
	if err != nil {
		return false, err
	}
	ok, err := backend.Exists(ctx, key)
	if err != nil {
		return false, &StorageError{Op: "exists", Tier: tier, Key: key, Err: err}
	}
	return ok, nil
}

// List visits every object of tier under prefix
func (g *Gateway) List(ctx context.Context, tier media.Tier, prefix string, fn func(ObjectInfo) error) error {
	backend, err := g.holder.Backend(tier)
	if err != nil {
		return err
	}
	if err := backend.List(ctx, prefix, fn); err != nil {
		return &StorageError{Op: "list", Tier: tier, Key: prefix, Err: err}
	}
	return nil
}

// BuildURL renders a URL for key. A configured public base URL wins;
// otherwise a signed request gets a fresh presigned GET that expires after
// the TTL, and anything else gets the direct storage endpoint URL.
func (g *Gateway) BuildURL(ctx context.Context, tier media.Tier, key string, opts URLOptions) (string, error) {
	if err := media.ValidateKey(key); err != nil {
		return "", err
	}
	settings, err := g.holder.Settings().For(tier)
	if err != nil {
		return "", err
	}

	if settings.PublicBaseURL != "" {
		return settings.PublicBaseURL + "/" + escapeKey(key), nil
	}
	if opts.Signed {
		ttl := opts.TTL
		if ttl <= 0 {
			ttl = g.holder.Settings().SignedURLTTL()
		}
		backend, err := g.holder.Backend(tier)
		if err != nil {
			return "", err
		}
		signed, err := backend.PresignGet(ctx, key, ttl)
		if err != nil {
			return "", &StorageError{Op: "presign", Tier: tier, Key: key, Err: err}
		}
		return signed, nil
	}

	if err := settings.ValidateBucket(); err != nil {
		return "", err
	}
	if settings.Endpoint == "" {
		return "", settings.missing("endpoint")
	}
	return endpointURL(settings, key)
}

// endpointURL renders the direct object URL in the addressing style of the tier
func endpointURL(s TierSettings, key string) (string, error) {
	u, err := url.Parse(s.Endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid storage endpoint %q for tier %s", s.Endpoint, s.Tier)
	}
	base := strings.TrimRight(u.Path, "/")
	if s.UsePathStyle {
		return fmt.Sprintf("%s://%s%s/%s/%s", u.Scheme, u.Host, base, s.Bucket, escapeKey(key)), nil
	}
	return fmt.Sprintf("%s://%s.%s%s/%s", u.Scheme, s.Bucket, u.Host, base, escapeKey(key)), nil
}

// escapeKey escapes each path segment of key, keeping the separators
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
