package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
	"github.com/catalog/backend/internal/infrastructure/storage"
)

// DefaultSignConcurrency bounds concurrent signing in SignKeys
const DefaultSignConcurrency = 10

// ServiceConfig holds the upload policy of the asset service
type ServiceConfig struct {
	MaxUploadSize    int64
	AllowedMimeTypes []string
	DefaultTier      media.Tier
	IdempotencyTTL   time.Duration
	SignConcurrency  int
}

// DefaultServiceConfig returns the default upload policy
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxUploadSize:    20 << 20,
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		DefaultTier:      media.TierPublic,
		IdempotencyTTL:   24 * time.Hour,
		SignConcurrency:  DefaultSignConcurrency,
	}
}

// AssetService runs the media asset lifecycle: upload, viewing, editing and deletion
type AssetService struct {
	repo           media.AssetRepository
	generator      *DerivativeGenerator
	store          ObjectStore
	resolver       KeyResolver
	materializer   *URLMaterializer
	eventPublisher shared.EventPublisher
	idempotency    shared.IdempotencyStore
	names          *FilenameSequencer
	config         ServiceConfig
	allowed        map[string]bool
	logger         *zap.Logger
}

// ServiceOption configures optional collaborators of AssetService
type ServiceOption func(*AssetService)

// WithEventPublisher publishes lifecycle events after each committed change
func WithEventPublisher(p shared.EventPublisher) ServiceOption {
	return func(s *AssetService) { s.eventPublisher = p }
}

// WithIdempotencyStore enables Idempotency-Key handling for uploads
func WithIdempotencyStore(store shared.IdempotencyStore) ServiceOption {
	return func(s *AssetService) { s.idempotency = store }
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *AssetService) { s.logger = l }
}

// WithFilenameSequencer replaces the default wall-clock sequencer
func WithFilenameSequencer(seq *FilenameSequencer) ServiceOption {
	return func(s *AssetService) { s.names = seq }
}

// NewAssetService creates an AssetService
func NewAssetService(
	repo media.AssetRepository,
	generator *DerivativeGenerator,
	store ObjectStore,
	resolver KeyResolver,
	materializer *URLMaterializer,
	config ServiceConfig,
	opts ...ServiceOption,
) *AssetService {
	defaults := DefaultServiceConfig()
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = defaults.MaxUploadSize
	}
	if len(config.AllowedMimeTypes) == 0 {
		config.AllowedMimeTypes = defaults.AllowedMimeTypes
	}
	if !config.DefaultTier.IsValid() {
		config.DefaultTier = defaults.DefaultTier
	}
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = defaults.IdempotencyTTL
	}
	if config.SignConcurrency <= 0 {
		config.SignConcurrency = defaults.SignConcurrency
	}

	allowed := make(map[string]bool, len(config.AllowedMimeTypes))
	for _, m := range config.AllowedMimeTypes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = true
	}

	s := &AssetService{
		repo:         repo,
		generator:    generator,
		store:        store,
		resolver:     resolver,
		materializer: materializer,
		names:        NewFilenameSequencer(),
		config:       config,
		allowed:      allowed,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultTier is the tier used when a request names none
func (s *AssetService) DefaultTier() media.Tier {
	return s.config.DefaultTier
}

// MaxUploadSize is the largest accepted upload in bytes
func (s *AssetService) MaxUploadSize() int64 {
	return s.config.MaxUploadSize
}

// StoreAsset validates an upload, stores its derivative set and creates the catalog record
func (s *AssetService) StoreAsset(ctx context.Context, in StoreAssetInput) (*AssetResponse, error) {
	if resp, ok := s.replay(ctx, in.IdempotencyKey); ok {
		return resp, nil
	}

	mimeType, err := s.checkUpload(in)
	if err != nil {
		return nil, err
	}

	tier := in.Tier
	if tier == "" {
		tier = s.config.DefaultTier
	}
	if !tier.IsValid() {
		return nil, shared.NewDomainError(media.CodeInvalidTier, fmt.Sprintf("unknown storage tier %q", tier))
	}

	source := media.SourceUpload
	if in.IsDerived {
		source = media.SourceDerived
	}

	filename, err := s.claimFilename(ctx, in.Filename, tier)
	if err != nil {
		return nil, err
	}
	set, err := s.generator.Generate(ctx, in.Data, filename, mimeType, tier)
	if err != nil {
		var partial *media.PartialUploadError
		if errors.As(err, &partial) {
			s.logger.Error("Derivative upload failed after partial writes",
				zap.String("filename", filename),
				zap.String("tier", tier.String()),
				zap.String("failed_variant", string(partial.Failed)),
				zap.Int("stored_objects", len(partial.Uploaded)),
				zap.Error(partial.Err))
		}
		return nil, err
	}

	asset, err := media.NewAsset(media.NewAssetParams{
		Filename: filename,
		Keys:     set.Keys,
		MimeType: set.MimeType,
		ByteSize: int64(len(in.Data)),
		Width:    set.Width,
		Height:   set.Height,
		AltText:  in.AltText,
		Caption:  in.Caption,
		Source:   source,
		Tier:     tier,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, asset); err != nil {
		return nil, err
	}
	s.publish(ctx, asset)
	s.remember(ctx, in.IdempotencyKey, asset.ID)

	s.logger.Info("Media asset stored",
		zap.String("asset_id", asset.ID.String()),
		zap.String("filename", filename),
		zap.String("tier", tier.String()),
		zap.Int("objects", len(set.Objects)),
		zap.Bool("in_pool", asset.InPool))

	return s.respond(ctx, asset)
}

// maxFilenameAttempts bounds the retries when a sequenced name is already stored
const maxFilenameAttempts = 5

// claimFilename returns a sequenced filename whose original object does not
// exist yet. The sequencer only orders names within this process, so names
// written by other processes sharing the bucket are checked in storage.
func (s *AssetService) claimFilename(ctx context.Context, name string, tier media.Tier) (string, error) {
	original, _ := media.SpecFor(media.VariantOriginal)
	for range maxFilenameAttempts {
		filename := s.names.Next(name)
		taken, err := s.store.Exists(ctx, tier, original.ObjectKey(filename, ""))
		if err != nil {
			return "", err
		}
		if !taken {
			return filename, nil
		}
		s.logger.Warn("Sequenced filename already stored",
			zap.String("filename", filename),
			zap.String("tier", tier.String()))
	}
	return "", shared.NewDomainError(shared.ErrAlreadyExists.Code,
		fmt.Sprintf("no free filename for %q after %d attempts", name, maxFilenameAttempts))
}

// checkUpload rejects uploads before any decoding happens and returns the normalized mime type
func (s *AssetService) checkUpload(in StoreAssetInput) (string, error) {
	mimeType := normalizeMimeType(in.MimeType)
	if !s.allowed[mimeType] {
		return "", media.NewDisallowedMimeTypeError(in.MimeType)
	}
	if len(in.Data) == 0 {
		return "", shared.NewDomainError(media.CodeEmptyFile, "Uploaded file is empty")
	}
	if int64(len(in.Data)) > s.config.MaxUploadSize {
		return "", media.NewFileTooLargeError(int64(len(in.Data)), s.config.MaxUploadSize)
	}
	if strings.TrimSpace(in.Filename) == "" {
		return "", shared.NewDomainError(shared.ErrInvalidInput.Code, "Filename cannot be empty")
	}
	return mimeType, nil
}

func normalizeMimeType(v string) string {
	if parsed, _, err := mime.ParseMediaType(v); err == nil {
		v = parsed
	}
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "image/jpg" || v == "image/pjpeg" {
		v = "image/jpeg"
	}
	return v
}

// replay returns the record created for an idempotency key, if any
func (s *AssetService) replay(ctx context.Context, key string) (*AssetResponse, bool) {
	if key == "" || s.idempotency == nil {
		return nil, false
	}
	value, found, err := s.idempotency.Lookup(ctx, idempotencyKey(key))
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, false
	}
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, false
	}
	resp, err := s.respond(ctx, asset)
	if err != nil {
		return nil, false
	}
	return resp, true
}

func (s *AssetService) remember(ctx context.Context, key string, id uuid.UUID) {
	if key == "" || s.idempotency == nil {
		return
	}
	stored, err := s.idempotency.Remember(ctx, idempotencyKey(key), id.String(), s.config.IdempotencyTTL)
	if err != nil {
		s.logger.Warn("Failed to remember idempotency key", zap.String("key", key), zap.Error(err))
		return
	}
	if !stored {
		s.logger.Warn("Idempotency key already taken by a concurrent upload",
			zap.String("key", key),
			zap.String("asset_id", id.String()))
	}
}

func idempotencyKey(key string) string {
	return "media:upload:" + key
}

// ResolveViewableURL renders a viewable URL for a key or legacy URL of the given tier.
// Input that is not ours is returned unchanged.
func (s *AssetService) ResolveViewableURL(ctx context.Context, input string, tier media.Tier) (string, error) {
	return s.materializer.ToViewableURL(ctx, input, tier)
}

// Resolve canonicalizes input and renders its viewable URL
func (s *AssetService) Resolve(ctx context.Context, input string, tier media.Tier) (*ResolvedURL, error) {
	key, ok := s.resolver.Resolve(input)
	if !ok {
		return &ResolvedURL{Input: input, URL: input}, nil
	}
	u, err := s.materializer.KeyURL(ctx, key, tier)
	if err != nil {
		return nil, err
	}
	return &ResolvedURL{Input: input, Key: key, URL: u, Resolved: true}, nil
}

// DeleteAsset removes the record owning key together with every object of
// its derivative set. Object deletions that fail are logged and skipped.
// When no record references key but the object exists, only the object is
// removed.
func (s *AssetService) DeleteAsset(ctx context.Context, input string, tier media.Tier) error {
	key, ok := s.resolver.Resolve(input)
	if !ok {
		return media.NewAssetNotFoundError(input)
	}

	asset, err := s.repo.FindByKey(ctx, tier, key)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		exists, err := s.store.Exists(ctx, tier, key)
		if err != nil {
			return err
		}
		if !exists {
			return media.NewAssetNotFoundError(key)
		}
		if err := s.store.Delete(ctx, tier, key); err != nil {
			return err
		}
		s.logger.Info("Deleted unreferenced object", zap.String("tier", tier.String()), zap.String("key", key))
		return nil
	}

	return s.deleteAsset(ctx, asset)
}

// DeleteAssetByID removes a record and all of its objects
func (s *AssetService) DeleteAssetByID(ctx context.Context, id uuid.UUID) error {
	asset, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteAsset(ctx, asset)
}

func (s *AssetService) deleteAsset(ctx context.Context, asset *media.Asset) error {
	failed := 0
	for _, key := range asset.Keys.All() {
		if err := s.store.Delete(ctx, asset.Tier, key); err != nil {
			failed++
			s.logger.Warn("Failed to delete object",
				zap.String("asset_id", asset.ID.String()),
				zap.String("tier", asset.Tier.String()),
				zap.String("key", key),
				zap.Error(err))
		}
	}

	if err := s.repo.Delete(ctx, asset.ID); err != nil {
		return err
	}
	asset.MarkDeleted()
	s.publish(ctx, asset)

	s.logger.Info("Media asset deleted",
		zap.String("asset_id", asset.ID.String()),
		zap.Int("failed_objects", failed))
	return nil
}

// GetAsset returns one record
func (s *AssetService) GetAsset(ctx context.Context, id uuid.UUID) (*AssetResponse, error) {
	asset, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, asset)
}

// ListAssets returns a page of records, newest first
func (s *AssetService) ListAssets(ctx context.Context, q ListAssetsQuery) (*AssetListResponse, error) {
	filter := media.AssetFilter{
		PoolOnly: q.PoolOnly,
		Page:     q.Page,
		PageSize: q.PageSize,
		SortBy:   q.SortBy,
		SortAsc:  strings.EqualFold(q.SortDir, "asc"),
	}
	if q.Source != "" {
		source := media.Source(q.Source)
		if !source.IsValid() {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Unknown asset source %q", q.Source))
		}
		filter.Source = source
	}
	if q.Tier != "" {
		tier, err := media.ParseTier(q.Tier)
		if err != nil {
			return nil, err
		}
		filter.Tier = tier
	}
	filter = filter.Normalize()

	assets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]AssetResponse, 0, len(assets))
	for i := range assets {
		resp, err := s.respond(ctx, &assets[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *resp)
	}
	return &AssetListResponse{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// UpdateMetadata replaces alt text and caption
func (s *AssetService) UpdateMetadata(ctx context.Context, id uuid.UUID, altText, caption string) (*AssetResponse, error) {
	return s.UpdateAsset(ctx, id, UpdateAssetInput{AltText: &altText, Caption: &caption})
}

// SetPoolVisibility lists or hides a record in the media pool
func (s *AssetService) SetPoolVisibility(ctx context.Context, id uuid.UUID, inPool bool) (*AssetResponse, error) {
	return s.UpdateAsset(ctx, id, UpdateAssetInput{IsInMediaPool: &inPool})
}

// UpdateAsset applies the non-nil fields of in
func (s *AssetService) UpdateAsset(ctx context.Context, id uuid.UUID, in UpdateAssetInput) (*AssetResponse, error) {
	asset, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.AltText != nil || in.Caption != nil {
		alt, caption := asset.AltText, asset.Caption
		if in.AltText != nil {
			alt = *in.AltText
		}
		if in.Caption != nil {
			caption = *in.Caption
		}
		if err := asset.UpdateMetadata(alt, caption); err != nil {
			return nil, err
		}
	}
	if in.IsInMediaPool != nil {
		if err := asset.SetPoolVisibility(*in.IsInMediaPool); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, asset); err != nil {
		return nil, err
	}
	return s.respond(ctx, asset)
}

// SignKeys resolves each input and renders a signed URL for it, signing
// concurrently. Results keep the input order; inputs that are not ours are
// returned unchanged. The first signing error cancels the batch.
func (s *AssetService) SignKeys(ctx context.Context, tier media.Tier, inputs []string, ttl time.Duration) ([]ResolvedURL, error) {
	results := make([]ResolvedURL, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.SignConcurrency)
	for i, input := range inputs {
		g.Go(func() error {
			key, ok := s.resolver.Resolve(input)
			if !ok {
				results[i] = ResolvedURL{Input: input, URL: input}
				return nil
			}
			u, err := s.store.BuildURL(ctx, tier, key, storage.URLOptions{Signed: true, TTL: ttl})
			if err != nil {
				return err
			}
			results[i] = ResolvedURL{Input: input, Key: key, URL: u, Resolved: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *AssetService) find(ctx context.Context, id uuid.UUID) (*media.Asset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, media.NewAssetNotFoundError(id.String())
		}
		return nil, err
	}
	return asset, nil
}

func (s *AssetService) respond(ctx context.Context, asset *media.Asset) (*AssetResponse, error) {
	var urls AssetURLsResponse
	slots := []struct {
		variant media.Variant
		dst     *string
	}{
		{media.VariantOriginal, &urls.Original},
		{media.VariantLarge, &urls.Large},
		{media.VariantMedium, &urls.Medium},
		{media.VariantThumb, &urls.Thumb},
	}
	for _, slot := range slots {
		u, err := s.materializer.KeyURL(ctx, asset.Keys.For(slot.variant), asset.Tier)
		if err != nil {
			return nil, err
		}
		*slot.dst = u
	}
	resp := toAssetResponse(asset, urls)
	return &resp, nil
}

func (s *AssetService) publish(ctx context.Context, asset *media.Asset) {
	events := asset.GetDomainEvents()
	asset.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish media asset events",
			zap.String("asset_id", asset.ID.String()),
			zap.Error(err))
	}
}
