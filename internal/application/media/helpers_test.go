package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
	infraconfig "github.com/catalog/backend/internal/infrastructure/config"
	"github.com/catalog/backend/internal/infrastructure/imaging"
	"github.com/catalog/backend/internal/infrastructure/storage"
)

// ============================================================================
// Image fixtures
// ============================================================================

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: 200, G: 80, B: 40, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(w, h), &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(w, h)))
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, solidImage(w, h), nil))
	return buf.Bytes()
}

func bmpBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, solidImage(w, h)))
	return buf.Bytes()
}

// ============================================================================
// Mocks and fakes
// ============================================================================

// MockAssetRepository is a mock implementation of media.AssetRepository
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*media.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Asset), args.Error(1)
}

func (m *MockAssetRepository) FindByKey(ctx context.Context, tier media.Tier, key string) (*media.Asset, error) {
	args := m.Called(ctx, tier, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Asset), args.Error(1)
}

func (m *MockAssetRepository) List(ctx context.Context, filter media.AssetFilter) ([]media.Asset, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]media.Asset), args.Get(1).(int64), args.Error(2)
}

func (m *MockAssetRepository) ExistsByKey(ctx context.Context, tier media.Tier, key string) (bool, error) {
	args := m.Called(ctx, tier, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssetRepository) Save(ctx context.Context, asset *media.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockAssetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// mapIdempotencyStore is an in-process shared.IdempotencyStore
type mapIdempotencyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMapIdempotencyStore() *mapIdempotencyStore {
	return &mapIdempotencyStore{values: map[string]string{}}
}

func (s *mapIdempotencyStore) Remember(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	return true, nil
}

func (s *mapIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *mapIdempotencyStore) Close() error { return nil }

// flakyStore fails Put and Delete calls whose keys are listed
type flakyStore struct {
	ObjectStore
	failPut    map[string]bool
	failDelete map[string]bool
	puts       []string
}

var errBackendDown = errors.New("backend unavailable")

func (f *flakyStore) Put(ctx context.Context, tier media.Tier, key string, data []byte, contentType string) error {
	f.puts = append(f.puts, key)
	for prefix := range f.failPut {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			return errBackendDown
		}
	}
	return f.ObjectStore.Put(ctx, tier, key, data, contentType)
}

func (f *flakyStore) Delete(ctx context.Context, tier media.Tier, key string) error {
	if f.failDelete[key] {
		return errBackendDown
	}
	return f.ObjectStore.Delete(ctx, tier, key)
}

// ============================================================================
// Environment
// ============================================================================

type testEnv struct {
	svc        *AssetService
	repo       *MockAssetRepository
	gateway    *storage.Gateway
	public     *storage.MemoryBackend
	restricted *storage.MemoryBackend
	events     *recordingPublisher
	resolver   *storage.KeyResolver
}

func testSettings() *storage.SettingsResolver {
	return storage.NewSettingsResolver(&infraconfig.StorageConfig{
		Backend: "memory",
		Public: infraconfig.TierStorageConfig{
			Endpoint:      "https://s3.example.com",
			Bucket:        "product-images",
			UsePathStyle:  true,
			PublicBaseURL: "https://cdn.example.com",
		},
		Restricted: infraconfig.TierStorageConfig{
			Endpoint:     "https://s3.example.com",
			Bucket:       "private-media",
			UsePathStyle: true,
		},
		SignedURLTTL:  time.Hour,
		LegacyBuckets: []string{"old-images"},
	})
}

type envOptions struct {
	devProxy bool
	store    func(ObjectStore) ObjectStore
	config   ServiceConfig
	opts     []ServiceOption
}

func newTestEnv(t *testing.T, o envOptions) *testEnv {
	t.Helper()

	settings := testSettings()
	holder := storage.NewClientHolder(settings, storage.MemoryFactory())
	pub := storage.NewMemoryBackend("product-images", "https://s3.example.com")
	restricted := storage.NewMemoryBackend("private-media", "https://s3.example.com")
	holder.Override(media.TierPublic, pub)
	holder.Override(media.TierRestricted, restricted)
	gateway := storage.NewGateway(holder, nil)

	var store ObjectStore = gateway
	if o.store != nil {
		store = o.store(gateway)
	}

	resolver := storage.NewKeyResolverFromSettings(settings, "/api/images/")
	materializer := NewURLMaterializer(store, resolver, MaterializerConfig{
		DevProxy:     o.devProxy,
		ProxyPrefix:  "/api/images/",
		SignedURLTTL: 10 * time.Minute,
	})

	repo := new(MockAssetRepository)
	events := &recordingPublisher{}
	opts := append([]ServiceOption{WithEventPublisher(events)}, o.opts...)
	svc := NewAssetService(
		repo,
		NewDerivativeGenerator(imaging.NewProcessor(), store),
		store,
		resolver,
		materializer,
		o.config,
		opts...,
	)

	return &testEnv{
		svc:        svc,
		repo:       repo,
		gateway:    gateway,
		public:     pub,
		restricted: restricted,
		events:     events,
		resolver:   resolver,
	}
}
