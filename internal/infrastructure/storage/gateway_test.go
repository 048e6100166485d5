package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
)

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestGateway(t *testing.T) (*Gateway, *MemoryBackend, *MemoryBackend) {
	t.Helper()
	h := NewClientHolder(NewSettingsResolver(testStorageConfig()), MemoryFactory())
	pub := NewMemoryBackend("product-images", "https://s3.example.com")
	restricted := NewMemoryBackend("private-media", "https://s3.example.com")
	h.Override(media.TierPublic, pub)
	h.Override(media.TierRestricted, restricted)
	return NewGateway(h, nopLogger()), pub, restricted
}

func TestGateway_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	g, pub, restricted := newTestGateway(t)

	require.NoError(t, g.Put(ctx, media.TierPublic, "original/a.jpg", []byte("jpeg"), "image/jpeg"))
	assert.Equal(t, []string{"original/a.jpg"}, pub.Keys())
	assert.Empty(t, restricted.Keys())

	body, info, err := g.Get(ctx, media.TierPublic, "original/a.jpg")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "image/jpeg", info.ContentType)
	assert.Equal(t, ImmutableCacheControl, info.CacheControl)

	ok, err := g.Exists(ctx, media.TierPublic, "original/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, g.Delete(ctx, media.TierPublic, "original/a.jpg"))
	ok, err = g.Exists(ctx, media.TierPublic, "original/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGateway_GetMissingKey(t *testing.T) {
	g, _, _ := newTestGateway(t)

	_, _, err := g.Get(context.Background(), media.TierRestricted, "original/missing.jpg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "get", storageErr.Op)
	assert.Equal(t, media.TierRestricted, storageErr.Tier)
	assert.Equal(t, "original/missing.jpg", storageErr.Key)
}

func TestGateway_RejectsNonCanonicalKeys(t *testing.T) {
	ctx := context.Background()
	g, pub, _ := newTestGateway(t)

	for _, key := range []string{"", "/original/a.jpg", "https://cdn.example.com/a.jpg", "original/../a.jpg"} {
		err := g.Put(ctx, media.TierPublic, key, []byte("x"), "image/jpeg")
		assert.Error(t, err, key)
	}
	assert.Empty(t, pub.Keys())
}

func TestGateway_BuildURL(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t)

	t.Run("public base", func(t *testing.T) {
		u, err := g.BuildURL(ctx, media.TierPublic, "thumb/red kite_thumb.jpg", URLOptions{})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/thumb/red%20kite_thumb.jpg", u)
	})

	t.Run("public base wins over signing", func(t *testing.T) {
		u, err := g.BuildURL(ctx, media.TierPublic, "original/a.jpg", URLOptions{Signed: true})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/original/a.jpg", u)
	})

	t.Run("endpoint path style", func(t *testing.T) {
		u, err := g.BuildURL(ctx, media.TierRestricted, "original/a.jpg", URLOptions{})
		require.NoError(t, err)
		assert.Equal(t, "https://s3.example.com/private-media/original/a.jpg", u)
	})

	t.Run("signed with configured ttl", func(t *testing.T) {
		u, err := g.BuildURL(ctx, media.TierRestricted, "original/a.jpg", URLOptions{Signed: true})
		require.NoError(t, err)
		assert.Contains(t, u, "https://s3.example.com/private-media/original/a.jpg?")
		assert.Contains(t, u, "X-Amz-Expires=900")
	})

	t.Run("signed with explicit ttl", func(t *testing.T) {
		u, err := g.BuildURL(ctx, media.TierRestricted, "original/a.jpg", URLOptions{Signed: true, TTL: time.Minute})
		require.NoError(t, err)
		assert.Contains(t, u, "X-Amz-Expires=60")
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := g.BuildURL(ctx, media.TierPublic, "data:image/png;base64,AAAA", URLOptions{})
		assert.Error(t, err)
	})
}

func TestGateway_BuildURLVirtualHost(t *testing.T) {
	cfg := testStorageConfig()
	cfg.Restricted.UsePathStyle = false
	g := NewGateway(NewClientHolder(NewSettingsResolver(cfg), MemoryFactory()), nil)

	u, err := g.BuildURL(context.Background(), media.TierRestricted, "p1/a.jpg", URLOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://private-media.s3.example.com/p1/a.jpg", u)
}

func TestGateway_BuildURLWithoutEndpoint(t *testing.T) {
	cfg := testStorageConfig()
	cfg.Restricted.Endpoint = ""
	g := NewGateway(NewClientHolder(NewSettingsResolver(cfg), MemoryFactory()), nil)

	_, err := g.BuildURL(context.Background(), media.TierRestricted, "p1/a.jpg", URLOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrStorageConfiguration)

	var cfgErr *media.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "storage.restricted.endpoint", cfgErr.Setting)
}

func TestGateway_List(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t)
	for _, key := range []string{"original/b.jpg", "original/a.jpg", "thumb/a_thumb.jpg"} {
		require.NoError(t, g.Put(ctx, media.TierPublic, key, []byte("x"), "image/jpeg"))
	}

	var keys []string
	err := g.List(ctx, media.TierPublic, "original/", func(info ObjectInfo) error {
		keys = append(keys, info.Key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"original/a.jpg", "original/b.jpg"}, keys)

	stop := errors.New("stop")
	err = g.List(ctx, media.TierPublic, "", func(ObjectInfo) error { return stop })
	assert.True(t, errors.Is(err, stop))
}
