package storage

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalog/backend/internal/domain/media"
)

func countingFactory(calls *int, mu *sync.Mutex) BackendFactory {
	inner := MemoryFactory()
	return func(s TierSettings) (Backend, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return inner(s)
	}
}

func TestClientHolder_MemoizesPerTier(t *testing.T) {
	var calls int
	var mu sync.Mutex
	h := NewClientHolder(NewSettingsResolver(testStorageConfig()), countingFactory(&calls, &mu))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Backend(media.TierPublic)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)

	pub, err := h.Backend(media.TierPublic)
	require.NoError(t, err)
	restricted, err := h.Backend(media.TierRestricted)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "product-images", pub.Bucket())
	assert.Equal(t, "private-media", restricted.Bucket())
}

func TestClientHolder_Reset(t *testing.T) {
	var calls int
	var mu sync.Mutex
	h := NewClientHolder(NewSettingsResolver(testStorageConfig()), countingFactory(&calls, &mu))

	first, err := h.Backend(media.TierPublic)
	require.NoError(t, err)
	h.Reset()
	second, err := h.Backend(media.TierPublic)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.NotSame(t, first, second)
}

func TestClientHolder_Override(t *testing.T) {
	h := NewClientHolder(NewSettingsResolver(testStorageConfig()), MemoryFactory())
	fake := NewMemoryBackend("fake", "")

	h.Override(media.TierRestricted, fake)

	b, err := h.Backend(media.TierRestricted)
	require.NoError(t, err)
	assert.Same(t, fake, b)
}

func TestClientHolder_ConfigurationErrorAtFirstUse(t *testing.T) {
	cfg := testStorageConfig()
	cfg.Restricted.Bucket = ""
	h := NewClientHolder(NewSettingsResolver(cfg), MemoryFactory())

	// the public tier works even though the restricted one is incomplete
	_, err := h.Backend(media.TierPublic)
	require.NoError(t, err)

	_, err = h.Backend(media.TierRestricted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, media.ErrStorageConfiguration))
	assert.Contains(t, err.Error(), "storage.restricted.bucket")
}

func TestClientHolder_FactoryErrorsAreNotMemoized(t *testing.T) {
	fail := true
	factory := func(s TierSettings) (Backend, error) {
		if fail {
			return nil, errors.New("endpoint unreachable")
		}
		return NewMemoryBackend(s.Bucket, ""), nil
	}
	h := NewClientHolder(NewSettingsResolver(testStorageConfig()), factory)

	_, err := h.Backend(media.TierPublic)
	require.Error(t, err)

	fail = false
	b, err := h.Backend(media.TierPublic)
	require.NoError(t, err)
	assert.Equal(t, "product-images", b.Bucket())
}

func TestClientHolder_UnknownTier(t *testing.T) {
	h := NewClientHolder(NewSettingsResolver(testStorageConfig()), MemoryFactory())
	_, err := h.Backend(media.Tier("archive"))
	assert.Error(t, err)
}

func TestS3Factory_ValidatesCredentials(t *testing.T) {
	cfg := testStorageConfig()
	cfg.Public.SecretKey = ""
	h := NewClientHolder(NewSettingsResolver(cfg), S3Factory(nopLogger()))

	_, err := h.Backend(media.TierPublic)
	require.Error(t, err)
	var cfgErr *media.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "storage.public.secret_key", cfgErr.Setting)
}
