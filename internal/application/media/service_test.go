package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
)

func storeKite(t *testing.T, env *testEnv, in StoreAssetInput) *AssetResponse {
	t.Helper()
	env.repo.On("Save", mock.Anything, mock.AnythingOfType("*media.Asset")).Return(nil)
	resp, err := env.svc.StoreAsset(context.Background(), in)
	require.NoError(t, err)
	return resp
}

func TestAssetService_StoreAsset_Kite(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	data := jpegBytes(t, 4000, 3000)

	resp := storeKite(t, env, StoreAssetInput{
		Data:     data,
		Filename: "kite.jpg",
		MimeType: "image/jpeg",
		AltText:  "  A red kite  ",
	})

	assert.True(t, resp.IsInMediaPool)
	assert.Equal(t, "upload", resp.Source)
	assert.Equal(t, "public", resp.Tier)
	assert.Equal(t, 4000, resp.Width)
	assert.Equal(t, 3000, resp.Height)
	assert.Equal(t, int64(len(data)), resp.Size)
	assert.Equal(t, "A red kite", resp.AltText)
	assert.True(t, strings.HasSuffix(resp.Filename, "_kite.jpg"))

	assert.Equal(t, "original/"+resp.Filename, resp.Keys.Original)
	assert.NotEmpty(t, resp.Keys.Large)
	assert.NotEmpty(t, resp.Keys.Medium)
	assert.NotEmpty(t, resp.Keys.Thumb)
	assert.Equal(t, "https://cdn.example.com/"+resp.Keys.Thumb, resp.URLs.Thumb)

	assert.Len(t, env.public.Keys(), 4)
	assert.Equal(t, []string{media.EventTypeAssetStored}, env.events.types())
	env.repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestAssetService_StoreAsset_SmallUploadStaysOutOfPool(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := storeKite(t, env, StoreAssetInput{
		Data:     pngBytes(t, 200, 200),
		Filename: "icon.png",
		MimeType: "image/png",
	})

	assert.False(t, resp.IsInMediaPool)
	assert.Empty(t, resp.Keys.Large)
	assert.Empty(t, resp.Keys.Medium)
	assert.Empty(t, resp.Keys.Thumb)
	// every slot falls back to the original
	assert.Equal(t, resp.URLs.Original, resp.URLs.Large)
	assert.Equal(t, resp.URLs.Original, resp.URLs.Medium)
	assert.Equal(t, resp.URLs.Original, resp.URLs.Thumb)
}

func TestAssetService_StoreAsset_DerivedNeverInPool(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := storeKite(t, env, StoreAssetInput{
		Data:      jpegBytes(t, 1600, 1200),
		Filename:  "crop.jpg",
		MimeType:  "image/jpeg",
		IsDerived: true,
	})

	assert.Equal(t, "derived", resp.Source)
	assert.False(t, resp.IsInMediaPool)
}

func TestAssetService_StoreAsset_IdenticalUploadsGetDistinctKeys(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	data := jpegBytes(t, 640, 480)
	in := StoreAssetInput{Data: data, Filename: "same.jpg", MimeType: "image/jpeg"}

	first := storeKite(t, env, in)
	second := storeKite(t, env, in)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Keys.Original, second.Keys.Original)
	assert.Len(t, env.public.Keys(), 6)
}

func TestAssetService_StoreAsset_SkipsFilenamesStoredByOtherWriters(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	seq := &FilenameSequencer{now: func() time.Time { return fixed }}
	env := newTestEnv(t, envOptions{opts: []ServiceOption{WithFilenameSequencer(seq)}})

	ctx := context.Background()
	require.NoError(t, env.gateway.Put(ctx, media.TierPublic, "original/1700000000000_kite.jpg", []byte("other"), "image/jpeg"))
	require.NoError(t, env.gateway.Put(ctx, media.TierPublic, "original/1700000000001_kite.jpg", []byte("other"), "image/jpeg"))

	resp := storeKite(t, env, StoreAssetInput{
		Data:     jpegBytes(t, 200, 200),
		Filename: "kite.jpg",
		MimeType: "image/jpeg",
	})
	assert.Equal(t, "1700000000002_kite.jpg", resp.Filename)

	body, _, err := env.gateway.Get(ctx, media.TierPublic, "original/1700000000000_kite.jpg")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))
}

func TestAssetService_StoreAsset_RestrictedTier(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := storeKite(t, env, StoreAssetInput{
		Data:     jpegBytes(t, 900, 900),
		Filename: "contract.jpg",
		MimeType: "image/jpeg",
		Tier:     media.TierRestricted,
	})

	assert.Equal(t, "restricted", resp.Tier)
	assert.Empty(t, env.public.Keys())
	assert.Len(t, env.restricted.Keys(), 3)
	assert.Contains(t, resp.URLs.Original, "https://s3.example.com/private-media/original/")
	assert.Contains(t, resp.URLs.Original, "X-Amz-Expires=600")
}

func TestAssetService_StoreAsset_RejectsMislabeledImages(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	_, err := env.svc.StoreAsset(context.Background(), StoreAssetInput{
		Data:     bmpBytes(t, 300, 300),
		Filename: "scan.png",
		MimeType: "image/png",
	})
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, media.CodeDisallowedMimeType, domainErr.Code)
	assert.Contains(t, domainErr.Message, "bmp")
	assert.Empty(t, env.public.Keys())
	env.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, env.events.types())
}

func TestAssetService_StoreAsset_RejectsBeforeProcessing(t *testing.T) {
	tests := []struct {
		name string
		in   StoreAssetInput
		code string
	}{
		{
			name: "disallowed mime type",
			in:   StoreAssetInput{Data: []byte("<svg/>"), Filename: "logo.svg", MimeType: "image/svg+xml"},
			code: media.CodeDisallowedMimeType,
		},
		{
			name: "empty file",
			in:   StoreAssetInput{Data: nil, Filename: "empty.jpg", MimeType: "image/jpeg"},
			code: media.CodeEmptyFile,
		},
		{
			name: "too large",
			in:   StoreAssetInput{Data: make([]byte, 2048), Filename: "huge.jpg", MimeType: "image/jpeg"},
			code: media.CodeFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{config: ServiceConfig{MaxUploadSize: 1024}})

			_, err := env.svc.StoreAsset(context.Background(), tt.in)
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.code, domainErr.Code)
			assert.Empty(t, env.public.Keys())
			env.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestAssetService_StoreAsset_MimeTypeParameters(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := storeKite(t, env, StoreAssetInput{
		Data:     jpegBytes(t, 100, 100),
		Filename: "a.jpg",
		MimeType: "Image/JPG; charset=binary",
	})
	assert.Equal(t, "image/jpeg", resp.MimeType)
}

func TestAssetService_StoreAsset_InvalidImage(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	_, err := env.svc.StoreAsset(context.Background(), StoreAssetInput{
		Data:     []byte("definitely not a jpeg"),
		Filename: "broken.jpg",
		MimeType: "image/jpeg",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, media.ErrInvalidImage))
	assert.Empty(t, env.public.Keys())
	env.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAssetService_StoreAsset_PartialUploadCreatesNoRecord(t *testing.T) {
	env := newTestEnv(t, envOptions{store: func(s ObjectStore) ObjectStore {
		return &flakyStore{ObjectStore: s, failPut: map[string]bool{"thumb/": true}}
	}})

	_, err := env.svc.StoreAsset(context.Background(), StoreAssetInput{
		Data:     jpegBytes(t, 2400, 1800),
		Filename: "kite.jpg",
		MimeType: "image/jpeg",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, media.ErrPartialUpload))
	assert.Len(t, env.public.Keys(), 3)
	env.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, env.events.types())
}

func TestAssetService_StoreAsset_IdempotencyKey(t *testing.T) {
	idem := newMapIdempotencyStore()
	env := newTestEnv(t, envOptions{opts: []ServiceOption{WithIdempotencyStore(idem)}})

	var saved *media.Asset
	env.repo.On("Save", mock.Anything, mock.AnythingOfType("*media.Asset")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*media.Asset) }).
		Return(nil).Once()

	in := StoreAssetInput{
		Data:           jpegBytes(t, 1000, 800),
		Filename:       "kite.jpg",
		MimeType:       "image/jpeg",
		IdempotencyKey: "req-1",
	}
	first, err := env.svc.StoreAsset(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, saved)

	env.repo.On("FindByID", mock.Anything, saved.ID).Return(saved, nil)
	second, err := env.svc.StoreAsset(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Keys, second.Keys)
	assert.Len(t, env.public.Keys(), 3)
	env.repo.AssertNumberOfCalls(t, "Save", 1)
}

func newStoredAsset(t *testing.T, env *testEnv, tier media.Tier, w, h int) *media.Asset {
	t.Helper()
	var saved *media.Asset
	env.repo.On("Save", mock.Anything, mock.AnythingOfType("*media.Asset")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*media.Asset) }).
		Return(nil).Once()
	_, err := env.svc.StoreAsset(context.Background(), StoreAssetInput{
		Data:     jpegBytes(t, w, h),
		Filename: "kite.jpg",
		MimeType: "image/jpeg",
		Tier:     tier,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	return saved
}

func TestAssetService_DeleteAsset_ByLegacyURL(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	asset := newStoredAsset(t, env, media.TierPublic, 2400, 1800)
	require.Len(t, env.public.Keys(), 4)

	env.repo.On("FindByKey", mock.Anything, media.TierPublic, asset.Keys.Thumb).Return(asset, nil)
	env.repo.On("Delete", mock.Anything, asset.ID).Return(nil)

	legacy := "https://product-images.s3.amazonaws.com/" + asset.Keys.Thumb
	require.NoError(t, env.svc.DeleteAsset(context.Background(), legacy, media.TierPublic))

	assert.Empty(t, env.public.Keys())
	assert.Equal(t, []string{media.EventTypeAssetStored, media.EventTypeAssetDeleted}, env.events.types())
	env.repo.AssertExpectations(t)
}

func TestAssetService_DeleteAsset_ContinuesAfterObjectFailure(t *testing.T) {
	var flaky *flakyStore
	env := newTestEnv(t, envOptions{store: func(s ObjectStore) ObjectStore {
		flaky = &flakyStore{ObjectStore: s, failDelete: map[string]bool{}}
		return flaky
	}})
	asset := newStoredAsset(t, env, media.TierPublic, 2400, 1800)
	flaky.failDelete[asset.Keys.Large] = true

	env.repo.On("FindByKey", mock.Anything, media.TierPublic, asset.Keys.Original).Return(asset, nil)
	env.repo.On("Delete", mock.Anything, asset.ID).Return(nil)

	require.NoError(t, env.svc.DeleteAsset(context.Background(), asset.Keys.Original, media.TierPublic))
	assert.Equal(t, []string{asset.Keys.Large}, env.public.Keys())
	env.repo.AssertExpectations(t)
}

func TestAssetService_DeleteAsset_ObjectWithoutRecord(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()
	require.NoError(t, env.gateway.Put(ctx, media.TierPublic, "p1/a.jpg", []byte("x"), "image/jpeg"))

	env.repo.On("FindByKey", mock.Anything, media.TierPublic, "p1/a.jpg").Return(nil, shared.ErrNotFound)

	require.NoError(t, env.svc.DeleteAsset(ctx, "https://cdn.example.com/product-images/p1/a.jpg", media.TierPublic))
	assert.Empty(t, env.public.Keys())
	env.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAssetService_DeleteAsset_UnknownKey(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.repo.On("FindByKey", mock.Anything, media.TierPublic, "original/ghost.jpg").Return(nil, shared.ErrNotFound)

	err := env.svc.DeleteAsset(context.Background(), "original/ghost.jpg", media.TierPublic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	err = env.svc.DeleteAsset(context.Background(), "https://elsewhere.example.org/a.jpg", media.TierPublic)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestAssetService_DeleteAssetByID(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	asset := newStoredAsset(t, env, media.TierRestricted, 1000, 800)

	env.repo.On("FindByID", mock.Anything, asset.ID).Return(asset, nil)
	env.repo.On("Delete", mock.Anything, asset.ID).Return(nil)

	require.NoError(t, env.svc.DeleteAssetByID(context.Background(), asset.ID))
	assert.Empty(t, env.restricted.Keys())

	missing := uuid.New()
	env.repo.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	err := env.svc.DeleteAssetByID(context.Background(), missing)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestAssetService_ResolveViewableURL(t *testing.T) {
	ctx := context.Background()

	t.Run("public tier uses the static base", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		u, err := env.svc.ResolveViewableURL(ctx, "https://product-images.s3.amazonaws.com/p1/a.jpg", media.TierPublic)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/p1/a.jpg", u)
	})

	t.Run("restricted tier is signed fresh", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		u, err := env.svc.ResolveViewableURL(ctx, "original/contract.png", media.TierRestricted)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u, "https://s3.example.com/private-media/original/contract.png?"))
		assert.Contains(t, u, "X-Amz-Expires=600")
	})

	t.Run("dev proxy", func(t *testing.T) {
		env := newTestEnv(t, envOptions{devProxy: true})
		u, err := env.svc.ResolveViewableURL(ctx, "https://cdn.example.com/p1/red kite.jpg", media.TierPublic)
		require.NoError(t, err)
		assert.Equal(t, "/api/images/p1/red%20kite.jpg", u)

		u, err = env.svc.ResolveViewableURL(ctx, "original/contract.png", media.TierRestricted)
		require.NoError(t, err)
		assert.Equal(t, "/api/images/original/contract.png?tier=restricted", u)
	})

	t.Run("unresolvable input passes through", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		in := "https://elsewhere.example.org/a.jpg"
		u, err := env.svc.ResolveViewableURL(ctx, in, media.TierPublic)
		require.NoError(t, err)
		assert.Equal(t, in, u)
	})
}

func TestAssetService_SignKeys(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	inputs := make([]string, 0, 25)
	for i := 0; i < 24; i++ {
		inputs = append(inputs, fmt.Sprintf("https://s3.example.com/private-media/original/%02d.jpg", i))
	}
	inputs = append(inputs, "data:image/png;base64,AAAA")

	results, err := env.svc.SignKeys(context.Background(), media.TierRestricted, inputs, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))

	for i := 0; i < 24; i++ {
		assert.True(t, results[i].Resolved)
		assert.Equal(t, fmt.Sprintf("original/%02d.jpg", i), results[i].Key)
		assert.Contains(t, results[i].URL, results[i].Key+"?")
		assert.Contains(t, results[i].URL, "X-Amz-Expires=300")
	}
	last := results[24]
	assert.False(t, last.Resolved)
	assert.Equal(t, inputs[24], last.URL)
}

func TestAssetService_UpdateAsset(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	small := newStoredAsset(t, env, media.TierPublic, 640, 480)
	env.repo.On("FindByID", mock.Anything, small.ID).Return(small, nil)
	env.repo.On("Save", mock.Anything, small).Return(nil)

	resp, err := env.svc.UpdateMetadata(context.Background(), small.ID, "Kite", "Flying high")
	require.NoError(t, err)
	assert.Equal(t, "Kite", resp.AltText)
	assert.Equal(t, "Flying high", resp.Caption)

	_, err = env.svc.SetPoolVisibility(context.Background(), small.ID, true)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_POOL_ELIGIBLE", domainErr.Code)

	caption := strings.Repeat("x", 2001)
	_, err = env.svc.UpdateAsset(context.Background(), small.ID, UpdateAssetInput{Caption: &caption})
	assert.Error(t, err)
}

func TestAssetService_SetPoolVisibility_HidesEligibleAsset(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	big := newStoredAsset(t, env, media.TierPublic, 1200, 900)
	require.True(t, big.InPool)
	env.repo.On("FindByID", mock.Anything, big.ID).Return(big, nil)
	env.repo.On("Save", mock.Anything, big).Return(nil)

	resp, err := env.svc.SetPoolVisibility(context.Background(), big.ID, false)
	require.NoError(t, err)
	assert.False(t, resp.IsInMediaPool)

	resp, err = env.svc.SetPoolVisibility(context.Background(), big.ID, true)
	require.NoError(t, err)
	assert.True(t, resp.IsInMediaPool)
}

func TestAssetService_ListAssets(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	asset := newStoredAsset(t, env, media.TierPublic, 1200, 900)

	env.repo.On("List", mock.Anything, media.AssetFilter{
		PoolOnly: true,
		Source:   media.SourceUpload,
		Page:     2,
		PageSize: media.MaxPageSize,
	}).Return([]media.Asset{*asset}, int64(101), nil)

	resp, err := env.svc.ListAssets(context.Background(), ListAssetsQuery{
		PoolOnly: true,
		Source:   "upload",
		Page:     2,
		PageSize: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), resp.Total)
	assert.Equal(t, media.MaxPageSize, resp.PageSize)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, asset.ID, resp.Items[0].ID)

	_, err = env.svc.ListAssets(context.Background(), ListAssetsQuery{Source: "scraped"})
	assert.Error(t, err)
}
