package media

import (
	"errors"
	"testing"

	"github.com/catalog/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() NewAssetParams {
	return NewAssetParams{
		Filename: "1700000000000_kite.jpg",
		Keys: AssetKeys{
			Original: "original/1700000000000_kite.jpg",
			Large:    "large/1700000000000_kite_large.jpg",
			Medium:   "medium/1700000000000_kite_medium.jpg",
			Thumb:    "thumb/1700000000000_kite_thumb.jpg",
		},
		MimeType: "image/jpeg",
		ByteSize: 2048,
		Width:    4000,
		Height:   3000,
		Source:   SourceUpload,
		Tier:     TierPublic,
	}
}

func TestNewAsset(t *testing.T) {
	t.Run("creates asset and raises stored event", func(t *testing.T) {
		asset, err := NewAsset(validParams())
		require.NoError(t, err)

		assert.NotEmpty(t, asset.ID)
		assert.True(t, asset.InPool)
		events := asset.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeAssetStored, events[0].EventType())
		stored := events[0].(*AssetStoredEvent)
		assert.Len(t, stored.Keys, 4)
	})

	t.Run("rejects invalid keys", func(t *testing.T) {
		p := validParams()
		p.Keys.Original = "https://cdn.example.com/original/a.jpg"
		_, err := NewAsset(p)
		assert.Error(t, err)

		p = validParams()
		p.Keys.Thumb = "/thumb/a.jpg"
		_, err = NewAsset(p)
		assert.Error(t, err)
	})

	t.Run("rejects bad filename, tier and dimensions", func(t *testing.T) {
		p := validParams()
		p.Filename = "../etc/passwd"
		_, err := NewAsset(p)
		assert.Error(t, err)

		p = validParams()
		p.Tier = Tier("raw")
		_, err = NewAsset(p)
		assert.Error(t, err)

		p = validParams()
		p.Width = 0
		_, err = NewAsset(p)
		assert.Error(t, err)
	})
}

func TestPoolEligibility(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		width  int
		height int
		want   bool
	}{
		{"large upload", SourceUpload, 4000, 3000, true},
		{"exactly 800 on one side", SourceUpload, 800, 100, true},
		{"tall upload", SourceUpload, 100, 900, true},
		{"small upload", SourceUpload, 799, 799, false},
		{"tiny upload", SourceUpload, 200, 200, false},
		{"large derived", SourceDerived, 4000, 3000, false},
		{"small derived", SourceDerived, 200, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			p.Source = tt.source
			p.Width = tt.width
			p.Height = tt.height
			asset, err := NewAsset(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, asset.InPool)
			assert.Equal(t, tt.want, PoolEligible(tt.source, tt.width, tt.height))
		})
	}
}

func TestAsset_Mutations(t *testing.T) {
	t.Run("updates alt text and caption", func(t *testing.T) {
		asset, err := NewAsset(validParams())
		require.NoError(t, err)

		require.NoError(t, asset.UpdateMetadata("  Kite on the beach ", "Summer 2024"))
		assert.Equal(t, "Kite on the beach", asset.AltText)
		assert.Equal(t, "Summer 2024", asset.Caption)
	})

	t.Run("hides and relists an eligible asset", func(t *testing.T) {
		asset, err := NewAsset(validParams())
		require.NoError(t, err)

		require.NoError(t, asset.SetPoolVisibility(false))
		assert.False(t, asset.InPool)
		require.NoError(t, asset.SetPoolVisibility(true))
		assert.True(t, asset.InPool)
	})

	t.Run("refuses to list a derived asset", func(t *testing.T) {
		p := validParams()
		p.Source = SourceDerived
		asset, err := NewAsset(p)
		require.NoError(t, err)

		err = asset.SetPoolVisibility(true)
		require.Error(t, err)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "NOT_POOL_ELIGIBLE", de.Code)
		assert.False(t, asset.InPool)
	})

	t.Run("mark deleted raises event with every key", func(t *testing.T) {
		asset, err := NewAsset(validParams())
		require.NoError(t, err)
		asset.ClearDomainEvents()

		asset.MarkDeleted()
		events := asset.GetDomainEvents()
		require.Len(t, events, 1)
		deleted := events[0].(*AssetDeletedEvent)
		assert.Equal(t, asset.Keys.All(), deleted.Keys)
	})
}

func TestAssetKeys(t *testing.T) {
	keys := AssetKeys{Original: "original/a.png"}

	t.Run("absent slots fall back to original", func(t *testing.T) {
		assert.Equal(t, "original/a.png", keys.For(VariantLarge))
		assert.Equal(t, "original/a.png", keys.For(VariantMedium))
		assert.Equal(t, "original/a.png", keys.For(VariantThumb))
	})

	t.Run("all lists only stored keys", func(t *testing.T) {
		assert.Equal(t, []string{"original/a.png"}, keys.All())
		full := validParams().Keys
		assert.Len(t, full.All(), 4)
		assert.True(t, full.Contains("thumb/1700000000000_kite_thumb.jpg"))
		assert.False(t, full.Contains("thumb/other.jpg"))
	})
}

func TestAssetFilter_Normalize(t *testing.T) {
	f := AssetFilter{Page: 0, PageSize: 500}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = AssetFilter{Page: 3}.Normalize()
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 40, f.Offset())
}

func TestErrorTaxonomy(t *testing.T) {
	cfgErr := &ConfigurationError{Tier: TierRestricted, Setting: "storage.restricted.bucket"}
	assert.True(t, errors.Is(cfgErr, ErrStorageConfiguration))
	assert.Contains(t, cfgErr.Error(), "storage.restricted.bucket")

	cause := errors.New("unexpected EOF")
	imgErr := &InvalidImageError{Filename: "a.jpg", Err: cause}
	assert.True(t, errors.Is(imgErr, ErrInvalidImage))
	assert.True(t, errors.Is(imgErr, cause))

	partial := &PartialUploadError{Failed: VariantThumb, Uploaded: []StoredObject{{Key: "original/a.jpg"}}, Err: cause}
	assert.True(t, errors.Is(partial, ErrPartialUpload))
	assert.True(t, errors.Is(partial, cause))
	assert.False(t, errors.Is(partial, ErrInvalidImage))

	assert.True(t, errors.Is(NewAssetNotFoundError("original/a.jpg"), shared.ErrNotFound))
}
