package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalog/backend/internal/domain/media"
	infraconfig "github.com/catalog/backend/internal/infrastructure/config"
)

func testStorageConfig() *infraconfig.StorageConfig {
	return &infraconfig.StorageConfig{
		Backend: "memory",
		Public: infraconfig.TierStorageConfig{
			Endpoint:      "https://s3.example.com",
			Region:        "us-east-1",
			AccessKey:     "public-access",
			SecretKey:     "public-secret",
			Bucket:        "product-images",
			UsePathStyle:  true,
			PublicBaseURL: "https://cdn.example.com/",
		},
		Restricted: infraconfig.TierStorageConfig{
			Endpoint:     "https://s3.example.com",
			Region:       "us-east-1",
			AccessKey:    "restricted-access",
			SecretKey:    "restricted-secret",
			Bucket:       "private-media",
			UsePathStyle: true,
		},
		SignedURLTTL:  15 * time.Minute,
		LegacyBuckets: []string{"old-images", "product-images"},
	}
}

func TestSettingsResolver_For(t *testing.T) {
	r := NewSettingsResolver(testStorageConfig())

	pub, err := r.For(media.TierPublic)
	require.NoError(t, err)
	assert.Equal(t, "product-images", pub.Bucket)
	assert.Equal(t, "https://cdn.example.com", pub.PublicBaseURL)
	assert.Equal(t, media.TierPublic, pub.Tier)

	restricted, err := r.For(media.TierRestricted)
	require.NoError(t, err)
	assert.Equal(t, "private-media", restricted.Bucket)
	assert.Empty(t, restricted.PublicBaseURL)

	_, err = r.For(media.Tier("archive"))
	assert.Error(t, err)
}

func TestSettingsResolver_EndpointWithoutScheme(t *testing.T) {
	cfg := testStorageConfig()
	cfg.Public.Endpoint = "storage.railway.app/"
	r := NewSettingsResolver(cfg)

	s, err := r.For(media.TierPublic)
	require.NoError(t, err)
	assert.Equal(t, "https://storage.railway.app", s.Endpoint)
}

func TestSettingsResolver_KnownBucketsAndBases(t *testing.T) {
	cfg := testStorageConfig()
	cfg.Restricted.PublicBaseURL = "https://cdn.example.com/private"
	r := NewSettingsResolver(cfg)

	assert.Equal(t, []string{"product-images", "private-media", "old-images"}, r.KnownBuckets())
	assert.Equal(t, []string{"https://cdn.example.com/private", "https://cdn.example.com"}, r.PublicBases())
	assert.Equal(t, 15*time.Minute, r.SignedURLTTL())
}

func TestSettingsResolver_DefaultTTL(t *testing.T) {
	cfg := testStorageConfig()
	cfg.SignedURLTTL = 0
	assert.Equal(t, DefaultSignedURLTTL, NewSettingsResolver(cfg).SignedURLTTL())
}

func TestTierSettings_Validate(t *testing.T) {
	complete := TierSettings{
		Tier:      media.TierRestricted,
		Endpoint:  "https://s3.example.com",
		AccessKey: "a",
		SecretKey: "s",
		Bucket:    "private-media",
	}
	require.NoError(t, complete.Validate())

	tests := []struct {
		name    string
		mutate  func(*TierSettings)
		setting string
	}{
		{"missing bucket", func(s *TierSettings) { s.Bucket = "" }, "storage.restricted.bucket"},
		{"missing access key", func(s *TierSettings) { s.AccessKey = "" }, "storage.restricted.access_key"},
		{"missing secret key", func(s *TierSettings) { s.SecretKey = "" }, "storage.restricted.secret_key"},
		{"missing endpoint", func(s *TierSettings) { s.Endpoint = "" }, "storage.restricted.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := complete
			tt.mutate(&s)

			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, media.ErrStorageConfiguration))

			var cfgErr *media.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.setting, cfgErr.Setting)
			assert.NotContains(t, err.Error(), "restricted-secret")
		})
	}
}
