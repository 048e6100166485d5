// Package storage implements the two-tier object storage gateway: per-tier
// settings, lazily constructed S3 backends, URL building and the resolver
// that maps historical URLs back to canonical object keys.
package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/catalog/backend/internal/domain/media"
	infraconfig "github.com/catalog/backend/internal/infrastructure/config"
)

// DefaultSignedURLTTL is used when neither the caller nor the configuration sets a TTL
const DefaultSignedURLTTL = time.Hour

// TierSettings holds the resolved connection settings of one tier
type TierSettings struct {
	Tier          media.Tier
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UsePathStyle  bool
	PublicBaseURL string
}

// ValidateBucket reports a missing bucket as a ConfigurationError
func (s TierSettings) ValidateBucket() error {
	if s.Bucket == "" {
		return s.missing("bucket")
	}
	return nil
}

// Validate reports the first missing setting needed to talk to the tier
func (s TierSettings) Validate() error {
	if err := s.ValidateBucket(); err != nil {
		return err
	}
	if s.AccessKey == "" {
		return s.missing("access_key")
	}
	if s.SecretKey == "" {
		return s.missing("secret_key")
	}
	if s.Endpoint == "" {
		return s.missing("endpoint")
	}
	return nil
}

func (s TierSettings) missing(setting string) error {
	return &media.ConfigurationError{
		Tier:    s.Tier,
		Setting: fmt.Sprintf("storage.%s.%s", s.Tier, setting),
	}
}

// SettingsResolver is the single place that maps a tier to its bucket,
// credentials and URL settings.
type SettingsResolver struct {
	tiers         map[media.Tier]TierSettings
	signedURLTTL  time.Duration
	legacyBuckets []string
}

// NewSettingsResolver builds a resolver from the storage configuration
func NewSettingsResolver(cfg *infraconfig.StorageConfig) *SettingsResolver {
	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	return &SettingsResolver{
		tiers: map[media.Tier]TierSettings{
			media.TierPublic:     fromConfig(media.TierPublic, cfg.Public),
			media.TierRestricted: fromConfig(media.TierRestricted, cfg.Restricted),
		},
		signedURLTTL:  ttl,
		legacyBuckets: cfg.LegacyBuckets,
	}
}

func fromConfig(tier media.Tier, c infraconfig.TierStorageConfig) TierSettings {
	endpoint := strings.TrimRight(c.Endpoint, "/")
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	return TierSettings{
		Tier:          tier,
		Endpoint:      endpoint,
		Region:        c.Region,
		AccessKey:     c.AccessKey,
		SecretKey:     c.SecretKey,
		Bucket:        c.Bucket,
		UsePathStyle:  c.UsePathStyle,
		PublicBaseURL: strings.TrimRight(c.PublicBaseURL, "/"),
	}
}

// For returns the settings of a tier. Settings are returned even when
// incomplete; callers validate what they need.
func (r *SettingsResolver) For(tier media.Tier) (TierSettings, error) {
	s, ok := r.tiers[tier]
	if !ok {
		return TierSettings{}, fmt.Errorf("unknown storage tier %q", tier)
	}
	return s, nil
}

// SignedURLTTL returns the configured default lifetime of signed URLs
func (r *SettingsResolver) SignedURLTTL() time.Duration {
	return r.signedURLTTL
}

// KnownBuckets returns every bucket name that may appear in stored URLs:
// the configured tier buckets followed by legacy buckets, without duplicates.
func (r *SettingsResolver) KnownBuckets() []string {
	seen := make(map[string]bool)
	var buckets []string
	add := func(b string) {
		b = strings.Trim(b, "/ ")
		if b != "" && !seen[b] {
			seen[b] = true
			buckets = append(buckets, b)
		}
	}
	for _, tier := range media.Tiers() {
		add(r.tiers[tier].Bucket)
	}
	for _, b := range r.legacyBuckets {
		add(b)
	}
	return buckets
}

// PublicBases returns the configured static public base URLs, longest first
func (r *SettingsResolver) PublicBases() []string {
	var bases []string
	for _, tier := range media.Tiers() {
		if base := r.tiers[tier].PublicBaseURL; base != "" {
			bases = append(bases, base)
		}
	}
	sort.SliceStable(bases, func(i, j int) bool { return len(bases[i]) > len(bases[j]) })
	return bases
}
