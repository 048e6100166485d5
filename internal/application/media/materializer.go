package media

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/infrastructure/storage"
)

// URLMaterializer turns stored keys into URLs a browser can load. The
// persisted key never changes with the viewing strategy.
type URLMaterializer struct {
	store        ObjectStore
	resolver     KeyResolver
	devProxy     bool
	proxyPrefix  string
	signedURLTTL time.Duration
}

// MaterializerConfig configures a URLMaterializer
type MaterializerConfig struct {
	// DevProxy rewrites every URL to the same-origin image proxy
	DevProxy     bool
	ProxyPrefix  string
	SignedURLTTL time.Duration
}

// NewURLMaterializer creates a URLMaterializer
func NewURLMaterializer(store ObjectStore, resolver KeyResolver, cfg MaterializerConfig) *URLMaterializer {
	prefix := cfg.ProxyPrefix
	if prefix == "" {
		prefix = "/api/images/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &URLMaterializer{
		store:        store,
		resolver:     resolver,
		devProxy:     cfg.DevProxy,
		proxyPrefix:  prefix,
		signedURLTTL: cfg.SignedURLTTL,
	}
}

// ToViewableURL renders the viewable URL of a key. Legacy URLs are resolved
// first; input that is not ours is returned unchanged.
func (m *URLMaterializer) ToViewableURL(ctx context.Context, input string, tier media.Tier) (string, error) {
	key, ok := m.resolver.Resolve(input)
	if !ok {
		return input, nil
	}
	return m.KeyURL(ctx, key, tier)
}

// KeyURL renders the viewable URL of a canonical key
func (m *URLMaterializer) KeyURL(ctx context.Context, key string, tier media.Tier) (string, error) {
	if m.devProxy {
		return m.ProxyPath(key, tier), nil
	}
	return m.store.BuildURL(ctx, tier, key, storage.URLOptions{
		Signed: tier == media.TierRestricted,
		TTL:    m.signedURLTTL,
	})
}

// ProxyPath returns the same-origin proxy path of key. The tier is carried
// in the query string when it is not the public one.
func (m *URLMaterializer) ProxyPath(key string, tier media.Tier) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	p := m.proxyPrefix + strings.Join(segments, "/")
	if tier != media.TierPublic {
		p += "?tier=" + url.QueryEscape(tier.String())
	}
	return p
}
