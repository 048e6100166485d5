package storage

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/catalog/backend/internal/domain/media"
)

// ResolverConfig lists what the resolver recognizes as ours
type ResolverConfig struct {
	// PublicBases are static public base URLs, without trailing slash
	PublicBases []string
	// Buckets are every bucket name that may appear in stored URLs, current and legacy
	Buckets []string
	// ProxyPrefix is the same-origin image proxy path, with trailing slash
	ProxyPrefix string
}

// KeyResolver maps the key and URL shapes written over the catalog's
// history back to canonical bucket-relative keys.
type KeyResolver struct {
	bases       []string
	buckets     []string
	bucketSet   map[string]bool
	proxyPrefix string
}

type outcome int

const (
	pass outcome = iota
	accept
	reject
)

type urlMatcher func(raw string, u *url.URL) (string, outcome)

// schemePrefix matches a URI scheme such as mailto: or javascript:
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// NewKeyResolver creates a resolver. Bases are tried longest first.
func NewKeyResolver(cfg ResolverConfig) *KeyResolver {
	r := &KeyResolver{
		bucketSet:   make(map[string]bool),
		proxyPrefix: cfg.ProxyPrefix,
	}
	for _, b := range cfg.PublicBases {
		if b = strings.TrimRight(strings.TrimSpace(b), "/"); b != "" {
			r.bases = append(r.bases, b)
		}
	}
	sort.SliceStable(r.bases, func(i, j int) bool { return len(r.bases[i]) > len(r.bases[j]) })
	for _, b := range cfg.Buckets {
		if b = strings.Trim(b, "/ "); b != "" && !r.bucketSet[b] {
			r.bucketSet[b] = true
			r.buckets = append(r.buckets, b)
		}
	}
	if r.proxyPrefix != "" && !strings.HasSuffix(r.proxyPrefix, "/") {
		r.proxyPrefix += "/"
	}
	return r
}

// NewKeyResolverFromSettings builds a resolver from the tier settings
func NewKeyResolverFromSettings(settings *SettingsResolver, proxyPrefix string) *KeyResolver {
	return NewKeyResolver(ResolverConfig{
		PublicBases: settings.PublicBases(),
		Buckets:     settings.KnownBuckets(),
		ProxyPrefix: proxyPrefix,
	})
}

// Resolve returns the canonical key of in. ok is false when in is not a
// reference to one of our objects; that is an expected outcome and callers
// should pass such inputs through unchanged.
func (r *KeyResolver) Resolve(in string) (key string, ok bool) {
	in = strings.TrimSpace(in)
	if in == "" {
		return "", false
	}

	if !isAbsolute(in) {
		// data:, mailto: and other scheme-only references are never keys
		if schemePrefix.MatchString(in) {
			return "", false
		}
		if key, out := r.matchProxyPath(in); out != pass {
			return r.finish(key, out)
		}
		return r.finish(r.matchBareKey(in))
	}

	u, err := url.Parse(in)
	if err != nil || u.Host == "" {
		return "", false
	}
	matchers := []urlMatcher{
		r.matchPublicBase,
		r.matchProxyURL,
		r.matchPathStyle,
		r.matchVirtualHost,
		r.matchBucketSubstring,
	}
	for _, m := range matchers {
		if key, out := m(in, u); out != pass {
			return r.finish(key, out)
		}
	}
	return "", false
}

// ResolveOrPassthrough returns the canonical key of in, or in itself when
// it cannot be resolved.
func (r *KeyResolver) ResolveOrPassthrough(in string) string {
	if key, ok := r.Resolve(in); ok {
		return key
	}
	return in
}

// finish normalizes an accepted key so that resolving it again yields itself
func (r *KeyResolver) finish(key string, out outcome) (string, bool) {
	if out != accept {
		return "", false
	}
	key, out = r.cleanKey(key)
	if out != accept || strings.ContainsAny(key, "?#") || strings.TrimSpace(key) != key {
		return "", false
	}
	if media.ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}

func isAbsolute(in string) bool {
	return strings.Contains(in, "://") || strings.HasPrefix(in, "//")
}

// matchProxyPath accepts same-origin proxy paths such as /api/images/p1/a.jpg
func (r *KeyResolver) matchProxyPath(in string) (string, outcome) {
	if r.proxyPrefix == "" || !strings.HasPrefix(in, r.proxyPrefix) {
		return "", pass
	}
	rest := stripQuery(strings.TrimPrefix(in, r.proxyPrefix))
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	return r.cleanKey(rest)
}

// matchBareKey accepts relative keys, dropping leading bucket segments
// that older records carried.
func (r *KeyResolver) matchBareKey(in string) (string, outcome) {
	return r.cleanKey(stripQuery(in))
}

// matchPublicBase strips a configured public base URL and then a single
// leading bucket segment.
func (r *KeyResolver) matchPublicBase(raw string, _ *url.URL) (string, outcome) {
	for _, base := range r.bases {
		if raw != base && !strings.HasPrefix(raw, base+"/") {
			continue
		}
		rest := strings.TrimPrefix(stripQuery(strings.TrimPrefix(raw, base)), "/")
		if unescaped, err := url.PathUnescape(rest); err == nil {
			rest = unescaped
		}
		if first, remainder, found := strings.Cut(rest, "/"); found && r.bucketSet[first] {
			rest = remainder
		}
		if rest == "" {
			return "", reject
		}
		return rest, accept
	}
	return "", pass
}

// matchProxyURL accepts absolute URLs pointing at the image proxy
func (r *KeyResolver) matchProxyURL(_ string, u *url.URL) (string, outcome) {
	return r.matchProxyPath(u.Path)
}

// matchPathStyle accepts https://host/<bucket>/<key>
func (r *KeyResolver) matchPathStyle(_ string, u *url.URL) (string, outcome) {
	first, rest, found := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !found || !r.bucketSet[first] || rest == "" {
		return "", pass
	}
	return rest, accept
}

// matchVirtualHost accepts https://<bucket>.host/<key>
func (r *KeyResolver) matchVirtualHost(_ string, u *url.URL) (string, outcome) {
	host := u.Hostname()
	for _, b := range r.buckets {
		if strings.HasPrefix(host, b+".") {
			key := strings.TrimPrefix(u.Path, "/")
			if key == "" {
				return "", reject
			}
			return key, accept
		}
	}
	return "", pass
}

// matchBucketSubstring is the last resort: anything after /<bucket>/ in the path
func (r *KeyResolver) matchBucketSubstring(_ string, u *url.URL) (string, outcome) {
	for _, b := range r.buckets {
		marker := "/" + b + "/"
		if idx := strings.Index(u.Path, marker); idx >= 0 {
			key := u.Path[idx+len(marker):]
			if key == "" {
				return "", reject
			}
			return key, accept
		}
	}
	return "", pass
}

// cleanKey trims leading slashes and strips leading known-bucket segments
// until the first segment is not a bucket name.
func (r *KeyResolver) cleanKey(key string) (string, outcome) {
	key = strings.TrimLeft(key, "/")
	for {
		first, rest, found := strings.Cut(key, "/")
		if !found || !r.bucketSet[first] {
			break
		}
		key = strings.TrimLeft(rest, "/")
	}
	if key == "" {
		return "", reject
	}
	return key, accept
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
