package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBackend keeps objects in process memory. It backs local development
// without an object store and stands in for S3 in tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	bucket  string
	baseURL string
	objects map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// NewMemoryBackend creates an empty in-memory bucket. Signed URLs are
// rendered under baseURL, which defaults to http://memory.local.
func NewMemoryBackend(bucket, baseURL string) *MemoryBackend {
	if baseURL == "" {
		baseURL = "http://memory.local"
	}
	return &MemoryBackend{
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

// MemoryFactory returns a BackendFactory producing in-memory backends.
// Credentials are not required.
func MemoryFactory() BackendFactory {
	return func(settings TierSettings) (Backend, error) {
		return NewMemoryBackend(settings.Bucket, settings.Endpoint), nil
	}
}

// Bucket returns the bucket name
func (m *MemoryBackend) Bucket() string {
	return m.bucket
}

// Put stores a copy of data
func (m *MemoryBackend) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{
		data: buf,
		info: ObjectInfo{
			Key:          key,
			ContentType:  opts.ContentType,
			Size:         int64(len(buf)),
			CacheControl: opts.CacheControl,
			LastModified: m.now(),
		},
	}
	return nil
}

// Get returns a reader over the stored bytes
func (m *MemoryBackend) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ObjectInfo{}, objectNotFound(m.bucket, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

// Delete removes the key; missing keys are ignored
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Exists reports whether the key is stored
func (m *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// PresignGet renders a fake signed URL carrying the expiry time
func (m *MemoryBackend) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("presign ttl must be positive")
	}
	q := url.Values{}
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", int(ttl.Seconds())))
	q.Set("X-Amz-Date", m.now().UTC().Format("20060102T150405Z"))
	return fmt.Sprintf("%s/%s/%s?%s", m.baseURL, m.bucket, escapeKey(key), q.Encode()), nil
}

// List visits objects under prefix in key order
func (m *MemoryBackend) List(ctx context.Context, prefix string, fn func(ObjectInfo) error) error {
	m.mu.RLock()
	infos := make([]ObjectInfo, 0, len(m.objects))
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, obj.info)
		}
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns every stored key in order
func (m *MemoryBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
