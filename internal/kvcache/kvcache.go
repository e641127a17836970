// Package kvcache provides an in-memory, expiring KV mirror for member
// registrations and a tee that writes through to several mirrors.
package kvcache

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
)

const (
	// DefaultExpiration keeps entries until they are deleted.
	DefaultExpiration = gocache.NoExpiration
	// DefaultCleanupInterval is how often expired entries are purged.
	DefaultCleanupInterval = 10 * time.Minute
)

// Cache is a member.KV held in memory. Entries may expire; an expired
// entry reads as absent.
type Cache struct {
	namespace string
	cache     *gocache.Cache
	logger    *slog.Logger
}

var _ member.KV = (*Cache)(nil)

// New creates an empty cache. A ttl of 0 keeps entries forever.
func New(namespace string, ttl, cleanupInterval time.Duration, logger *slog.Logger) *Cache {
	if ttl == 0 {
		ttl = DefaultExpiration
	}
	if cleanupInterval == 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		namespace: namespace,
		cache:     gocache.New(ttl, cleanupInterval),
		logger:    logger,
	}
}

func (c *Cache) Namespace() string { return c.namespace }

// Put stores a copy of value with the default expiration.
func (c *Cache) Put(_ context.Context, key keyspec.Key, value []byte) error {
	c.cache.SetDefault(string(key), append([]byte(nil), value...))
	return nil
}

func (c *Cache) Delete(_ context.Context, key keyspec.Key) error {
	c.cache.Delete(string(key))
	return nil
}

// Get returns the value stored under key.
func (c *Cache) Get(_ context.Context, key keyspec.Key) ([]byte, bool) {
	v, found := c.cache.Get(string(key))
	if !found {
		return nil, false
	}
	b, ok := v.([]byte)
	if !ok {
		c.logger.Error("kvcache: wrong type assertion when getting value", "namespace", c.namespace)
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// Len returns the number of entries, including expired entries not yet
// purged.
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}

// Keys returns the unexpired keys in sorted order.
func (c *Cache) Keys() []keyspec.Key {
	items := c.cache.Items()
	out := make([]keyspec.Key, 0, len(items))
	for k := range items {
		out = append(out, keyspec.Key(k))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Flush drops every entry.
func (c *Cache) Flush() {
	c.cache.Flush()
}

// Tee writes every Put and Delete to each mirror in order. All mirrors are
// attempted; the failures are joined.
type Tee []member.KV

var _ member.KV = Tee(nil)

func (t Tee) Put(ctx context.Context, key keyspec.Key, value []byte) error {
	var errs []error
	for _, kv := range t {
		if err := kv.Put(ctx, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Delete(ctx context.Context, key keyspec.Key) error {
	var errs []error
	for _, kv := range t {
		if err := kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
