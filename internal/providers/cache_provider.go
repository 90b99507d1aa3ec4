package providers

import (
	"errors"
	"github.com/coocood/freecache"
	"instametrics/internal/structures"
	"unsafe"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// CacheProvider keeps response envelopes in a freecache segment. Entries
// larger than 1/1024 of the cache size are rejected by freecache and only
// logged.
type CacheProvider struct {
	cache  *freecache.Cache
	ttl    int
	logger Logger
}

func cacheTTLSeconds(conf *structures.Config) int {
	return max(int(conf.Cache.TTL.Seconds()), 1)
}

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled {
		logger.Infof(TypeApp, "Cache disabled")
		return &noopCache{}
	}

	switch conf.Cache.Backend {
	case CacheBackendRedis:
		return NewRedisCacheProvider(conf, logger)
	case CacheBackendMemory, "":
	default:
		logger.Warnf(TypeApp, "Unknown cache backend %q, using memory", conf.Cache.Backend)
	}

	if conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Cache disabled, size is %dMB", conf.Cache.Size)
		return &noopCache{}
	}

	ttl := cacheTTLSeconds(conf)
	logger.Infof(TypeApp, "Memory cache initialized: %dMB, TTL=%ds", conf.Cache.Size, ttl)

	return &CacheProvider{
		cache:  freecache.NewCache(conf.Cache.Size * 1024 * 1024),
		ttl:    ttl,
		logger: logger,
	}
}

// unsafeStringToBytes converts string to []byte without allocation.
// Safe when the result is only read (not modified), which is the case
// for freecache since it copies keys internally.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *CacheProvider) Set(key string, value []byte) {
	err := c.cache.Set(unsafeStringToBytes(key), value, c.ttl)
	if errors.Is(err, freecache.ErrLargeEntry) {
		c.logger.Warnf(TypeApp, "Response for %s not cached, %d bytes exceeds the entry limit", key, len(value))
	}
}

type noopCache struct{}

func (n *noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (n *noopCache) Set(_ string, _ []byte)      {}
