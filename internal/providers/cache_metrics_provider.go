package providers

import (
	"instametrics/internal/structures"
	"strings"
)

const otherResource = "other"

// MetricsCacheProvider counts response cache hits and misses per resource.
// The resource is the key prefix before the first colon, e.g. "insights"
// for "insights:3:account:day:25:".
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func cacheResource(key string) string {
	resource, _, found := strings.Cut(key, ":")
	if !found || resource == "" {
		return otherResource
	}
	return resource
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits(cacheResource(key))
	} else {
		c.metrics.IncCacheMisses(cacheResource(key))
	}
	return val, ok
}

func (c *MetricsCacheProvider) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

// NewInstrumentedCacheProvider skips the wrapper when caching is disabled so
// the noop cache does not report a miss on every request.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if !conf.Cache.Enabled {
		return inner
	}
	return &MetricsCacheProvider{
		inner:   inner,
		metrics: metrics,
	}
}
