package data

import (
	"path/filepath"
	"sync"

	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// MemoryCache implements DataCache using in-memory storage
type MemoryCache struct {
	cache map[string]types.PriceSeries
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string]types.PriceSeries),
	}
}

// Get retrieves a copy of the cached series
func (c *MemoryCache) Get(key string) (types.PriceSeries, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	series, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	return series.Clone(), true
}

// Set stores a copy of series
func (c *MemoryCache) Set(key string, series types.PriceSeries) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = series.Clone()
}

// Clear removes all cached data
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string]types.PriceSeries)
}

// Size returns the number of cached entries
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CachedProvider wraps another DataProvider with caching functionality
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
	log      *logger.Logger
}

// NewCachedProvider creates a new cached data provider
func NewCachedProvider(provider DataProvider, log *logger.Logger) *CachedProvider {
	return NewCachedProviderWithCache(provider, NewMemoryCache(), log)
}

// NewCachedProviderWithCache creates a new cached data provider with custom cache
func NewCachedProviderWithCache(provider DataProvider, cache DataCache, log *logger.Logger) *CachedProvider {
	if log == nil {
		log = logger.Discard()
	}
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		log:      log,
	}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData loads data with caching
func (p *CachedProvider) LoadData(source string) (types.PriceSeries, error) {
	if cached, exists := p.cache.Get(source); exists {
		return cached, nil
	}

	p.log.Info("🔄 Loading historical data from %s", filepath.Base(source))
	series, err := p.provider.LoadData(source)
	if err != nil {
		p.log.Error("❌ Failed to load data from %s: %v", filepath.Base(source), err)
		return nil, err
	}

	p.cache.Set(source, series)

	p.log.Info("✅ Loaded and cached data from %s (%d records)", filepath.Base(source), len(series))
	return series, nil
}

// ValidateData validates data using the underlying provider
func (p *CachedProvider) ValidateData(series types.PriceSeries) error {
	return p.provider.ValidateData(series)
}

// ClearCache clears all cached data
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// GetCacheSize returns the number of cached entries
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}
