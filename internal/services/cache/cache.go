package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/sirupsen/logrus"
)

// Service defines cache operations
type Service interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Clear()
}

// Recorder receives hit and miss observations
type Recorder interface {
	RecordCacheLookup(name string, hit bool)
}

type entry struct {
	Value     string
	CreatedAt time.Time
}

// Cache implements a namespaced TTL cache
type Cache struct {
	name     string
	enabled  bool
	cache    *cache.Cache
	maxSize  int
	recorder Recorder
	logger   *logrus.Logger
}

// NewCache creates a new cache service. The recorder may be nil.
func NewCache(name string, cfg *config.CacheConfig, recorder Recorder, logger *logrus.Logger) *Cache {
	if !cfg.Enabled {
		return &Cache{name: name, enabled: false}
	}

	return &Cache{
		name:     name,
		enabled:  true,
		cache:    cache.New(cfg.TTL, cfg.TTL*2),
		maxSize:  cfg.MaxSize,
		recorder: recorder,
		logger:   logger,
	}
}

// Get retrieves a cached value
func (c *Cache) Get(key string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	val, found := c.cache.Get(c.generateKey(key))
	if c.recorder != nil {
		c.recorder.RecordCacheLookup(c.name, found)
	}
	if !found {
		return "", false
	}

	e := val.(entry)
	c.logger.WithFields(logrus.Fields{
		"cache": c.name,
		"key":   key,
		"age":   time.Since(e.CreatedAt),
	}).Debug("Cache hit")
	return e.Value, true
}

// Set stores a value with the default TTL
func (c *Cache) Set(key, value string) {
	if !c.enabled {
		return
	}

	// Check cache size
	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.logger.WithField("cache", c.name).Warn("Cache size limit reached, clearing old entries")
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.cache.Flush()
		}
	}

	c.cache.SetDefault(c.generateKey(key), entry{Value: value, CreatedAt: time.Now()})
}

// Delete removes one entry
func (c *Cache) Delete(key string) {
	if !c.enabled {
		return
	}
	c.cache.Delete(c.generateKey(key))
}

// Clear removes all cached entries
func (c *Cache) Clear() {
	if !c.enabled {
		return
	}

	c.cache.Flush()
	c.logger.WithField("cache", c.name).Info("Cache cleared")
}

// generateKey creates a unique cache key
func (c *Cache) generateKey(key string) string {
	data := fmt.Sprintf("%s:%s", c.name, key)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
