package services

import (
	"time"

	"github.com/patrickmn/go-cache"

	"sellerops/internal/models"
)

// ConfigCache keeps each user's decrypted block configurations in memory
// between dispatches. Entries are dropped on every upsert for that user.
type ConfigCache struct {
	cache *cache.Cache
}

// NewConfigCache creates a cache whose entries expire after ttl
func NewConfigCache(ttl time.Duration) *ConfigCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ConfigCache{cache: cache.New(ttl, 2*ttl)}
}

// Get returns the cached configurations for a user
func (c *ConfigCache) Get(userID string) ([]models.BlockConfiguration, bool) {
	v, found := c.cache.Get(userID)
	if !found {
		return nil, false
	}
	return v.([]models.BlockConfiguration), true
}

// Set stores the configurations for a user
func (c *ConfigCache) Set(userID string, configs []models.BlockConfiguration) {
	c.cache.SetDefault(userID, configs)
}

// Invalidate drops a user's entry
func (c *ConfigCache) Invalidate(userID string) {
	c.cache.Delete(userID)
}
