package oracle

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const cacheTTL = 30 * time.Second

type cacheEntry struct {
	price     decimal.Decimal
	expiresAt time.Time
}

type priceCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newPriceCache() *priceCache {
	return &priceCache{
		entries: make(map[string]cacheEntry),
	}
}

func (c *priceCache) get(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || time.Now().After(entry.expiresAt) {
		return decimal.Zero, false
	}
	return entry.price, true
}

func (c *priceCache) set(symbol string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = cacheEntry{
		price:     price,
		expiresAt: time.Now().Add(cacheTTL),
	}
}
