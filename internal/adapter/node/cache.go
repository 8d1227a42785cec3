package node

import (
	"time"

	lru "github.com/hashicorp/golang-lru"

	"beaconchain_verifier/internal/domain"
)

type BlockCache struct {
	lruCache *lru.Cache
	ttl      time.Duration
}

type cacheEntry struct {
	block domain.BlockInfo
	ts    time.Time
}

func NewBlockCache(maxEntries int, ttl time.Duration) (*BlockCache, error) {
	c, err := lru.New(maxEntries)
	if err != nil {
		return nil, err
	}
	return &BlockCache{
		lruCache: c,
		ttl:      ttl,
	}, nil
}

func (c *BlockCache) Get(slot uint64) (domain.BlockInfo, bool) {
	raw, ok := c.lruCache.Get(slot)
	if !ok {
		return domain.BlockInfo{}, false
	}
	e := raw.(cacheEntry)
	if time.Since(e.ts) > c.ttl {
		c.lruCache.Remove(slot)
		return domain.BlockInfo{}, false
	}
	return e.block, true
}

func (c *BlockCache) Add(slot uint64, block domain.BlockInfo) {
	c.lruCache.Add(slot, cacheEntry{
		block: block,
		ts:    time.Now(),
	})
}
