// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tempo

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// CodeCache is a shared cache for values resolved through code paths. Cache
// entries are keyed by the writer version that supplied the value, so
// concurrent speculative executions can never observe an entry produced by a
// different incarnation of the same transaction. The cache is an explicit
// capability handed to transaction contexts instead of a free-standing
// global.
type CodeCache struct {
	cache *lru.Cache[codeCacheKey, Value]
}

type codeCacheKey struct {
	key     Key
	version Version
}

const defaultCodeCacheCapacity = 1024

// NewCodeCache creates a code cache holding up to the given number of
// entries. If capacity is 0, a default capacity is used. If negative, no
// cache is maintained and all lookups miss.
func NewCodeCache(capacity int) (*CodeCache, error) {
	if capacity == 0 {
		capacity = defaultCodeCacheCapacity
	}
	var cache *lru.Cache[codeCacheKey, Value]
	if capacity > 0 {
		var err error
		cache, err = lru.New[codeCacheKey, Value](capacity)
		if err != nil {
			return nil, err
		}
	}
	return &CodeCache{cache: cache}, nil
}

// Get looks up the value of the given key as supplied by the given writer
// version.
func (c *CodeCache) Get(key Key, version Version) (Value, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}
	return c.cache.Get(codeCacheKey{key: key, version: version})
}

// Put caches the value of the given key as supplied by the given writer
// version.
func (c *CodeCache) Put(key Key, version Version, value Value) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Add(codeCacheKey{key: key, version: version}, value)
}

// Purge drops all cached entries. It is used when speculative state may have
// become entangled with the cache content.
func (c *CodeCache) Purge() {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Purge()
}

// Len returns the number of currently cached entries.
func (c *CodeCache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
