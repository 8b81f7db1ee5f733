package rbac

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// decisionCache memoizes non-pure checks keyed by (principal ID,
// requirement shape). Entries expire after the engine's TTL and the whole
// cache is purged on principal change, so an entry never outlives the
// principal that produced it. Only the engine writes here.
type decisionCache struct {
	lru    *lru.LRU[string, AccessDecision]
	hits   atomic.Int64
	misses atomic.Int64
}

// DecisionCacheStats is a point-in-time snapshot of cache counters, shaped
// like the generic response-cache stats so the cache monitor can render
// both side by side.
type DecisionCacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Entries int     `json:"entries"`
	HitRate float64 `json:"hit_rate"`
}

func newDecisionCache(size int, ttl time.Duration) *decisionCache {
	if size <= 0 {
		size = 256
	}
	return &decisionCache{
		lru: lru.NewLRU[string, AccessDecision](size, nil, ttl),
	}
}

func decisionKey(principalID string, req AccessRequirement) string {
	return principalID + "|" + req.CacheKey()
}

func (c *decisionCache) get(principalID string, req AccessRequirement) (AccessDecision, bool) {
	d, ok := c.lru.Get(decisionKey(principalID, req))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return d, ok
}

func (c *decisionCache) put(principalID string, req AccessRequirement, d AccessDecision) {
	c.lru.Add(decisionKey(principalID, req), d)
}

func (c *decisionCache) purge() {
	c.lru.Purge()
}

func (c *decisionCache) stats() DecisionCacheStats {
	s := DecisionCacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.lru.Len(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
