package gateway

import (
	"sync"

	"github.com/stratospay/delphi/pkg/domain/types"
)

const defaultTenantCacheCapacity = 256

// tenantCache holds per-tenant provider ordering overrides. It is bounded:
// exceeding the capacity clears all entries, after which orderings fall back
// to the default chain until re-registered.
type tenantCache struct {
	mu       sync.RWMutex
	capacity int
	orders   map[types.OrgID][]string
}

func newTenantCache(capacity int) *tenantCache {
	if capacity <= 0 {
		capacity = defaultTenantCacheCapacity
	}
	return &tenantCache{
		capacity: capacity,
		orders:   make(map[types.OrgID][]string),
	}
}

func (c *tenantCache) get(orgID types.OrgID) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names, ok := c.orders[orgID]
	return names, ok
}

func (c *tenantCache) put(orgID types.OrgID, names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.orders) >= c.capacity {
		c.orders = make(map[types.OrgID][]string)
	}
	c.orders[orgID] = append([]string(nil), names...)
}
