package cache

import (
	"strings"
	"sync"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultReportCacheTTL is used when the configured TTL is not positive
const DefaultReportCacheTTL = 5 * time.Minute

// ReportCache keeps assembled ledger reports in process memory. Entries expire
// after the TTL and are dropped per tenant when that tenant's ledger changes.
type ReportCache struct {
	items *gocache.Cache

	// mu orders Set against InvalidateTenant
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

// NewReportCache creates a report cache; expired entries are purged every two TTLs
func NewReportCache(ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultReportCacheTTL
	}
	return &ReportCache{
		items:       gocache.New(ttl, 2*ttl),
		generations: make(map[uuid.UUID]uint64),
	}
}

// Get returns a cached report
func (c *ReportCache) Get(key string) (any, bool) {
	return c.items.Get(key)
}

// Generation returns the tenant's current generation
func (c *ReportCache) Generation(tenantID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[tenantID]
}

// Set stores a report with the default TTL. It reports false and stores
// nothing when the tenant was invalidated after generation was read.
func (c *ReportCache) Set(tenantID uuid.UUID, generation uint64, key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[tenantID] != generation {
		return false
	}
	c.items.SetDefault(key, value)
	return true
}

// InvalidateTenant bumps the tenant's generation and removes every report
// whose key starts with the tenant id
func (c *ReportCache) InvalidateTenant(tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[tenantID]++

	prefix := appledger.ReportCacheKey(tenantID)
	for key := range c.items.Items() {
		if key == prefix || strings.HasPrefix(key, prefix+"|") {
			c.items.Delete(key)
		}
	}
}

// Len returns the number of cached reports, including expired ones not yet purged
func (c *ReportCache) Len() int {
	return c.items.ItemCount()
}

// Ensure ReportCache implements appledger.ReportCache
var _ appledger.ReportCache = (*ReportCache)(nil)
