package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ReportCacheInvalidator drops the cached reports of a tenant when a ledger
// event arrives on the bus. The ledger services already clear the cache before
// they return; the handler covers events published by anything else.
type ReportCacheInvalidator struct {
	cache ReportCache
}

// NewReportCacheInvalidator creates a new ReportCacheInvalidator
func NewReportCacheInvalidator(cache ReportCache) *ReportCacheInvalidator {
	return &ReportCacheInvalidator{cache: cache}
}

// EventTypes returns the event types this handler is interested in
func (h *ReportCacheInvalidator) EventTypes() []string {
	return []string{
		ledger.EventTypeAcctgTransPosted,
		ledger.EventTypeAcctgTransReversed,
		ledger.EventTypeTimePeriodClosed,
	}
}

// Handle invalidates the tenant of the event
func (h *ReportCacheInvalidator) Handle(_ context.Context, event shared.DomainEvent) error {
	h.cache.InvalidateTenant(event.TenantID())
	return nil
}

// invalidateReports drops the tenant's cached reports and bumps its generation
func invalidateReports(cache ReportCache, tenantID uuid.UUID) {
	if cache != nil {
		cache.InvalidateTenant(tenantID)
	}
}

// Ensure ReportCacheInvalidator implements EventHandler
var _ shared.EventHandler = (*ReportCacheInvalidator)(nil)
