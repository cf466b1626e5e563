package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeAcctgTransPosted   = "AcctgTransPosted"
	EventTypeAcctgTransReversed = "AcctgTransReversed"
	EventTypeTimePeriodClosed   = "TimePeriodClosed"
)

// AggregateTypeTimePeriod is the aggregate type name for custom time periods
const AggregateTypeTimePeriod = "CustomTimePeriod"

// AcctgTransPostedEvent is raised once a transaction has been posted
type AcctgTransPostedEvent struct {
	shared.BaseDomainEvent
	TransactionID       uuid.UUID       `json:"transaction_id"`
	OrganizationPartyID string          `json:"organization_party_id"`
	TransactionDate     time.Time       `json:"transaction_date"`
	PostedDate          time.Time       `json:"posted_date"`
	EntryCount          int             `json:"entry_count"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
}

// NewAcctgTransPostedEvent creates the posted event for t
func NewAcctgTransPostedEvent(t *AcctgTrans, total decimal.Decimal) *AcctgTransPostedEvent {
	var posted time.Time
	if t.PostedDate != nil {
		posted = *t.PostedDate
	}
	return &AcctgTransPostedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeAcctgTransPosted, AggregateTypeAcctgTrans, t.ID, t.TenantID),
		TransactionID:       t.ID,
		OrganizationPartyID: t.OrganizationPartyID,
		TransactionDate:     t.TransactionDate,
		PostedDate:          posted,
		EntryCount:          len(t.Entries),
		TotalAmount:         total,
	}
}

// AcctgTransReversedEvent is raised when a posted transaction gets a posted reversal
type AcctgTransReversedEvent struct {
	shared.BaseDomainEvent
	OriginalID          uuid.UUID `json:"original_id"`
	ReversalID          uuid.UUID `json:"reversal_id"`
	OrganizationPartyID string    `json:"organization_party_id"`
}

// NewAcctgTransReversedEvent creates the reversed event
func NewAcctgTransReversedEvent(original, reversal *AcctgTrans) *AcctgTransReversedEvent {
	return &AcctgTransReversedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeAcctgTransReversed, AggregateTypeAcctgTrans, original.ID, original.TenantID),
		OriginalID:          original.ID,
		ReversalID:          reversal.ID,
		OrganizationPartyID: original.OrganizationPartyID,
	}
}

// TimePeriodClosedEvent is raised when a period is closed and its snapshots are written
type TimePeriodClosedEvent struct {
	shared.BaseDomainEvent
	PeriodID            uuid.UUID `json:"period_id"`
	OrganizationPartyID string    `json:"organization_party_id"`
	FromDate            time.Time `json:"from_date"`
	ThruDate            time.Time `json:"thru_date"`
	AccountCount        int       `json:"account_count"`
}
