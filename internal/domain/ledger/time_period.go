package ledger

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodType is the granularity of a custom time period
type PeriodType string

const (
	PeriodTypeFiscalYear    PeriodType = "FISCAL_YEAR"
	PeriodTypeFiscalQuarter PeriodType = "FISCAL_QUARTER"
	PeriodTypeFiscalMonth   PeriodType = "FISCAL_MONTH"
)

// IsValid checks if the period type is a known value
func (t PeriodType) IsValid() bool {
	return t == PeriodTypeFiscalYear || t == PeriodTypeFiscalQuarter || t == PeriodTypeFiscalMonth
}

// CustomTimePeriod is a fiscal period of an organization with its closure state
type CustomTimePeriod struct {
	shared.TenantAggregateRoot
	OrganizationPartyID string
	PeriodType          PeriodType
	PeriodName          string
	FromDate            time.Time
	ThruDate            time.Time
	IsClosed            bool
	ClosedAt            *time.Time
}

// NewCustomTimePeriod creates an open period covering [from, thru)
func NewCustomTimePeriod(tenantID uuid.UUID, organizationPartyID string, periodType PeriodType, name string, from, thru time.Time) (*CustomTimePeriod, error) {
	organizationPartyID = strings.TrimSpace(organizationPartyID)
	if organizationPartyID == "" {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization party ID cannot be empty")
	}
	if !periodType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PERIOD_TYPE", "Period type is not valid")
	}
	p, err := NewPeriod(from, thru)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = p.String()
	}

	return &CustomTimePeriod{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrganizationPartyID: organizationPartyID,
		PeriodType:          periodType,
		PeriodName:          name,
		FromDate:            p.From,
		ThruDate:            p.Thru,
	}, nil
}

// Period returns the reporting range of the time period
func (p *CustomTimePeriod) Period() Period {
	return Period{From: p.FromDate, Thru: p.ThruDate}
}

// Contains reports whether t falls inside the time period
func (p *CustomTimePeriod) Contains(t time.Time) bool {
	return p.Period().Contains(t)
}

// Close marks the period closed and raises TimePeriodClosed
func (p *CustomTimePeriod) Close(at time.Time, accountCount int) error {
	if p.IsClosed {
		return shared.NewConflictError(CodePeriodAlreadyClosed, "Time period "+p.PeriodName+" is already closed")
	}
	at = at.UTC()
	p.IsClosed = true
	p.ClosedAt = &at
	p.Touch(at)

	p.AddDomainEvent(&TimePeriodClosedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeTimePeriodClosed, AggregateTypeTimePeriod, p.ID, p.TenantID),
		PeriodID:            p.ID,
		OrganizationPartyID: p.OrganizationPartyID,
		FromDate:            p.FromDate,
		ThruDate:            p.ThruDate,
		AccountCount:        accountCount,
	})
	return nil
}

// GlAccountHistory is the per-account snapshot written when a period closes.
// EndingBalance is cumulative and debit-positive.
type GlAccountHistory struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	CustomTimePeriodID  uuid.UUID
	GlAccountID         uuid.UUID
	OrganizationPartyID string
	ThruDate            time.Time
	PostedDebits        decimal.Decimal
	PostedCredits       decimal.Decimal
	EndingBalance       decimal.Decimal
	CreatedAt           time.Time
}
