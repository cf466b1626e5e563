package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ClosedPeriodLookup finds the latest closed period of an organization
type ClosedPeriodLookup interface {
	FindLastClosed(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, before time.Time) (*CustomTimePeriod, error)
}

// Poster transitions a draft transaction to posted.
// It is a pure domain service: callers own the unit of work and persist the result.
type Poster struct {
	validator *EntryValidator
	periods   ClosedPeriodLookup
	clock     func() time.Time
}

// PosterOption configures a Poster
type PosterOption func(*Poster)

// WithClock overrides the time source used for the posted date
func WithClock(clock func() time.Time) PosterOption {
	return func(p *Poster) {
		p.clock = clock
	}
}

// NewPoster creates a Poster
func NewPoster(validator *EntryValidator, periods ClosedPeriodLookup, opts ...PosterOption) *Poster {
	p := &Poster{
		validator: validator,
		periods:   periods,
		clock:     nowUTC,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Post checks trans and, when every rule holds, marks it posted by postedBy.
// On any failure trans is left untouched.
func (p *Poster) Post(ctx context.Context, trans *AcctgTrans, id, postedBy uuid.UUID) (*ValidationResult, error) {
	if trans == nil {
		return nil, ErrTransactionNotFound(id)
	}
	if trans.IsPosted {
		return nil, ErrAlreadyPosted(trans.ID)
	}
	if err := p.CheckPeriodOpen(ctx, trans.TenantID, trans.OrganizationPartyID, trans.TransactionDate); err != nil {
		return nil, err
	}

	result, err := p.validator.Validate(ctx, trans, id)
	if err != nil {
		return result, err
	}
	if err := trans.MarkPosted(p.clock(), postedBy); err != nil {
		return result, err
	}
	return result, nil
}

// CheckPeriodOpen rejects dates that fall before the end of the organization's
// latest closed period. Closing snapshots stay valid because nothing can be
// posted behind them.
func (p *Poster) CheckPeriodOpen(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, date time.Time) error {
	last, err := p.periods.FindLastClosed(ctx, tenantID, organizationPartyID, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to load closed periods: %w", err)
	}
	if last != nil && date.Before(last.ThruDate) {
		return shared.NewValidationError(CodePeriodClosed, fmt.Sprintf(
			"transaction date %s falls in or before closed period %s ending %s",
			date.Format("2006-01-02"), last.PeriodName, last.ThruDate.Format("2006-01-02")))
	}
	return nil
}
