package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GlAccountRepository persists the chart of accounts.
// Finders return (nil, nil) when nothing matches.
type GlAccountRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*GlAccount, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*GlAccount, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*GlAccount, error)
	// FindAll returns every account of the tenant ordered by code
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]GlAccount, error)
	FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]GlAccount, error)
	Save(ctx context.Context, account *GlAccount) error
}

// AcctgTransFilter narrows transaction listings
type AcctgTransFilter struct {
	shared.Filter
	OrganizationPartyID string
	TransType           TransType
	IsPosted            *bool
	FromDate            *time.Time
	ThruDate            *time.Time
}

// AcctgTransRepository persists accounting transactions with their entries
type AcctgTransRepository interface {
	// FindByID loads the header and all entries
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*AcctgTrans, error)
	// FindByIDForUpdate loads the transaction and locks its header row until the
	// surrounding database transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*AcctgTrans, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter AcctgTransFilter) ([]AcctgTrans, int64, error)
	FindReversalOf(ctx context.Context, tenantID, originalID uuid.UUID) (*AcctgTrans, error)
	// Create inserts a new draft transaction and its entries
	Create(ctx context.Context, trans *AcctgTrans) error
	// SaveDraft stores header and entries of a draft. It fails with a conflict when
	// the stored version is not Version-1 or the stored row is already posted.
	SaveDraft(ctx context.Context, trans *AcctgTrans) error
	// MarkPosted stores the posted flag, date and user with the same version rule
	MarkPosted(ctx context.Context, trans *AcctgTrans) error
	// CountUnposted counts draft transactions of the organization dated before thru
	CountUnposted(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, thru time.Time) (int64, error)
}

// TimePeriodRepository persists custom time periods
type TimePeriodRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CustomTimePeriod, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*CustomTimePeriod, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, organizationPartyID string) ([]CustomTimePeriod, error)
	// FindLastClosed returns the closed period of the organization with the latest
	// thru date that is not after before. A zero before means no upper bound.
	FindLastClosed(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, before time.Time) (*CustomTimePeriod, error)
	Save(ctx context.Context, period *CustomTimePeriod) error
	SaveWithLock(ctx context.Context, period *CustomTimePeriod) error
}

// GlAccountHistoryRepository persists closing snapshots
type GlAccountHistoryRepository interface {
	FindByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) ([]GlAccountHistory, error)
	SaveAll(ctx context.Context, histories []GlAccountHistory) error
}

// ActivityQuery selects entries to sum. Nil bounds are open.
type ActivityQuery struct {
	TenantID            uuid.UUID
	OrganizationPartyID string
	AccountIDs          []uuid.UUID
	From                *time.Time
	Thru                *time.Time
	Posted              bool
	FiscalType          FiscalType
}

// AccountActivity is the debit and credit total of one account
type AccountActivity struct {
	GlAccountID uuid.UUID
	Debits      decimal.Decimal
	Credits     decimal.Decimal
}

// Net returns debits minus credits
func (a AccountActivity) Net() decimal.Decimal {
	return a.Debits.Sub(a.Credits)
}

// LedgerQueryRepository runs read-only aggregations over entries
type LedgerQueryRepository interface {
	SumActivity(ctx context.Context, q ActivityQuery) ([]AccountActivity, error)
}
