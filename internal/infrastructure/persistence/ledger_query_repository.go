package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerQueryRepository implements LedgerQueryRepository with SQL aggregates
type GormLedgerQueryRepository struct {
	db *gorm.DB
}

// NewGormLedgerQueryRepository creates a new GormLedgerQueryRepository
func NewGormLedgerQueryRepository(db *gorm.DB) *GormLedgerQueryRepository {
	return &GormLedgerQueryRepository{db: db}
}

// amountScale is the scale of the DECIMAL(19,4) amount columns
const amountScale = 4

// accountActivityRow is the scan target of SumActivity
type accountActivityRow struct {
	GlAccountID uuid.UUID       `gorm:"column:gl_account_id"`
	Debits      decimal.Decimal `gorm:"column:debits"`
	Credits     decimal.Decimal `gorm:"column:credits"`
}

// entryAmountRow is one entry amount, read as text on SQLite
type entryAmountRow struct {
	GlAccountID     uuid.UUID           `gorm:"column:gl_account_id"`
	DebitCreditFlag string              `gorm:"column:debit_credit_flag"`
	Amount          decimal.NullDecimal `gorm:"column:amount"`
}

// SumActivity totals debits and credits per account over the selected entries.
// Entries without an amount count as zero.
//
// SQLite stores DECIMAL columns as REAL and SUM would add binary floats, so
// there the amounts are read per entry and added up with decimal.
func (r *GormLedgerQueryRepository) SumActivity(ctx context.Context, q ledger.ActivityQuery) ([]ledger.AccountActivity, error) {
	if r.db.Dialector.Name() == "sqlite" {
		return r.sumActivityByEntry(ctx, q)
	}

	var rows []accountActivityRow
	err := r.activityQuery(ctx, q).
		Select(`e.gl_account_id AS gl_account_id,
			COALESCE(SUM(CASE WHEN e.debit_credit_flag = 'D' THEN e.amount ELSE 0 END), 0) AS debits,
			COALESCE(SUM(CASE WHEN e.debit_credit_flag = 'C' THEN e.amount ELSE 0 END), 0) AS credits`).
		Group("e.gl_account_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	activity := make([]ledger.AccountActivity, len(rows))
	for i, row := range rows {
		activity[i] = ledger.AccountActivity{
			GlAccountID: row.GlAccountID,
			Debits:      row.Debits,
			Credits:     row.Credits,
		}
	}
	return activity, nil
}

func (r *GormLedgerQueryRepository) sumActivityByEntry(ctx context.Context, q ledger.ActivityQuery) ([]ledger.AccountActivity, error) {
	var rows []entryAmountRow
	err := r.activityQuery(ctx, q).
		Select(`e.gl_account_id AS gl_account_id, e.debit_credit_flag AS debit_credit_flag,
			CAST(e.amount AS TEXT) AS amount`).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	index := make(map[uuid.UUID]int)
	activity := make([]ledger.AccountActivity, 0)
	for _, row := range rows {
		i, ok := index[row.GlAccountID]
		if !ok {
			i = len(activity)
			index[row.GlAccountID] = i
			activity = append(activity, ledger.AccountActivity{
				GlAccountID: row.GlAccountID,
				Debits:      decimal.Zero,
				Credits:     decimal.Zero,
			})
		}
		if !row.Amount.Valid {
			continue
		}
		amount := row.Amount.Decimal.Round(amountScale)
		switch ledger.DebitCreditFlag(row.DebitCreditFlag) {
		case ledger.Debit:
			activity[i].Debits = activity[i].Debits.Add(amount)
		case ledger.Credit:
			activity[i].Credits = activity[i].Credits.Add(amount)
		}
	}
	return activity, nil
}

// activityQuery selects the entries of posted or unposted transactions matching q
func (r *GormLedgerQueryRepository) activityQuery(ctx context.Context, q ledger.ActivityQuery) *gorm.DB {
	query := r.db.WithContext(ctx).
		Table("acctg_trans_entries AS e").
		Joins("JOIN acctg_trans AS t ON t.id = e.acctg_trans_id").
		Where("t.tenant_id = ? AND t.is_posted = ?", q.TenantID, q.Posted)

	if q.FiscalType != "" {
		query = query.Where("t.fiscal_type = ?", string(q.FiscalType))
	}
	if q.OrganizationPartyID != "" {
		query = query.Where("t.organization_party_id = ?", q.OrganizationPartyID)
	}
	if len(q.AccountIDs) > 0 {
		query = query.Where("e.gl_account_id IN ?", q.AccountIDs)
	}
	if q.From != nil {
		query = query.Where("t.transaction_date >= ?", *q.From)
	}
	if q.Thru != nil {
		query = query.Where("t.transaction_date < ?", *q.Thru)
	}
	return query
}

// Ensure GormLedgerQueryRepository implements LedgerQueryRepository
var _ ledger.LedgerQueryRepository = (*GormLedgerQueryRepository)(nil)
