package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testTenant = uuid.MustParse("11111111-1111-1111-1111-111111111111")

const testOrg = "ORG-1"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memAccounts is an in-memory chart of accounts
type memAccounts struct {
	byID map[uuid.UUID]*GlAccount
	err  error
}

func newMemAccounts(accounts ...*GlAccount) *memAccounts {
	m := &memAccounts{byID: make(map[uuid.UUID]*GlAccount)}
	for _, a := range accounts {
		m.byID[a.ID] = a
	}
	return m
}

func (m *memAccounts) FindByID(_ context.Context, tenantID, id uuid.UUID) (*GlAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.byID[id]
	if !ok || a.TenantID != tenantID {
		return nil, nil
	}
	return a, nil
}

func (m *memAccounts) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*GlAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[uuid.UUID]*GlAccount)
	for _, id := range ids {
		if a, ok := m.byID[id]; ok && a.TenantID == tenantID {
			out[id] = a
		}
	}
	return out, nil
}

func (m *memAccounts) FindAll(_ context.Context, tenantID uuid.UUID) ([]GlAccount, error) {
	out := make([]GlAccount, 0, len(m.byID))
	for _, a := range m.byID {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// memPeriods holds time periods
type memPeriods struct {
	periods []*CustomTimePeriod
}

func (m *memPeriods) FindLastClosed(_ context.Context, tenantID uuid.UUID, org string, before time.Time) (*CustomTimePeriod, error) {
	var best *CustomTimePeriod
	for _, p := range m.periods {
		if !p.IsClosed || p.TenantID != tenantID || p.OrganizationPartyID != org {
			continue
		}
		if !before.IsZero() && p.ThruDate.After(before) {
			continue
		}
		if best == nil || p.ThruDate.After(best.ThruDate) {
			best = p
		}
	}
	return best, nil
}

// memHistories holds closing snapshots
type memHistories struct {
	rows []GlAccountHistory
}

func (m *memHistories) FindByPeriod(_ context.Context, tenantID, periodID uuid.UUID) ([]GlAccountHistory, error) {
	var out []GlAccountHistory
	for _, h := range m.rows {
		if h.TenantID == tenantID && h.CustomTimePeriodID == periodID {
			out = append(out, h)
		}
	}
	return out, nil
}

// memLedger sums entries of in-memory transactions
type memLedger struct {
	trans []*AcctgTrans
	calls int
}

func (m *memLedger) SumActivity(_ context.Context, q ActivityQuery) ([]AccountActivity, error) {
	m.calls++
	wanted := make(map[uuid.UUID]bool, len(q.AccountIDs))
	for _, id := range q.AccountIDs {
		wanted[id] = true
	}
	sums := make(map[uuid.UUID]*AccountActivity)
	for _, t := range m.trans {
		if t.TenantID != q.TenantID || t.IsPosted != q.Posted || t.FiscalType != q.FiscalType {
			continue
		}
		if q.OrganizationPartyID != "" && t.OrganizationPartyID != q.OrganizationPartyID {
			continue
		}
		if q.From != nil && t.TransactionDate.Before(*q.From) {
			continue
		}
		if q.Thru != nil && !t.TransactionDate.Before(*q.Thru) {
			continue
		}
		for _, e := range t.Entries {
			if len(wanted) > 0 && !wanted[e.GlAccountID] {
				continue
			}
			s, ok := sums[e.GlAccountID]
			if !ok {
				s = &AccountActivity{GlAccountID: e.GlAccountID, Debits: decimal.Zero, Credits: decimal.Zero}
				sums[e.GlAccountID] = s
			}
			if e.IsDebit() {
				s.Debits = s.Debits.Add(e.Amount.Decimal)
			} else {
				s.Credits = s.Credits.Add(e.Amount.Decimal)
			}
		}
	}
	out := make([]AccountActivity, 0, len(sums))
	for _, s := range sums {
		out = append(out, *s)
	}
	return out, nil
}

func mustAccount(t *testing.T, code string, class GlAccountClass, category GlAccountCategory) *GlAccount {
	t.Helper()
	a, err := NewGlAccount(testTenant, code, class, category, "Account "+code)
	require.NoError(t, err)
	return a
}

type line struct {
	account *GlAccount
	flag    DebitCreditFlag
	amount  string
}

func mustTrans(t *testing.T, date time.Time, posted bool, lines ...line) *AcctgTrans {
	t.Helper()
	tr, err := NewAcctgTrans(testTenant, testOrg, TransTypeManual, FiscalTypeActual, date, valueobject.USD)
	require.NoError(t, err)
	for _, l := range lines {
		_, err := tr.AddEntry(EntryInput{GlAccountID: l.account.ID, Amount: amt(l.amount), DebitCreditFlag: l.flag})
		require.NoError(t, err)
	}
	if posted {
		require.NoError(t, tr.MarkPosted(date, uuid.Nil))
		tr.ClearDomainEvents()
	}
	return tr
}
