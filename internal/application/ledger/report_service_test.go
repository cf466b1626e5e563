package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is a ReportCache backed by a map
type mapCache struct {
	mu          sync.Mutex
	items       map[string]any
	generations map[uuid.UUID]uint64
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string]any), generations: make(map[uuid.UUID]uint64)}
}

func (c *mapCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Generation(tenantID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[tenantID]
}

func (c *mapCache) Set(tenantID uuid.UUID, generation uint64, key string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[tenantID] != generation {
		return false
	}
	c.items[key] = v
	return true
}

func (c *mapCache) InvalidateTenant(tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[tenantID]++
	for k := range c.items {
		if strings.HasPrefix(k, tenantID.String()+"|") {
			delete(c.items, k)
		}
	}
}

func newReportService(f *fixture, cache ReportCache) *ReportService {
	accounts := &memAccountRepo{f.store}
	agg := ledger.NewBalanceAggregator(accounts, &memPeriodRepo{f.store}, &memHistoryRepo{f.store}, &memLedgerRepo{f.store})
	return NewReportService(accounts, agg, ledger.NewLocalizer(), cache)
}

func postAll(t *testing.T, f *fixture) {
	t.Helper()
	svc, _, _ := newPostingService(f, newKeyedLocker())
	for _, lines := range [][]line{
		{{f.cash, ledger.Debit, "1000"}, {f.revenue, ledger.Credit, "1000"}},
		{{f.expense, ledger.Debit, "300"}, {f.cash, ledger.Credit, "300"}},
		{{f.bank, ledger.Debit, "200"}, {f.cash, ledger.Credit, "200"}},
	} {
		tr := f.draft(t, day(2024, 3, 10), lines...)
		_, err := svc.Complete(context.Background(), testTenant, tr.ID, testUser)
		require.NoError(t, err)
	}
}

func marchQuery() ReportQuery {
	return ReportQuery{OrganizationPartyID: testOrg, From: day(2024, 3, 1), Thru: day(2024, 4, 1)}
}

func TestReportService_GetBalances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	postAll(t, f)
	pending := f.draft(t, day(2024, 3, 12),
		line{f.cash, ledger.Debit, "40"},
		line{f.revenue, ledger.Credit, "40"},
	)
	svc := newReportService(f, nil)

	t.Run("posted movement and ending balance", func(t *testing.T) {
		bal, err := svc.GetBalances(ctx, testTenant, BalanceQuery{
			AccountID: f.cash.ID, From: day(2024, 3, 1), Thru: day(2024, 4, 1), OrganizationPartyID: testOrg,
		})
		require.NoError(t, err)
		assert.Equal(t, "1000", bal.PostedDebits.String())
		assert.Equal(t, "500", bal.PostedCredits.String())
		assert.Equal(t, "500", bal.EndingBalance.String())
		assert.Equal(t, "Account 1100", bal.AccountName)
		assert.Nil(t, bal.Unposted)
	})

	t.Run("revenue is reported in its normal sign", func(t *testing.T) {
		bal, err := svc.GetBalances(ctx, testTenant, BalanceQuery{
			AccountID: f.revenue.ID, From: day(2024, 3, 1), Thru: day(2024, 4, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, "-1000", bal.EndingBalance.String())
		assert.Equal(t, "1000", bal.ClassBalance.String())
	})

	t.Run("unposted totals are kept apart", func(t *testing.T) {
		bal, err := svc.GetBalances(ctx, testTenant, BalanceQuery{
			AccountID: f.cash.ID, From: day(2024, 3, 1), Thru: day(2024, 4, 1), IncludeUnposted: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "500", bal.EndingBalance.String())
		require.NotNil(t, bal.Unposted)
		assert.Equal(t, "40", bal.Unposted.Debits.String())
		assert.False(t, f.store.storedTrans(pending.ID).IsPosted)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.GetBalances(ctx, testTenant, BalanceQuery{
			AccountID: uuid.New(), From: day(2024, 3, 1), Thru: day(2024, 4, 1),
		})
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("inverted period", func(t *testing.T) {
		_, err := svc.GetBalances(ctx, testTenant, BalanceQuery{
			AccountID: f.cash.ID, From: day(2024, 4, 1), Thru: day(2024, 3, 1),
		})
		assert.Equal(t, ledger.CodeInvalidPeriod, errorCode(err))
	})

	t.Run("storage failure", func(t *testing.T) {
		f.store.failOn["ledger.sum"] = errStorage
		defer delete(f.store.failOn, "ledger.sum")

		_, err := svc.GetBalances(ctx, testTenant, BalanceQuery{
			AccountID: f.cash.ID, From: day(2024, 3, 1), Thru: day(2024, 4, 1),
		})
		assert.True(t, shared.IsPersistence(err))
	})
}

func TestReportService_Reports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	postAll(t, f)
	svc := newReportService(f, nil)

	t.Run("income statement", func(t *testing.T) {
		is, err := svc.GetIncomeStatement(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		assert.Equal(t, "1000", is.Revenue.Total.String())
		assert.Equal(t, "300", is.SGA.Total.String())
		assert.Equal(t, "700", is.NetIncome.String())
		assert.Equal(t, "en", is.Language)
	})

	t.Run("trial balance", func(t *testing.T) {
		tb, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		assert.Equal(t, ledger.TrialBalanceStatusBalanced, tb.Status)
		assert.True(t, tb.TotalDebits.Equal(tb.TotalCredits))
		assert.Equal(t, "1500", tb.TotalDebits.String())
		assert.Len(t, tb.Lines, 4)
	})

	t.Run("cash flow", func(t *testing.T) {
		cf, err := svc.GetCashFlowStatement(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		require.Len(t, cf.Lines, 2)
		assert.Equal(t, "1200", cf.Inflows.String())
		assert.Equal(t, "500", cf.Outflows.String())
		assert.Equal(t, "700", cf.ClosingCash.String())
	})

	t.Run("balance sheet", func(t *testing.T) {
		bs, err := svc.GetBalanceSheet(ctx, testTenant, testOrg, day(2024, 4, 1), "tr-TR")
		require.NoError(t, err)
		assert.Equal(t, "700", bs.Assets.Total.String())
		assert.Equal(t, "700", bs.CurrentEarnings.String())
		assert.True(t, bs.Balanced)
		assert.Equal(t, "tr", bs.Language)
	})

	t.Run("organization is required", func(t *testing.T) {
		q := marchQuery()
		q.OrganizationPartyID = "  "
		_, err := svc.GetTrialBalance(ctx, testTenant, q)
		assert.Equal(t, shared.KindInvalidInput, shared.KindOf(err))

		_, err = svc.GetBalanceSheet(ctx, testTenant, "", day(2024, 4, 1), "")
		assert.Equal(t, shared.KindInvalidInput, shared.KindOf(err))
	})

	t.Run("other organizations are excluded", func(t *testing.T) {
		q := marchQuery()
		q.OrganizationPartyID = "ORG-2"
		tb, err := svc.GetTrialBalance(ctx, testTenant, q)
		require.NoError(t, err)
		assert.Empty(t, tb.Lines)
	})
}

func TestReportService_Cache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	postAll(t, f)
	cache := newMapCache()
	svc := newReportService(f, cache)

	first, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
	require.NoError(t, err)

	t.Run("repeated query is served from cache", func(t *testing.T) {
		f.store.failOn["ledger.sum"] = errStorage
		defer delete(f.store.failOn, "ledger.sum")

		again, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("callers get their own copy", func(t *testing.T) {
		mine, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		assert.NotSame(t, first, mine)
		mine.Lines[0].AccountName = "edited"
		mine.Lines = nil

		again, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("posting clears the tenant's reports before returning", func(t *testing.T) {
		other := uuid.New()
		cache.Set(other, 0, ReportCacheKey(other, "trial-balance"), "kept")

		tr := f.draft(t, day(2024, 3, 11),
			line{f.cash, ledger.Debit, "1"},
			line{f.revenue, ledger.Credit, "1"},
		)
		posting := NewPostingService(f.store.scope(), newKeyedLocker(), valueobject.RoundHalfUp, WithReportCache(cache))
		_, err := posting.Complete(ctx, testTenant, tr.ID, testUser)
		require.NoError(t, err)

		_, ok := cache.Get(ReportCacheKey(other, "trial-balance"))
		assert.True(t, ok)

		fresh, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		assert.Equal(t, "1501", fresh.TotalDebits.String())
	})

	t.Run("reversal and period close clear the cache too", func(t *testing.T) {
		_, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		before := cache.Generation(testTenant)

		tr := f.draft(t, day(2024, 3, 12),
			line{f.cash, ledger.Debit, "5"},
			line{f.revenue, ledger.Credit, "5"},
		)
		posting := NewPostingService(f.store.scope(), newKeyedLocker(), valueobject.RoundHalfUp, WithReportCache(cache))
		_, err = posting.Complete(ctx, testTenant, tr.ID, testUser)
		require.NoError(t, err)
		reverseOn := day(2024, 3, 13)
		_, err = posting.Reverse(ctx, testTenant, tr.ID, testUser, ReverseTransactionRequest{TransactionDate: &reverseOn})
		require.NoError(t, err)
		assert.Equal(t, before+2, cache.Generation(testTenant))

		tb, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
		require.NoError(t, err)
		assert.Equal(t, "1511", tb.TotalDebits.String())

		periods := NewPeriodService(f.store.scope(), &memPeriodRepo{f.store}, nil, nil)
		periods.SetReportCache(cache)
		march, err := periods.Create(ctx, testTenant, testUser, marchRequest())
		require.NoError(t, err)
		_, err = periods.Close(ctx, testTenant, march.ID)
		require.NoError(t, err)
		assert.Equal(t, before+3, cache.Generation(testTenant))
		_, ok := cache.Get(ReportCacheKey(testTenant, "trial-balance", testOrg, day(2024, 3, 1).Format(time.RFC3339), day(2024, 4, 1).Format(time.RFC3339), "en"))
		assert.False(t, ok)
	})

	t.Run("a report built across a posting is not cached", func(t *testing.T) {
		generation := cache.Generation(testTenant)
		invalidateReports(cache, testTenant)
		assert.False(t, cache.Set(testTenant, generation, ReportCacheKey(testTenant, "trial-balance"), "stale"))
	})

	t.Run("bus handler drops the tenant's reports", func(t *testing.T) {
		_, err := svc.GetTrialBalance(ctx, testTenant, marchQuery())
		require.NoError(t, err)

		handler := NewReportCacheInvalidator(cache)
		assert.Contains(t, handler.EventTypes(), ledger.EventTypeAcctgTransPosted)
		tr := f.draft(t, day(2024, 3, 14),
			line{f.cash, ledger.Debit, "2"},
			line{f.revenue, ledger.Credit, "2"},
		)
		require.NoError(t, handler.Handle(ctx, ledger.NewAcctgTransPostedEvent(tr, dec("2"))))

		for k := range cache.items {
			assert.False(t, strings.HasPrefix(k, testTenant.String()+"|"), k)
		}
	})
}
