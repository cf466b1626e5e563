package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedPeriod(t *testing.T, from, thru time.Time) *CustomTimePeriod {
	t.Helper()
	p, err := NewCustomTimePeriod(testTenant, testOrg, PeriodTypeFiscalMonth, "", from, thru)
	require.NoError(t, err)
	require.NoError(t, p.Close(thru, 0))
	p.ClearDomainEvents()
	return p
}

func TestPoster_Post(t *testing.T) {
	ctx := context.Background()
	cash := mustAccount(t, "1100", ClassAsset, CategoryCash)
	sales := mustAccount(t, "4100", ClassRevenue, CategoryRevenue)
	postedAt := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	user := uuid.New()

	newPoster := func(periods ...*CustomTimePeriod) *Poster {
		return NewPoster(NewEntryValidator(newMemAccounts(cash, sales)), &memPeriods{periods: periods},
			WithClock(func() time.Time { return postedAt }))
	}

	t.Run("posts a balanced draft", func(t *testing.T) {
		tr := mustTrans(t, day(2026, 1, 20), false, line{cash, Debit, "100"}, line{sales, Credit, "100"})

		res, err := newPoster().Post(ctx, tr, tr.ID, user)
		require.NoError(t, err)
		assert.True(t, res.Balanced)
		assert.True(t, tr.IsPosted)
		assert.Equal(t, postedAt, *tr.PostedDate)
		assert.Equal(t, user, *tr.PostedBy)
		assert.Len(t, tr.GetDomainEvents(), 1)
	})

	t.Run("unbalanced draft stays unposted", func(t *testing.T) {
		tr := mustTrans(t, day(2026, 1, 20), false, line{cash, Debit, "100"}, line{sales, Credit, "60"})
		version := tr.Version

		_, err := newPoster().Post(ctx, tr, tr.ID, user)
		assert.True(t, shared.IsValidation(err))
		assert.False(t, tr.IsPosted)
		assert.Nil(t, tr.PostedDate)
		assert.Equal(t, version, tr.Version)
		assert.Empty(t, tr.GetDomainEvents())
	})

	t.Run("already posted is a conflict", func(t *testing.T) {
		tr := mustTrans(t, day(2026, 1, 20), true, line{cash, Debit, "100"}, line{sales, Credit, "100"})
		first := *tr.PostedDate

		_, err := newPoster().Post(ctx, tr, tr.ID, user)
		assert.True(t, shared.IsConflict(err))
		assert.ErrorIs(t, err, ErrAlreadyPosted(tr.ID))
		assert.Equal(t, first, *tr.PostedDate)
	})

	t.Run("missing transaction is not found", func(t *testing.T) {
		id := uuid.New()
		_, err := newPoster().Post(ctx, nil, id, user)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("date inside a closed period is rejected", func(t *testing.T) {
		jan := closedPeriod(t, day(2026, 1, 1), day(2026, 2, 1))
		tr := mustTrans(t, day(2026, 1, 31), false, line{cash, Debit, "100"}, line{sales, Credit, "100"})

		_, err := newPoster(jan).Post(ctx, tr, tr.ID, user)
		assert.True(t, shared.IsValidation(err))
		assert.ErrorIs(t, err, shared.NewValidationError(CodePeriodClosed, ""))
		assert.False(t, tr.IsPosted)
	})

	t.Run("date on the closed period's end is open", func(t *testing.T) {
		jan := closedPeriod(t, day(2026, 1, 1), day(2026, 2, 1))
		tr := mustTrans(t, day(2026, 2, 1), false, line{cash, Debit, "100"}, line{sales, Credit, "100"})

		_, err := newPoster(jan).Post(ctx, tr, tr.ID, user)
		require.NoError(t, err)
		assert.True(t, tr.IsPosted)
	})

	t.Run("periods of other organizations do not block", func(t *testing.T) {
		other, err := NewCustomTimePeriod(testTenant, "ORG-2", PeriodTypeFiscalMonth, "", day(2026, 1, 1), day(2026, 2, 1))
		require.NoError(t, err)
		require.NoError(t, other.Close(day(2026, 2, 1), 0))
		tr := mustTrans(t, day(2026, 1, 15), false, line{cash, Debit, "100"}, line{sales, Credit, "100"})

		_, err = newPoster(other).Post(ctx, tr, tr.ID, user)
		require.NoError(t, err)
	})
}
