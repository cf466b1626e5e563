package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceOptions tunes a balance computation
type BalanceOptions struct {
	// OrganizationPartyID limits entries to one organization. Closing snapshots
	// are only used when it is set, since periods belong to an organization.
	OrganizationPartyID string
	// IncludeUnposted adds draft totals in a separate block
	IncludeUnposted bool
	// IncludeChildren rolls descendant accounts into the result
	IncludeChildren bool
}

// UnpostedTotals are the sums of draft entries in the period. They are never
// part of the posted figures.
type UnpostedTotals struct {
	Debits  decimal.Decimal `json:"debits"`
	Credits decimal.Decimal `json:"credits"`
}

// BalanceResult is the balance of one account over a period.
// All amounts are debit-positive.
type BalanceResult struct {
	AccountID      uuid.UUID         `json:"account_id"`
	AccountCode    string            `json:"account_code"`
	Class          GlAccountClass    `json:"class"`
	Category       GlAccountCategory `json:"category"`
	NormalBalance  DebitCreditFlag   `json:"normal_balance"`
	Period         Period            `json:"period"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	PostedDebits   decimal.Decimal   `json:"posted_debits"`
	PostedCredits  decimal.Decimal   `json:"posted_credits"`
	EndingBalance  decimal.Decimal   `json:"ending_balance"`
	Unposted       *UnpostedTotals   `json:"unposted,omitempty"`
}

func newBalanceResult(acc *GlAccount, period Period) BalanceResult {
	return BalanceResult{
		AccountID:      acc.ID,
		AccountCode:    acc.Code,
		Class:          acc.Class,
		Category:       acc.Category,
		NormalBalance:  acc.NormalBalance(),
		Period:         period,
		OpeningBalance: decimal.Zero,
		PostedDebits:   decimal.Zero,
		PostedCredits:  decimal.Zero,
		EndingBalance:  decimal.Zero,
	}
}

// settle recomputes the ending balance from its parts
func (b *BalanceResult) settle() {
	b.EndingBalance = b.OpeningBalance.Add(b.PostedDebits).Sub(b.PostedCredits)
}

// NetChange returns posted debits minus posted credits
func (b BalanceResult) NetChange() decimal.Decimal {
	return b.PostedDebits.Sub(b.PostedCredits)
}

// normalize flips a debit-positive amount into the account's own sign
func (b BalanceResult) normalize(d decimal.Decimal) decimal.Decimal {
	if b.NormalBalance == Credit {
		return d.Neg()
	}
	return d
}

// ClassOpening returns the opening balance in the account's normal sign
func (b BalanceResult) ClassOpening() decimal.Decimal { return b.normalize(b.OpeningBalance) }

// ClassEnding returns the ending balance in the account's normal sign
func (b BalanceResult) ClassEnding() decimal.Decimal { return b.normalize(b.EndingBalance) }

// ClassChange returns the period movement in the account's normal sign
func (b BalanceResult) ClassChange() decimal.Decimal { return b.normalize(b.NetChange()) }

// HasActivity reports whether the account has a balance or posted movement
func (b BalanceResult) HasActivity() bool {
	return !b.OpeningBalance.IsZero() || !b.PostedDebits.IsZero() || !b.PostedCredits.IsZero()
}

// AccountReader is the part of the account repository the aggregator needs
type AccountReader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*GlAccount, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]GlAccount, error)
}

// HistoryReader reads closing snapshots
type HistoryReader interface {
	FindByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) ([]GlAccountHistory, error)
}

// BalanceAggregator computes account balances from posted entries
type BalanceAggregator struct {
	accounts  AccountReader
	periods   ClosedPeriodLookup
	histories HistoryReader
	activity  LedgerQueryRepository
}

// NewBalanceAggregator creates a BalanceAggregator
func NewBalanceAggregator(accounts AccountReader, periods ClosedPeriodLookup, histories HistoryReader, activity LedgerQueryRepository) *BalanceAggregator {
	return &BalanceAggregator{
		accounts:  accounts,
		periods:   periods,
		histories: histories,
		activity:  activity,
	}
}

// GetBalances returns the balance of one account over period.
// An account without activity yields zeros.
func (a *BalanceAggregator) GetBalances(ctx context.Context, tenantID, accountID uuid.UUID, period Period, opts BalanceOptions) (*BalanceResult, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	acc, err := a.accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load GL account: %w", err)
	}
	if acc == nil {
		return nil, ErrAccountNotFound(accountID)
	}

	members := []GlAccount{*acc}
	if opts.IncludeChildren {
		all, err := a.accounts.FindAll(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load chart of accounts: %w", err)
		}
		members = Subtree(all, acc.ID)
		if len(members) == 0 {
			members = []GlAccount{*acc}
		}
	}

	parts, err := a.GetBalancesForAccounts(ctx, tenantID, members, period, opts)
	if err != nil {
		return nil, err
	}

	result := newBalanceResult(acc, period)
	if opts.IncludeUnposted {
		result.Unposted = &UnpostedTotals{Debits: decimal.Zero, Credits: decimal.Zero}
	}
	for _, p := range parts {
		result.OpeningBalance = result.OpeningBalance.Add(p.OpeningBalance)
		result.PostedDebits = result.PostedDebits.Add(p.PostedDebits)
		result.PostedCredits = result.PostedCredits.Add(p.PostedCredits)
		if p.Unposted != nil {
			result.Unposted.Debits = result.Unposted.Debits.Add(p.Unposted.Debits)
			result.Unposted.Credits = result.Unposted.Credits.Add(p.Unposted.Credits)
		}
	}
	result.settle()
	return &result, nil
}

// GetBalancesForAccounts returns one result per account, in the order given
func (a *BalanceAggregator) GetBalancesForAccounts(ctx context.Context, tenantID uuid.UUID, accounts []GlAccount, period Period, opts BalanceOptions) ([]BalanceResult, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return []BalanceResult{}, nil
	}
	ids := make([]uuid.UUID, len(accounts))
	for i := range accounts {
		ids[i] = accounts[i].ID
	}

	opening, err := a.Cumulative(ctx, tenantID, opts.OrganizationPartyID, ids, period.From)
	if err != nil {
		return nil, err
	}

	from, thru := period.From, period.Thru
	posted, err := a.activity.SumActivity(ctx, ActivityQuery{
		TenantID:            tenantID,
		OrganizationPartyID: opts.OrganizationPartyID,
		AccountIDs:          ids,
		From:                &from,
		Thru:                &thru,
		Posted:              true,
		FiscalType:          FiscalTypeActual,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sum posted entries: %w", err)
	}
	postedByID := indexActivity(posted)

	var unpostedByID map[uuid.UUID]AccountActivity
	if opts.IncludeUnposted {
		unposted, err := a.activity.SumActivity(ctx, ActivityQuery{
			TenantID:            tenantID,
			OrganizationPartyID: opts.OrganizationPartyID,
			AccountIDs:          ids,
			From:                &from,
			Thru:                &thru,
			Posted:              false,
			FiscalType:          FiscalTypeActual,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to sum unposted entries: %w", err)
		}
		unpostedByID = indexActivity(unposted)
	}

	results := make([]BalanceResult, len(accounts))
	for i := range accounts {
		r := newBalanceResult(&accounts[i], period)
		if o, ok := opening[r.AccountID]; ok {
			r.OpeningBalance = o
		}
		if act, ok := postedByID[r.AccountID]; ok {
			r.PostedDebits = act.Debits
			r.PostedCredits = act.Credits
		}
		if opts.IncludeUnposted {
			u := unpostedByID[r.AccountID]
			r.Unposted = &UnpostedTotals{Debits: decimal.Zero.Add(u.Debits), Credits: decimal.Zero.Add(u.Credits)}
		}
		r.settle()
		results[i] = r
	}
	return results, nil
}

// Cumulative returns the debit-positive posted balance of each account strictly
// before the given instant. The latest closed period of the organization ending
// no later than before seeds the figures; only the activity after it is summed.
func (a *BalanceAggregator) Cumulative(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, ids []uuid.UUID, before time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(ids))
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
		out[id] = decimal.Zero
	}

	var from *time.Time
	if organizationPartyID != "" && a.histories != nil {
		last, err := a.periods.FindLastClosed(ctx, tenantID, organizationPartyID, before)
		if err != nil {
			return nil, fmt.Errorf("failed to load last closed period: %w", err)
		}
		if last != nil {
			snapshots, err := a.histories.FindByPeriod(ctx, tenantID, last.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load closing balances: %w", err)
			}
			for _, h := range snapshots {
				if _, ok := wanted[h.GlAccountID]; ok || len(ids) == 0 {
					out[h.GlAccountID] = h.EndingBalance
				}
			}
			thru := last.ThruDate
			from = &thru
		}
	}

	if from != nil && !from.Before(before) {
		return out, nil
	}
	acts, err := a.activity.SumActivity(ctx, ActivityQuery{
		TenantID:            tenantID,
		OrganizationPartyID: organizationPartyID,
		AccountIDs:          ids,
		From:                from,
		Thru:                &before,
		Posted:              true,
		FiscalType:          FiscalTypeActual,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sum opening entries: %w", err)
	}
	for _, act := range acts {
		out[act.GlAccountID] = out[act.GlAccountID].Add(act.Net())
	}
	return out, nil
}

// Subtree returns root and all of its descendants from a flat chart, root first
func Subtree(all []GlAccount, rootID uuid.UUID) []GlAccount {
	children := make(map[uuid.UUID][]int, len(all))
	rootIdx := -1
	for i := range all {
		if all[i].ID == rootID {
			rootIdx = i
		}
		if all[i].ParentID != nil {
			children[*all[i].ParentID] = append(children[*all[i].ParentID], i)
		}
	}
	if rootIdx < 0 {
		return nil
	}

	out := make([]GlAccount, 0, 8)
	visited := make(map[uuid.UUID]bool, len(all))
	queue := []int{rootIdx}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if visited[all[i].ID] {
			continue
		}
		visited[all[i].ID] = true
		out = append(out, all[i])
		queue = append(queue, children[all[i].ID]...)
	}
	return out
}

func indexActivity(acts []AccountActivity) map[uuid.UUID]AccountActivity {
	m := make(map[uuid.UUID]AccountActivity, len(acts))
	for _, act := range acts {
		m[act.GlAccountID] = act
	}
	return m
}

// BalancesAsOf returns cumulative posted balances strictly before the given
// instant, one result per account. Opening and ending carry the same figure.
func (a *BalanceAggregator) BalancesAsOf(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, accounts []GlAccount, before time.Time) ([]BalanceResult, error) {
	ids := make([]uuid.UUID, len(accounts))
	for i := range accounts {
		ids[i] = accounts[i].ID
	}
	cumulative, err := a.Cumulative(ctx, tenantID, organizationPartyID, ids, before)
	if err != nil {
		return nil, err
	}
	results := make([]BalanceResult, len(accounts))
	for i := range accounts {
		r := newBalanceResult(&accounts[i], Period{Thru: before})
		r.OpeningBalance = cumulative[r.AccountID]
		r.settle()
		results[i] = r
	}
	return results, nil
}
