package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountNamer resolves the display name of an account for a report
type AccountNamer func(accountID uuid.UUID) string

// ReportLine is one account row of a report bucket
type ReportLine struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"` // in the bucket's sign
}

// ReportBucket groups report lines under a heading with their total
type ReportBucket struct {
	Lines []ReportLine    `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func (b *ReportBucket) add(r BalanceResult, amount decimal.Decimal, name AccountNamer) {
	b.Lines = append(b.Lines, ReportLine{
		AccountID:   r.AccountID,
		AccountCode: r.AccountCode,
		AccountName: name(r.AccountID),
		Amount:      amount,
	})
	b.Total = b.Total.Add(amount)
}

func newBucket() ReportBucket {
	return ReportBucket{Lines: make([]ReportLine, 0), Total: decimal.Zero}
}

// sortByCode orders balances by account code, then id, for deterministic output
func sortByCode(balances []BalanceResult) []BalanceResult {
	out := make([]BalanceResult, len(balances))
	copy(out, balances)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AccountCode != out[j].AccountCode {
			return out[i].AccountCode < out[j].AccountCode
		}
		return out[i].AccountID.String() < out[j].AccountID.String()
	})
	return out
}

// IncomeStatement is the profit and loss view of a period
type IncomeStatement struct {
	OrganizationPartyID string          `json:"organization_party_id"`
	Period              Period          `json:"period"`
	Language            string          `json:"language"`
	Revenue             ReportBucket    `json:"revenue"`
	ContraRevenue       ReportBucket    `json:"contra_revenue"`
	COGS                ReportBucket    `json:"cogs"`
	SGA                 ReportBucket    `json:"sga"`
	Depreciation        ReportBucket    `json:"depreciation"`
	OtherExpense        ReportBucket    `json:"other_expense"`
	NetSales            decimal.Decimal `json:"net_sales"`    // Revenue - ContraRevenue
	GrossProfit         decimal.Decimal `json:"gross_profit"` // NetSales - COGS
	TotalExpenses       decimal.Decimal `json:"total_expenses"`
	NetIncome           decimal.Decimal `json:"net_income"` // Revenue - every expense bucket
}

// BuildIncomeStatement buckets revenue and expense balances by category.
// Only the movement inside the period counts; opening balances are ignored.
func BuildIncomeStatement(org string, period Period, lang string, balances []BalanceResult, name AccountNamer) *IncomeStatement {
	is := &IncomeStatement{
		OrganizationPartyID: org,
		Period:              period,
		Language:            lang,
		Revenue:             newBucket(),
		ContraRevenue:       newBucket(),
		COGS:                newBucket(),
		SGA:                 newBucket(),
		Depreciation:        newBucket(),
		OtherExpense:        newBucket(),
	}

	for _, r := range sortByCode(balances) {
		if !r.Class.IsIncomeStatement() || (r.PostedDebits.IsZero() && r.PostedCredits.IsZero()) {
			continue
		}
		amount := r.ClassChange()
		switch {
		case r.Category == CategoryContraRevenue:
			is.ContraRevenue.add(r, amount, name)
		case r.Class == ClassRevenue:
			is.Revenue.add(r, amount, name)
		case r.Category == CategoryCOGS:
			is.COGS.add(r, amount, name)
		case r.Category == CategorySGA:
			is.SGA.add(r, amount, name)
		case r.Category == CategoryDepreciation:
			is.Depreciation.add(r, amount, name)
		default:
			is.OtherExpense.add(r, amount, name)
		}
	}

	is.NetSales = is.Revenue.Total.Sub(is.ContraRevenue.Total)
	is.GrossProfit = is.NetSales.Sub(is.COGS.Total)
	is.TotalExpenses = is.ContraRevenue.Total.
		Add(is.COGS.Total).
		Add(is.SGA.Total).
		Add(is.Depreciation.Total).
		Add(is.OtherExpense.Total)
	is.NetIncome = is.Revenue.Total.Sub(is.TotalExpenses)
	return is
}

// TrialBalanceStatus represents the result status of a trial balance
type TrialBalanceStatus string

const (
	TrialBalanceStatusBalanced   TrialBalanceStatus = "BALANCED"
	TrialBalanceStatusUnbalanced TrialBalanceStatus = "UNBALANCED"
)

// IsBalanced returns true if the trial balance is balanced
func (s TrialBalanceStatus) IsBalanced() bool {
	return s == TrialBalanceStatusBalanced
}

// TrialBalanceLine is one account row of the trial balance
type TrialBalanceLine struct {
	AccountID      uuid.UUID       `json:"account_id"`
	AccountCode    string          `json:"account_code"`
	AccountName    string          `json:"account_name"`
	Class          GlAccountClass  `json:"class"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	PostedDebits   decimal.Decimal `json:"posted_debits"`
	PostedCredits  decimal.Decimal `json:"posted_credits"`
	EndingBalance  decimal.Decimal `json:"ending_balance"`
	EndingDebit    decimal.Decimal `json:"ending_debit"`  // ending balance when on the debit side
	EndingCredit   decimal.Decimal `json:"ending_credit"` // ending balance when on the credit side
}

// TrialBalance lists every account with a balance or movement
type TrialBalance struct {
	OrganizationPartyID string             `json:"organization_party_id"`
	Period              Period             `json:"period"`
	Language            string             `json:"language"`
	Lines               []TrialBalanceLine `json:"lines"`
	TotalOpening        decimal.Decimal    `json:"total_opening"`
	TotalDebits         decimal.Decimal    `json:"total_debits"`
	TotalCredits        decimal.Decimal    `json:"total_credits"`
	TotalEndingDebit    decimal.Decimal    `json:"total_ending_debit"`
	TotalEndingCredit   decimal.Decimal    `json:"total_ending_credit"`
	Discrepancy         decimal.Decimal    `json:"discrepancy"` // TotalEndingDebit - TotalEndingCredit
	Status              TrialBalanceStatus `json:"status"`
}

// BuildTrialBalance assembles the trial balance of a period
func BuildTrialBalance(org string, period Period, lang string, balances []BalanceResult, name AccountNamer) *TrialBalance {
	tb := &TrialBalance{
		OrganizationPartyID: org,
		Period:              period,
		Language:            lang,
		Lines:               make([]TrialBalanceLine, 0, len(balances)),
		TotalOpening:        decimal.Zero,
		TotalDebits:         decimal.Zero,
		TotalCredits:        decimal.Zero,
		TotalEndingDebit:    decimal.Zero,
		TotalEndingCredit:   decimal.Zero,
	}

	for _, r := range sortByCode(balances) {
		if !r.HasActivity() {
			continue
		}
		line := TrialBalanceLine{
			AccountID:      r.AccountID,
			AccountCode:    r.AccountCode,
			AccountName:    name(r.AccountID),
			Class:          r.Class,
			OpeningBalance: r.OpeningBalance,
			PostedDebits:   r.PostedDebits,
			PostedCredits:  r.PostedCredits,
			EndingBalance:  r.EndingBalance,
			EndingDebit:    decimal.Zero,
			EndingCredit:   decimal.Zero,
		}
		if r.EndingBalance.IsPositive() {
			line.EndingDebit = r.EndingBalance
		} else {
			line.EndingCredit = r.EndingBalance.Neg()
		}
		tb.Lines = append(tb.Lines, line)

		tb.TotalOpening = tb.TotalOpening.Add(r.OpeningBalance)
		tb.TotalDebits = tb.TotalDebits.Add(r.PostedDebits)
		tb.TotalCredits = tb.TotalCredits.Add(r.PostedCredits)
		tb.TotalEndingDebit = tb.TotalEndingDebit.Add(line.EndingDebit)
		tb.TotalEndingCredit = tb.TotalEndingCredit.Add(line.EndingCredit)
	}

	tb.Discrepancy = tb.TotalEndingDebit.Sub(tb.TotalEndingCredit)
	tb.Status = TrialBalanceStatusBalanced
	if !tb.Discrepancy.IsZero() || !tb.TotalDebits.Equal(tb.TotalCredits) {
		tb.Status = TrialBalanceStatusUnbalanced
	}
	return tb
}

// CashFlowLine is the movement of one cash account
type CashFlowLine struct {
	AccountID      uuid.UUID       `json:"account_id"`
	AccountCode    string          `json:"account_code"`
	AccountName    string          `json:"account_name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Inflows        decimal.Decimal `json:"inflows"`
	Outflows       decimal.Decimal `json:"outflows"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// CashFlowStatement summarizes cash movements of a period
type CashFlowStatement struct {
	OrganizationPartyID string          `json:"organization_party_id"`
	Period              Period          `json:"period"`
	Language            string          `json:"language"`
	Lines               []CashFlowLine  `json:"lines"`
	OpeningCash         decimal.Decimal `json:"opening_cash"`
	Inflows             decimal.Decimal `json:"inflows"`
	Outflows            decimal.Decimal `json:"outflows"`
	NetChange           decimal.Decimal `json:"net_change"`
	ClosingCash         decimal.Decimal `json:"closing_cash"`
}

// BuildCashFlowStatement assembles the cash movements of accounts in the CASH category
func BuildCashFlowStatement(org string, period Period, lang string, balances []BalanceResult, name AccountNamer) *CashFlowStatement {
	cf := &CashFlowStatement{
		OrganizationPartyID: org,
		Period:              period,
		Language:            lang,
		Lines:               make([]CashFlowLine, 0),
		OpeningCash:         decimal.Zero,
		Inflows:             decimal.Zero,
		Outflows:            decimal.Zero,
	}

	for _, r := range sortByCode(balances) {
		if r.Category != CategoryCash {
			continue
		}
		cf.Lines = append(cf.Lines, CashFlowLine{
			AccountID:      r.AccountID,
			AccountCode:    r.AccountCode,
			AccountName:    name(r.AccountID),
			OpeningBalance: r.OpeningBalance,
			Inflows:        r.PostedDebits,
			Outflows:       r.PostedCredits,
			ClosingBalance: r.EndingBalance,
		})
		cf.OpeningCash = cf.OpeningCash.Add(r.OpeningBalance)
		cf.Inflows = cf.Inflows.Add(r.PostedDebits)
		cf.Outflows = cf.Outflows.Add(r.PostedCredits)
	}

	cf.NetChange = cf.Inflows.Sub(cf.Outflows)
	cf.ClosingCash = cf.OpeningCash.Add(cf.NetChange)
	return cf
}

// BalanceSheet is the financial position at a date
type BalanceSheet struct {
	OrganizationPartyID string          `json:"organization_party_id"`
	AsOf                time.Time       `json:"as_of"`
	Language            string          `json:"language"`
	Assets              ReportBucket    `json:"assets"`
	Liabilities         ReportBucket    `json:"liabilities"`
	Equity              ReportBucket    `json:"equity"`
	CurrentEarnings     decimal.Decimal `json:"current_earnings"` // unclosed revenue less expenses
	Balanced            bool            `json:"balanced"`
}

// BuildBalanceSheet assembles the balance sheet from cumulative balances.
// Contra accounts reduce their section (accumulated depreciation lowers assets).
func BuildBalanceSheet(org string, asOf time.Time, lang string, balances []BalanceResult, name AccountNamer) *BalanceSheet {
	bs := &BalanceSheet{
		OrganizationPartyID: org,
		AsOf:                asOf,
		Language:            lang,
		Assets:              newBucket(),
		Liabilities:         newBucket(),
		Equity:              newBucket(),
		CurrentEarnings:     decimal.Zero,
	}

	for _, r := range sortByCode(balances) {
		if r.EndingBalance.IsZero() {
			continue
		}
		switch r.Class {
		case ClassAsset:
			bs.Assets.add(r, r.EndingBalance, name)
		case ClassLiability:
			bs.Liabilities.add(r, r.EndingBalance.Neg(), name)
		case ClassEquity:
			bs.Equity.add(r, r.EndingBalance.Neg(), name)
		default:
			bs.CurrentEarnings = bs.CurrentEarnings.Sub(r.EndingBalance)
		}
	}

	bs.Balanced = bs.Assets.Total.Equal(bs.Liabilities.Total.Add(bs.Equity.Total).Add(bs.CurrentEarnings))
	return bs
}

func (b ReportBucket) clone() ReportBucket {
	b.Lines = append(make([]ReportLine, 0, len(b.Lines)), b.Lines...)
	return b
}

// Clone returns a copy that shares no slices with the receiver
func (is *IncomeStatement) Clone() *IncomeStatement {
	if is == nil {
		return nil
	}
	c := *is
	c.Revenue = is.Revenue.clone()
	c.ContraRevenue = is.ContraRevenue.clone()
	c.COGS = is.COGS.clone()
	c.SGA = is.SGA.clone()
	c.Depreciation = is.Depreciation.clone()
	c.OtherExpense = is.OtherExpense.clone()
	return &c
}

// Clone returns a copy that shares no slices with the receiver
func (tb *TrialBalance) Clone() *TrialBalance {
	if tb == nil {
		return nil
	}
	c := *tb
	c.Lines = append(make([]TrialBalanceLine, 0, len(tb.Lines)), tb.Lines...)
	return &c
}

// Clone returns a copy that shares no slices with the receiver
func (cf *CashFlowStatement) Clone() *CashFlowStatement {
	if cf == nil {
		return nil
	}
	c := *cf
	c.Lines = append(make([]CashFlowLine, 0, len(cf.Lines)), cf.Lines...)
	return &c
}

// Clone returns a copy that shares no slices with the receiver
func (bs *BalanceSheet) Clone() *BalanceSheet {
	if bs == nil {
		return nil
	}
	c := *bs
	c.Assets = bs.Assets.clone()
	c.Liabilities = bs.Liabilities.clone()
	c.Equity = bs.Equity.clone()
	return &c
}
