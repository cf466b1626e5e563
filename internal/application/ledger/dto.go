package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Accounts =====================

// CreateAccountRequest represents a request to create a GL account
type CreateAccountRequest struct {
	Code     string            `json:"code" binding:"required,max=32"`
	ParentID *uuid.UUID        `json:"parent_id"`
	Class    string            `json:"class" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Category string            `json:"category"`
	Name     string            `json:"name" binding:"required,max=200"`
	Names    map[string]string `json:"names"` // extra translations keyed by language code
}

// SetAccountNameRequest sets the display name of an account in one language
type SetAccountNameRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// SetAccountParentRequest moves an account in the hierarchy. A nil parent makes it a root.
type SetAccountParentRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// SetAccountActiveRequest activates or deactivates an account
type SetAccountActiveRequest struct {
	Active bool `json:"active"`
}

// AccountResponse represents a GL account in API responses
type AccountResponse struct {
	ID            uuid.UUID         `json:"id"`
	Code          string            `json:"code"`
	ParentID      *uuid.UUID        `json:"parent_id,omitempty"`
	Class         string            `json:"class"`
	Category      string            `json:"category"`
	NormalBalance string            `json:"normal_balance"`
	IsActive      bool              `json:"is_active"`
	Name          string            `json:"name"`
	Names         map[string]string `json:"names"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// AccountTreeNode is an account with its children, ordered by code
type AccountTreeNode struct {
	AccountResponse
	Children []*AccountTreeNode `json:"children"`
}

// SeedChartResult reports what a chart seed created
type SeedChartResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// ToAccountResponse converts a domain account, naming it in lang
func ToAccountResponse(a *ledger.GlAccount, l *ledger.Localizer, lang string) AccountResponse {
	names := make(map[string]string, len(a.Names))
	for k, v := range a.Names {
		names[k] = v
	}
	return AccountResponse{
		ID:            a.ID,
		Code:          a.Code,
		ParentID:      a.ParentID,
		Class:         string(a.Class),
		Category:      string(a.Category),
		NormalBalance: string(a.NormalBalance()),
		IsActive:      a.IsActive,
		Name:          l.Name(a, lang),
		Names:         names,
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ===================== Transactions =====================

// EntryRequest describes one entry of a draft transaction.
// Amount is optional on input; an entry without amount fails validation on completion.
type EntryRequest struct {
	GlAccountID       uuid.UUID        `json:"gl_account_id" binding:"required"`
	Amount            *decimal.Decimal `json:"amount" binding:"omitempty,decimal"`
	DebitCreditFlag   string           `json:"debit_credit_flag" binding:"required,dc_flag"`
	OrigAmount        *decimal.Decimal `json:"orig_amount" binding:"omitempty,decimal"`
	OrigCurrencyUomID string           `json:"orig_currency_uom_id" binding:"omitempty,currency"`
	PartyID           string           `json:"party_id" binding:"max=64"`
	RoleTypeID        string           `json:"role_type_id" binding:"max=64"`
	Description       string           `json:"description" binding:"max=500"`
}

func (r EntryRequest) toInput() ledger.EntryInput {
	in := ledger.EntryInput{
		GlAccountID:       r.GlAccountID,
		DebitCreditFlag:   ledger.DebitCreditFlag(r.DebitCreditFlag),
		OrigCurrencyUomID: r.OrigCurrencyUomID,
		PartyID:           r.PartyID,
		RoleTypeID:        r.RoleTypeID,
		Description:       r.Description,
	}
	if r.Amount != nil {
		in.Amount = decimal.NewNullDecimal(*r.Amount)
	}
	if r.OrigAmount != nil {
		in.OrigAmount = decimal.NewNullDecimal(*r.OrigAmount)
	}
	return in
}

// CreateTransactionRequest represents a request to create a draft accounting transaction
type CreateTransactionRequest struct {
	OrganizationPartyID string         `json:"organization_party_id" binding:"required,max=64"`
	TransType           string         `json:"trans_type" binding:"required"`
	FiscalType          string         `json:"fiscal_type" binding:"omitempty,oneof=ACTUAL BUDGET FORECAST"`
	TransactionDate     time.Time      `json:"transaction_date" binding:"required"`
	Description         string         `json:"description" binding:"max=500"`
	CurrencyUomID       string         `json:"currency_uom_id" binding:"omitempty,currency"`
	InvoiceID           string         `json:"invoice_id" binding:"max=64"`
	PaymentID           string         `json:"payment_id" binding:"max=64"`
	ShipmentID          string         `json:"shipment_id" binding:"max=64"`
	WorkEffortID        string         `json:"work_effort_id" binding:"max=64"`
	Entries             []EntryRequest `json:"entries" binding:"omitempty,dive"`
}

// UpdateTransactionRequest changes the header of a draft transaction
type UpdateTransactionRequest struct {
	Description     string    `json:"description" binding:"max=500"`
	TransactionDate time.Time `json:"transaction_date" binding:"required"`
}

// ReverseTransactionRequest sets the date of the reversal. It defaults to now.
type ReverseTransactionRequest struct {
	TransactionDate *time.Time `json:"transaction_date"`
}

// TransactionListFilter represents filter options for transaction lists
type TransactionListFilter struct {
	OrganizationPartyID string     `form:"org"`
	TransType           string     `form:"trans_type"`
	IsPosted            *bool      `form:"is_posted"`
	FromDate            *time.Time `form:"from" time_format:"2006-01-02"`
	ThruDate            *time.Time `form:"thru" time_format:"2006-01-02"`
	Page                int        `form:"page" binding:"omitempty,min=1"`
	PageSize            int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy             string     `form:"order_by" binding:"omitempty,oneof=transaction_date created_at posted_date"`
	OrderDir            string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// EntryResponse represents an entry in API responses
type EntryResponse struct {
	SeqID             string               `json:"seq_id"`
	GlAccountID       uuid.UUID            `json:"gl_account_id"`
	Amount            decimal.NullDecimal  `json:"amount"`
	DebitCreditFlag   string               `json:"debit_credit_flag"`
	CurrencyUomID     valueobject.Currency `json:"currency_uom_id"`
	OrigAmount        decimal.NullDecimal  `json:"orig_amount"`
	OrigCurrencyUomID string               `json:"orig_currency_uom_id,omitempty"`
	PartyID           string               `json:"party_id,omitempty"`
	RoleTypeID        string               `json:"role_type_id,omitempty"`
	Description       string               `json:"description,omitempty"`
}

// TransactionResponse represents an accounting transaction in API responses
type TransactionResponse struct {
	ID                  uuid.UUID            `json:"id"`
	OrganizationPartyID string               `json:"organization_party_id"`
	TransType           string               `json:"trans_type"`
	FiscalType          string               `json:"fiscal_type"`
	TransactionDate     time.Time            `json:"transaction_date"`
	Description         string               `json:"description"`
	CurrencyUomID       valueobject.Currency `json:"currency_uom_id"`
	IsPosted            bool                 `json:"is_posted"`
	PostedDate          *time.Time           `json:"posted_date,omitempty"`
	PostedBy            *uuid.UUID           `json:"posted_by,omitempty"`
	InvoiceID           string               `json:"invoice_id,omitempty"`
	PaymentID           string               `json:"payment_id,omitempty"`
	ShipmentID          string               `json:"shipment_id,omitempty"`
	WorkEffortID        string               `json:"work_effort_id,omitempty"`
	ReversalOfID        *uuid.UUID           `json:"reversal_of_id,omitempty"`
	TotalDebits         decimal.Decimal      `json:"total_debits"`
	TotalCredits        decimal.Decimal      `json:"total_credits"`
	Entries             []EntryResponse      `json:"entries"`
	Version             int                  `json:"version"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ToTransactionResponse converts a domain transaction to its response
func ToTransactionResponse(t *ledger.AcctgTrans) TransactionResponse {
	debits, credits := t.Totals()
	entries := make([]EntryResponse, 0, len(t.Entries))
	for _, e := range t.SortedEntries() {
		entries = append(entries, EntryResponse{
			SeqID:             e.SeqID,
			GlAccountID:       e.GlAccountID,
			Amount:            e.Amount,
			DebitCreditFlag:   string(e.DebitCreditFlag),
			CurrencyUomID:     t.CurrencyUomID,
			OrigAmount:        e.OrigAmount,
			OrigCurrencyUomID: e.OrigCurrencyUomID,
			PartyID:           e.PartyID,
			RoleTypeID:        e.RoleTypeID,
			Description:       e.Description,
		})
	}
	return TransactionResponse{
		ID:                  t.ID,
		OrganizationPartyID: t.OrganizationPartyID,
		TransType:           string(t.TransType),
		FiscalType:          string(t.FiscalType),
		TransactionDate:     t.TransactionDate,
		Description:         t.Description,
		CurrencyUomID:       t.CurrencyUomID,
		IsPosted:            t.IsPosted,
		PostedDate:          t.PostedDate,
		PostedBy:            t.PostedBy,
		InvoiceID:           t.InvoiceID,
		PaymentID:           t.PaymentID,
		ShipmentID:          t.ShipmentID,
		WorkEffortID:        t.WorkEffortID,
		ReversalOfID:        t.ReversalOfID,
		TotalDebits:         debits,
		TotalCredits:        credits,
		Entries:             entries,
		Version:             t.Version,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// CompleteResult is returned by a successful posting
type CompleteResult struct {
	ID           uuid.UUID       `json:"id"`
	PostedDate   time.Time       `json:"posted_date"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
}

// ReverseResult is returned by a successful reversal
type ReverseResult struct {
	OriginalID uuid.UUID           `json:"original_id"`
	Reversal   TransactionResponse `json:"reversal"`
}

// ===================== Time periods =====================

// CreatePeriodRequest represents a request to create a custom time period
type CreatePeriodRequest struct {
	OrganizationPartyID string    `json:"organization_party_id" binding:"required,max=64"`
	PeriodType          string    `json:"period_type" binding:"required,oneof=FISCAL_YEAR FISCAL_QUARTER FISCAL_MONTH"`
	PeriodName          string    `json:"period_name" binding:"max=100"`
	FromDate            time.Time `json:"from_date" binding:"required"`
	ThruDate            time.Time `json:"thru_date" binding:"required"`
}

// PeriodResponse represents a custom time period in API responses
type PeriodResponse struct {
	ID                  uuid.UUID  `json:"id"`
	OrganizationPartyID string     `json:"organization_party_id"`
	PeriodType          string     `json:"period_type"`
	PeriodName          string     `json:"period_name"`
	FromDate            time.Time  `json:"from_date"`
	ThruDate            time.Time  `json:"thru_date"`
	IsClosed            bool       `json:"is_closed"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
	Version             int        `json:"version"`
}

// ToPeriodResponse converts a domain period to its response
func ToPeriodResponse(p *ledger.CustomTimePeriod) PeriodResponse {
	return PeriodResponse{
		ID:                  p.ID,
		OrganizationPartyID: p.OrganizationPartyID,
		PeriodType:          string(p.PeriodType),
		PeriodName:          p.PeriodName,
		FromDate:            p.FromDate,
		ThruDate:            p.ThruDate,
		IsClosed:            p.IsClosed,
		ClosedAt:            p.ClosedAt,
		Version:             p.Version,
	}
}

// ClosePeriodResult is returned when a period is closed
type ClosePeriodResult struct {
	Period    PeriodResponse `json:"period"`
	Snapshots int            `json:"snapshots"`
}

// ===================== Balances and reports =====================

// BalanceQuery selects the balance of one account
type BalanceQuery struct {
	AccountID           uuid.UUID
	From                time.Time
	Thru                time.Time
	OrganizationPartyID string
	IncludeUnposted     bool
	IncludeChildren     bool
	Language            string
}

// BalanceResponse is a balance with the account's display name and the
// ending balance in the account's normal sign
type BalanceResponse struct {
	ledger.BalanceResult
	AccountName  string          `json:"account_name"`
	ClassBalance decimal.Decimal `json:"class_balance"`
}

// ReportQuery selects a period report of one organization
type ReportQuery struct {
	OrganizationPartyID string
	From                time.Time
	Thru                time.Time
	Language            string
}
