package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeAcctgTrans is the aggregate type name for accounting transactions
const AggregateTypeAcctgTrans = "AcctgTrans"

var nowUTC = func() time.Time { return time.Now().UTC() }

// DebitCreditFlag marks the side of an entry
type DebitCreditFlag string

const (
	Debit  DebitCreditFlag = "D"
	Credit DebitCreditFlag = "C"
)

// IsValid checks if the flag is D or C
func (f DebitCreditFlag) IsValid() bool {
	return f == Debit || f == Credit
}

// Opposite returns the other side
func (f DebitCreditFlag) Opposite() DebitCreditFlag {
	if f == Debit {
		return Credit
	}
	return Debit
}

// String returns the string representation
func (f DebitCreditFlag) String() string {
	return string(f)
}

// TransType describes the business origin of a transaction
type TransType string

const (
	TransTypeManual          TransType = "MANUAL"
	TransTypeSalesInvoice    TransType = "SALES_INVOICE"
	TransTypePurchaseInvoice TransType = "PURCHASE_INVOICE"
	TransTypePaymentReceipt  TransType = "PAYMENT_RECEIPT"
	TransTypePaymentIssued   TransType = "PAYMENT_ISSUED"
	TransTypeShipment        TransType = "SHIPMENT"
	TransTypeDepreciation    TransType = "DEPRECIATION"
	TransTypePeriodClosing   TransType = "PERIOD_CLOSING"
	TransTypeReversal        TransType = "REVERSAL"
)

// IsValid checks if the transaction type is a known value
func (t TransType) IsValid() bool {
	switch t {
	case TransTypeManual, TransTypeSalesInvoice, TransTypePurchaseInvoice, TransTypePaymentReceipt,
		TransTypePaymentIssued, TransTypeShipment, TransTypeDepreciation, TransTypePeriodClosing, TransTypeReversal:
		return true
	}
	return false
}

// FiscalType distinguishes actual bookings from budget and forecast figures
type FiscalType string

const (
	FiscalTypeActual   FiscalType = "ACTUAL"
	FiscalTypeBudget   FiscalType = "BUDGET"
	FiscalTypeForecast FiscalType = "FORECAST"
)

// IsValid checks if the fiscal type is a known value
func (t FiscalType) IsValid() bool {
	return t == FiscalTypeActual || t == FiscalTypeBudget || t == FiscalTypeForecast
}

// AcctgTransEntry is one line of an accounting transaction
type AcctgTransEntry struct {
	AcctgTransID    uuid.UUID
	SeqID           string
	GlAccountID     uuid.UUID
	Amount          decimal.NullDecimal
	DebitCreditFlag DebitCreditFlag
	// OrigAmount and OrigCurrencyUomID keep the source document amount when it
	// was booked in a currency other than the ledger currency.
	OrigAmount        decimal.NullDecimal
	OrigCurrencyUomID string
	PartyID           string
	RoleTypeID        string
	Description       string
}

// IsDebit reports whether the entry is on the debit side
func (e AcctgTransEntry) IsDebit() bool {
	return e.DebitCreditFlag == Debit
}

// Signed returns the amount as a debit-positive figure (credits negated)
func (e AcctgTransEntry) Signed() decimal.Decimal {
	if !e.Amount.Valid {
		return decimal.Zero
	}
	if e.DebitCreditFlag == Credit {
		return e.Amount.Decimal.Neg()
	}
	return e.Amount.Decimal
}

// EntryInput carries the caller-provided fields of an entry
type EntryInput struct {
	GlAccountID       uuid.UUID
	Amount            decimal.NullDecimal
	DebitCreditFlag   DebitCreditFlag
	OrigAmount        decimal.NullDecimal
	OrigCurrencyUomID string
	PartyID           string
	RoleTypeID        string
	Description       string
}

func (in EntryInput) check() error {
	if in.GlAccountID == uuid.Nil {
		return shared.NewDomainError("INVALID_GL_ACCOUNT", "Entry must reference a GL account")
	}
	if !in.DebitCreditFlag.IsValid() {
		return shared.NewValidationError(CodeInvalidFlag, fmt.Sprintf("Debit/credit flag %q must be D or C", in.DebitCreditFlag))
	}
	if in.OrigAmount.Valid && in.OrigCurrencyUomID == "" {
		return shared.NewDomainError("INVALID_ORIG_CURRENCY", "Original currency is required with an original amount")
	}
	return nil
}

// AcctgTrans is the accounting transaction header and its entries
type AcctgTrans struct {
	shared.TenantAggregateRoot
	OrganizationPartyID string
	TransType           TransType
	FiscalType          FiscalType
	TransactionDate     time.Time
	Description         string
	CurrencyUomID       valueobject.Currency
	IsPosted            bool
	PostedDate          *time.Time
	PostedBy            *uuid.UUID
	InvoiceID           string
	PaymentID           string
	ShipmentID          string
	WorkEffortID        string
	ReversalOfID        *uuid.UUID
	Entries             []AcctgTransEntry
}

// NewAcctgTrans creates a draft accounting transaction
func NewAcctgTrans(tenantID uuid.UUID, organizationPartyID string, transType TransType, fiscalType FiscalType, transactionDate time.Time, currency valueobject.Currency) (*AcctgTrans, error) {
	organizationPartyID = strings.TrimSpace(organizationPartyID)
	if organizationPartyID == "" {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization party ID cannot be empty")
	}
	if !transType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANS_TYPE", "Transaction type is not valid")
	}
	if fiscalType == "" {
		fiscalType = FiscalTypeActual
	}
	if !fiscalType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FISCAL_TYPE", "Fiscal type is not valid")
	}
	if transactionDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_DATE", "Transaction date is required")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency code is not valid")
	}

	return &AcctgTrans{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrganizationPartyID: organizationPartyID,
		TransType:           transType,
		FiscalType:          fiscalType,
		TransactionDate:     transactionDate.UTC(),
		CurrencyUomID:       currency,
		Entries:             make([]AcctgTransEntry, 0),
	}, nil
}

// Links sets the optional references to the documents that produced the transaction
func (t *AcctgTrans) Links(invoiceID, paymentID, shipmentID, workEffortID string) {
	t.InvoiceID = strings.TrimSpace(invoiceID)
	t.PaymentID = strings.TrimSpace(paymentID)
	t.ShipmentID = strings.TrimSpace(shipmentID)
	t.WorkEffortID = strings.TrimSpace(workEffortID)
}

// UpdateHeader changes the description and date of a draft transaction
func (t *AcctgTrans) UpdateHeader(description string, transactionDate time.Time) error {
	if t.IsPosted {
		return ErrTransactionPosted(t.ID)
	}
	if transactionDate.IsZero() {
		return shared.NewDomainError("INVALID_TRANSACTION_DATE", "Transaction date is required")
	}
	t.Description = description
	t.TransactionDate = transactionDate.UTC()
	t.touch()
	return nil
}

// AddEntry appends a new entry with the next sequence id
func (t *AcctgTrans) AddEntry(in EntryInput) (*AcctgTransEntry, error) {
	if t.IsPosted {
		return nil, ErrTransactionPosted(t.ID)
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	entry := AcctgTransEntry{AcctgTransID: t.ID, SeqID: t.nextSeqID()}
	entry.apply(in)
	t.Entries = append(t.Entries, entry)
	t.touch()
	return &t.Entries[len(t.Entries)-1], nil
}

// UpdateEntry replaces the fields of the entry with the given sequence id
func (t *AcctgTrans) UpdateEntry(seqID string, in EntryInput) (*AcctgTransEntry, error) {
	if t.IsPosted {
		return nil, ErrTransactionPosted(t.ID)
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	idx := t.entryIndex(seqID)
	if idx < 0 {
		return nil, shared.NewNotFoundError(CodeEntryNotFound, fmt.Sprintf("entry %s not found on transaction %s", seqID, t.ID))
	}
	t.Entries[idx].apply(in)
	t.touch()
	return &t.Entries[idx], nil
}

// RemoveEntry deletes the entry with the given sequence id
func (t *AcctgTrans) RemoveEntry(seqID string) error {
	if t.IsPosted {
		return ErrTransactionPosted(t.ID)
	}
	idx := t.entryIndex(seqID)
	if idx < 0 {
		return shared.NewNotFoundError(CodeEntryNotFound, fmt.Sprintf("entry %s not found on transaction %s", seqID, t.ID))
	}
	t.Entries = append(t.Entries[:idx], t.Entries[idx+1:]...)
	t.touch()
	return nil
}

// MarkPosted flips the transaction to posted. It is the only mutation allowed on
// the posting path and must run after the entries were validated.
func (t *AcctgTrans) MarkPosted(at time.Time, by uuid.UUID) error {
	if t.IsPosted {
		return ErrAlreadyPosted(t.ID)
	}
	at = at.UTC()
	t.IsPosted = true
	t.PostedDate = &at
	if by != uuid.Nil {
		t.PostedBy = &by
	}
	t.touch()

	debits, _ := t.Totals()
	t.AddDomainEvent(NewAcctgTransPostedEvent(t, debits))
	return nil
}

// Totals returns the sums of debit and credit amounts. Entries without amount are ignored.
func (t *AcctgTrans) Totals() (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, e := range t.Entries {
		if !e.Amount.Valid {
			continue
		}
		if e.IsDebit() {
			debits = debits.Add(e.Amount.Decimal)
		} else {
			credits = credits.Add(e.Amount.Decimal)
		}
	}
	return debits, credits
}

// NewReversal builds a draft transaction that offsets every entry of a posted transaction
func (t *AcctgTrans) NewReversal(transactionDate time.Time) (*AcctgTrans, error) {
	if !t.IsPosted {
		return nil, shared.NewConflictError(CodeNotPosted, fmt.Sprintf("accounting transaction %s is not posted and cannot be reversed", t.ID))
	}
	if t.TransType == TransTypeReversal {
		return nil, shared.NewConflictError(CodeAlreadyReversed, "a reversal cannot be reversed")
	}
	rev, err := NewAcctgTrans(t.TenantID, t.OrganizationPartyID, TransTypeReversal, t.FiscalType, transactionDate, t.CurrencyUomID)
	if err != nil {
		return nil, err
	}
	origID := t.ID
	rev.ReversalOfID = &origID
	rev.Description = fmt.Sprintf("Reversal of %s", t.ID)
	rev.Links(t.InvoiceID, t.PaymentID, t.ShipmentID, t.WorkEffortID)
	for _, e := range t.SortedEntries() {
		if _, err := rev.AddEntry(EntryInput{
			GlAccountID:       e.GlAccountID,
			Amount:            e.Amount,
			DebitCreditFlag:   e.DebitCreditFlag.Opposite(),
			OrigAmount:        e.OrigAmount,
			OrigCurrencyUomID: e.OrigCurrencyUomID,
			PartyID:           e.PartyID,
			RoleTypeID:        e.RoleTypeID,
			Description:       e.Description,
		}); err != nil {
			return nil, err
		}
	}
	rev.Version = 1
	return rev, nil
}

// SortedEntries returns the entries ordered by sequence id
func (t *AcctgTrans) SortedEntries() []AcctgTransEntry {
	out := make([]AcctgTransEntry, len(t.Entries))
	copy(out, t.Entries)
	sort.Slice(out, func(i, j int) bool { return out[i].SeqID < out[j].SeqID })
	return out
}

// AccountIDs returns the distinct GL accounts referenced by the entries
func (t *AcctgTrans) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(t.Entries))
	ids := make([]uuid.UUID, 0, len(t.Entries))
	for _, e := range t.Entries {
		if _, ok := seen[e.GlAccountID]; ok {
			continue
		}
		seen[e.GlAccountID] = struct{}{}
		ids = append(ids, e.GlAccountID)
	}
	return ids
}

func (t *AcctgTrans) entryIndex(seqID string) int {
	for i := range t.Entries {
		if t.Entries[i].SeqID == seqID {
			return i
		}
	}
	return -1
}

func (t *AcctgTrans) nextSeqID() string {
	highest := 0
	for _, e := range t.Entries {
		var n int
		if _, err := fmt.Sscanf(e.SeqID, "%d", &n); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%05d", highest+1)
}

func (t *AcctgTrans) touch() {
	t.Touch(nowUTC())
}

func (e *AcctgTransEntry) apply(in EntryInput) {
	e.GlAccountID = in.GlAccountID
	e.Amount = in.Amount
	e.DebitCreditFlag = in.DebitCreditFlag
	e.OrigAmount = in.OrigAmount
	e.OrigCurrencyUomID = strings.ToUpper(strings.TrimSpace(in.OrigCurrencyUomID))
	e.PartyID = strings.TrimSpace(in.PartyID)
	e.RoleTypeID = strings.TrimSpace(in.RoleTypeID)
	e.Description = in.Description
}
