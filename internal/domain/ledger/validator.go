package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountLookup resolves GL accounts by id
type AccountLookup interface {
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*GlAccount, error)
}

// ValidationResult summarizes a checked entry set
type ValidationResult struct {
	TransactionID uuid.UUID            `json:"transaction_id"`
	Currency      valueobject.Currency `json:"currency"`
	EntryCount    int                  `json:"entry_count"`
	TotalDebits   decimal.Decimal      `json:"total_debits"`
	TotalCredits  decimal.Decimal      `json:"total_credits"`
	Difference    decimal.Decimal      `json:"difference"`
	Balanced      bool                 `json:"balanced"`
}

// EntryValidator enforces the double-entry rules on a transaction's entries
type EntryValidator struct {
	accounts AccountLookup
	rounding valueobject.RoundingMode
}

// ValidatorOption configures an EntryValidator
type ValidatorOption func(*EntryValidator)

// WithRoundingMode sets how totals are rounded before they are compared
func WithRoundingMode(mode valueobject.RoundingMode) ValidatorOption {
	return func(v *EntryValidator) {
		v.rounding = mode
	}
}

// NewEntryValidator creates a validator. Totals are rounded half-up to the
// currency's minor unit unless another mode is configured.
func NewEntryValidator(accounts AccountLookup, opts ...ValidatorOption) *EntryValidator {
	v := &EntryValidator{
		accounts: accounts,
		rounding: valueobject.RoundHalfUp,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// RoundingMode returns the configured rounding mode
func (v *EntryValidator) RoundingMode() valueobject.RoundingMode {
	return v.rounding
}

// Validate checks the entries of trans. A nil transaction is reported as not found.
func (v *EntryValidator) Validate(ctx context.Context, trans *AcctgTrans, id uuid.UUID) (*ValidationResult, error) {
	if trans == nil {
		return nil, ErrTransactionNotFound(id)
	}
	return v.ValidateEntries(ctx, trans.TenantID, trans.ID, trans.CurrencyUomID, trans.Entries)
}

// ValidateEntries checks a candidate entry set for the transaction transID.
// Missing accounts are reported before any balancing problem. Amounts are never coerced:
// an entry without amount fails validation.
func (v *EntryValidator) ValidateEntries(ctx context.Context, tenantID, transID uuid.UUID, currency valueobject.Currency, entries []AcctgTransEntry) (*ValidationResult, error) {
	if len(entries) == 0 {
		return nil, shared.NewValidationError(CodeNoEntries, fmt.Sprintf("accounting transaction %s has no entries", transID))
	}

	ids := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.GlAccountID]; !ok {
			seen[e.GlAccountID] = struct{}{}
			ids = append(ids, e.GlAccountID)
		}
	}
	accounts, err := v.accounts.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load GL accounts: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if acc, ok := accounts[id]; !ok || acc == nil {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return nil, shared.NewNotFoundError(CodeAccountNotFound, "entries reference unknown GL accounts").WithDetails(missing...)
	}

	var problems entryProblems
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range entries {
		acc := accounts[e.GlAccountID]
		if !acc.IsActive {
			problems.add(CodeInactiveAccount, "entry %s: GL account %s is inactive", e.SeqID, acc.Code)
		}
		if !e.DebitCreditFlag.IsValid() {
			problems.add(CodeInvalidFlag, "entry %s: debit/credit flag %q must be D or C", e.SeqID, e.DebitCreditFlag)
			continue
		}
		if !e.Amount.Valid {
			problems.add(CodeAmountRequired, "entry %s: amount is required", e.SeqID)
			continue
		}
		if e.IsDebit() {
			debits = debits.Add(e.Amount.Decimal)
		} else {
			credits = credits.Add(e.Amount.Decimal)
		}
	}

	result := &ValidationResult{
		TransactionID: transID,
		Currency:      currency,
		EntryCount:    len(entries),
		TotalDebits:   v.rounding.Round(debits, currency),
		TotalCredits:  v.rounding.Round(credits, currency),
	}
	result.Difference = result.TotalDebits.Sub(result.TotalCredits)
	result.Balanced = result.Difference.IsZero()

	if len(problems.details) > 0 {
		return result, shared.NewValidationError(problems.code, "accounting transaction entries are invalid").WithDetails(problems.details...)
	}
	if !result.Balanced {
		return result, shared.NewValidationError(CodeUnbalanced, "accounting transaction is not balanced").
			WithDetails(fmt.Sprintf("%s: debits %s != credits %s (difference %s)",
				currency, result.TotalDebits.String(), result.TotalCredits.String(), result.Difference.String()))
	}
	return result, nil
}

// entryProblems collects per-entry failures; the first code names the error
type entryProblems struct {
	code    string
	details []string
}

func (p *entryProblems) add(code, format string, args ...any) {
	if p.code == "" {
		p.code = code
	}
	p.details = append(p.details, fmt.Sprintf(format, args...))
}
