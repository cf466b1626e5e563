package ledger

import (
	"context"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// TransactionService authors draft accounting transactions
type TransactionService struct {
	scope        TransactionScope
	transactions ledger.AcctgTransRepository
	rounding     valueobject.RoundingMode
	currency     valueobject.Currency
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(scope TransactionScope, transactions ledger.AcctgTransRepository, rounding valueobject.RoundingMode) *TransactionService {
	return &TransactionService{
		scope:        scope,
		transactions: transactions,
		rounding:     rounding,
	}
}

// SetDefaultCurrency sets the currency of drafts created without one
func (s *TransactionService) SetDefaultCurrency(c valueobject.Currency) {
	s.currency = c
}

// Create creates a draft transaction with its initial entries
func (s *TransactionService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateTransactionRequest) (*TransactionResponse, error) {
	currency := valueobject.Currency(strings.ToUpper(req.CurrencyUomID))
	if currency == "" {
		currency = s.currency
	}
	trans, err := ledger.NewAcctgTrans(
		tenantID,
		req.OrganizationPartyID,
		ledger.TransType(strings.ToUpper(req.TransType)),
		ledger.FiscalType(req.FiscalType),
		req.TransactionDate,
		currency,
	)
	if err != nil {
		return nil, err
	}
	trans.Description = req.Description
	trans.Links(req.InvoiceID, req.PaymentID, req.ShipmentID, req.WorkEffortID)
	trans.SetCreatedBy(userID)
	for _, e := range req.Entries {
		if _, err := trans.AddEntry(e.toInput()); err != nil {
			return nil, err
		}
	}

	if err := s.transactions.Create(ctx, trans); err != nil {
		return nil, storageErr("create accounting transaction", err)
	}
	resp := ToTransactionResponse(trans)
	return &resp, nil
}

// GetByID returns a transaction with its entries
func (s *TransactionService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*TransactionResponse, error) {
	trans, err := s.transactions.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, storageErr("load accounting transaction", err)
	}
	if trans == nil {
		return nil, ledger.ErrTransactionNotFound(id)
	}
	resp := ToTransactionResponse(trans)
	return &resp, nil
}

// List returns a page of transactions
func (s *TransactionService) List(ctx context.Context, tenantID uuid.UUID, filter TransactionListFilter) (*shared.Paginated[TransactionResponse], error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "transaction_date"
	}
	domainFilter := ledger.AcctgTransFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		}.Normalize(),
		OrganizationPartyID: filter.OrganizationPartyID,
		TransType:           ledger.TransType(strings.ToUpper(filter.TransType)),
		IsPosted:            filter.IsPosted,
		FromDate:            filter.FromDate,
		ThruDate:            filter.ThruDate,
	}

	items, total, err := s.transactions.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, storageErr("list accounting transactions", err)
	}
	out := make([]TransactionResponse, len(items))
	for i := range items {
		out[i] = ToTransactionResponse(&items[i])
	}
	page := shared.NewPaginated(out, total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// UpdateHeader changes the description and date of a draft
func (s *TransactionService) UpdateHeader(ctx context.Context, tenantID, id uuid.UUID, req UpdateTransactionRequest) (*TransactionResponse, error) {
	return s.modify(ctx, tenantID, id, func(t *ledger.AcctgTrans) error {
		return t.UpdateHeader(req.Description, req.TransactionDate)
	})
}

// AddEntry appends an entry to a draft
func (s *TransactionService) AddEntry(ctx context.Context, tenantID, id uuid.UUID, req EntryRequest) (*TransactionResponse, error) {
	return s.modify(ctx, tenantID, id, func(t *ledger.AcctgTrans) error {
		_, err := t.AddEntry(req.toInput())
		return err
	})
}

// UpdateEntry replaces an entry of a draft
func (s *TransactionService) UpdateEntry(ctx context.Context, tenantID, id uuid.UUID, seqID string, req EntryRequest) (*TransactionResponse, error) {
	return s.modify(ctx, tenantID, id, func(t *ledger.AcctgTrans) error {
		_, err := t.UpdateEntry(seqID, req.toInput())
		return err
	})
}

// RemoveEntry deletes an entry of a draft
func (s *TransactionService) RemoveEntry(ctx context.Context, tenantID, id uuid.UUID, seqID string) (*TransactionResponse, error) {
	return s.modify(ctx, tenantID, id, func(t *ledger.AcctgTrans) error {
		return t.RemoveEntry(seqID)
	})
}

// modify loads a draft under row lock, applies fn and stores the result.
// The posted check runs against the locked row, so a concurrent posting cannot
// slip in between.
func (s *TransactionService) modify(ctx context.Context, tenantID, id uuid.UUID, fn func(*ledger.AcctgTrans) error) (*TransactionResponse, error) {
	var resp TransactionResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		trans, err := repos.Transactions().FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return storageErr("load accounting transaction", err)
		}
		if trans == nil {
			return ledger.ErrTransactionNotFound(id)
		}
		if err := fn(trans); err != nil {
			return err
		}
		if err := repos.Transactions().SaveDraft(ctx, trans); err != nil {
			return storageErr("save accounting transaction", err)
		}
		resp = ToTransactionResponse(trans)
		return nil
	})
	if err != nil {
		return nil, storageErr("save accounting transaction", err)
	}
	return &resp, nil
}

// Validate runs the entry checks without posting. The result is returned
// together with the validation error so callers can show the totals.
func (s *TransactionService) Validate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.ValidationResult, error) {
	var result *ledger.ValidationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		trans, err := repos.Transactions().FindByID(ctx, tenantID, id)
		if err != nil {
			return storageErr("load accounting transaction", err)
		}
		validator := ledger.NewEntryValidator(repos.Accounts(), ledger.WithRoundingMode(s.rounding))
		result, err = validator.Validate(ctx, trans, id)
		return storageErr("validate accounting transaction", err)
	})
	return result, err
}
