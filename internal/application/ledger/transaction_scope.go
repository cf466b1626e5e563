package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Aggregate boundary notes:
//   - Transactions: AcctgTrans aggregate root. Entries are child entities and are
//     written together with their header.
//   - Accounts: chart of accounts, read by the entry validator.
//   - Periods / Histories: period closure state and the snapshots written on close.
//   - Ledger: read-only sums over entries, seen through the same snapshot as the writes.
type TransactionalRepositories interface {
	Transactions() ledger.AcctgTransRepository
	Accounts() ledger.GlAccountRepository
	Periods() ledger.TimePeriodRepository
	Histories() ledger.GlAccountHistoryRepository
	Ledger() ledger.LedgerQueryRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	transactions ledger.AcctgTransRepository
	accounts     ledger.GlAccountRepository
	periods      ledger.TimePeriodRepository
	histories    ledger.GlAccountHistoryRepository
	queries      ledger.LedgerQueryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	transactions ledger.AcctgTransRepository,
	accounts ledger.GlAccountRepository,
	periods ledger.TimePeriodRepository,
	histories ledger.GlAccountHistoryRepository,
	queries ledger.LedgerQueryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		transactions: transactions,
		accounts:     accounts,
		periods:      periods,
		histories:    histories,
		queries:      queries,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Transactions() ledger.AcctgTransRepository    { return s.transactions }
func (s *NoOpTransactionScope) Accounts() ledger.GlAccountRepository         { return s.accounts }
func (s *NoOpTransactionScope) Periods() ledger.TimePeriodRepository         { return s.periods }
func (s *NoOpTransactionScope) Histories() ledger.GlAccountHistoryRepository { return s.histories }
func (s *NoOpTransactionScope) Ledger() ledger.LedgerQueryRepository         { return s.queries }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
