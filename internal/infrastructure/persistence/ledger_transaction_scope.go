package persistence

import (
	"context"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Transactions() ledger.AcctgTransRepository {
	return NewGormAcctgTransRepository(r.tx)
}

func (r *gormTransactionalRepositories) Accounts() ledger.GlAccountRepository {
	return NewGormGlAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) Periods() ledger.TimePeriodRepository {
	return NewGormTimePeriodRepository(r.tx)
}

func (r *gormTransactionalRepositories) Histories() ledger.GlAccountHistoryRepository {
	return NewGormGlAccountHistoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Ledger() ledger.LedgerQueryRepository {
	return NewGormLedgerQueryRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
