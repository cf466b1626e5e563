package persistence

import (
	appledger "github.com/erp/ledger/internal/application/ledger"
	"gorm.io/gorm"
)

// NewLedgerRepositories creates the GORM ledger repositories and the
// transaction scope over db
func NewLedgerRepositories(db *gorm.DB) (appledger.Repositories, *GormTransactionScope) {
	return appledger.Repositories{
		Accounts:     NewGormGlAccountRepository(db),
		Transactions: NewGormAcctgTransRepository(db),
		Periods:      NewGormTimePeriodRepository(db),
		Histories:    NewGormGlAccountHistoryRepository(db),
		Queries:      NewGormLedgerQueryRepository(db),
	}, NewGormTransactionScope(db)
}
