package ledger

import (
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Repositories are the non-transactional ledger repositories
type Repositories struct {
	Accounts     ledger.GlAccountRepository
	Transactions ledger.AcctgTransRepository
	Periods      ledger.TimePeriodRepository
	Histories    ledger.GlAccountHistoryRepository
	Queries      ledger.LedgerQueryRepository
}

// Dependencies wires the ledger services. Publisher, Cache and Recorder are optional.
type Dependencies struct {
	Repositories
	Scope    TransactionScope
	Locker   PostingLocker
	Rounding valueobject.RoundingMode
	// Currency is used for drafts created without one
	Currency valueobject.Currency
	// Languages are the supported account name languages; the first is the fallback
	Languages []string
	Publisher shared.EventPublisher
	Cache     ReportCache
	Recorder  PostingRecorder
	Logger    *zap.Logger
}

// Services groups the ledger application services
type Services struct {
	Accounts     *AccountService
	Transactions *TransactionService
	Posting      *PostingService
	Periods      *PeriodService
	Reports      *ReportService
}

// NewServices builds every ledger service over one set of dependencies
func NewServices(deps Dependencies) *Services {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	localizer := ledger.NewLocalizer(deps.Languages...)
	aggregator := ledger.NewBalanceAggregator(deps.Accounts, deps.Periods, deps.Histories, deps.Queries)

	postingOpts := []PostingOption{WithPostingLogger(log.Named("posting"))}
	if deps.Publisher != nil {
		postingOpts = append(postingOpts, WithEventPublisher(deps.Publisher))
	}
	if deps.Recorder != nil {
		postingOpts = append(postingOpts, WithPostingRecorder(deps.Recorder))
	}
	if deps.Cache != nil {
		postingOpts = append(postingOpts, WithReportCache(deps.Cache))
	}

	transactions := NewTransactionService(deps.Scope, deps.Transactions, deps.Rounding)
	if deps.Currency != "" {
		transactions.SetDefaultCurrency(deps.Currency)
	}

	periods := NewPeriodService(deps.Scope, deps.Periods, deps.Publisher, log.Named("periods"))
	if deps.Cache != nil {
		periods.SetReportCache(deps.Cache)
	}

	return &Services{
		Accounts:     NewAccountService(deps.Accounts, localizer),
		Transactions: transactions,
		Posting:      NewPostingService(deps.Scope, deps.Locker, deps.Rounding, postingOpts...),
		Periods:      periods,
		Reports:      NewReportService(deps.Accounts, aggregator, localizer, deps.Cache),
	}
}
