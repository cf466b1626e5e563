package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ReportService computes balances and assembles the financial reports.
// Reports only read posted entries and take no locks.
type ReportService struct {
	accounts   ledger.GlAccountRepository
	aggregator *ledger.BalanceAggregator
	localizer  *ledger.Localizer
	cache      ReportCache
}

// NewReportService creates a new ReportService. The cache is optional.
func NewReportService(accounts ledger.GlAccountRepository, aggregator *ledger.BalanceAggregator, localizer *ledger.Localizer, cache ReportCache) *ReportService {
	if localizer == nil {
		localizer = ledger.NewLocalizer()
	}
	return &ReportService{
		accounts:   accounts,
		aggregator: aggregator,
		localizer:  localizer,
		cache:      cache,
	}
}

// GetBalances returns the balance of one account over [From, Thru)
func (s *ReportService) GetBalances(ctx context.Context, tenantID uuid.UUID, q BalanceQuery) (*BalanceResponse, error) {
	period, err := ledger.NewPeriod(q.From, q.Thru)
	if err != nil {
		return nil, err
	}
	result, err := s.aggregator.GetBalances(ctx, tenantID, q.AccountID, period, ledger.BalanceOptions{
		OrganizationPartyID: strings.TrimSpace(q.OrganizationPartyID),
		IncludeUnposted:     q.IncludeUnposted,
		IncludeChildren:     q.IncludeChildren,
	})
	if err != nil {
		return nil, storageErr("compute account balance", err)
	}
	account, err := s.accounts.FindByID(ctx, tenantID, q.AccountID)
	if err != nil {
		return nil, storageErr("load GL account", err)
	}
	return &BalanceResponse{
		BalanceResult: *result,
		AccountName:   s.localizer.Name(account, s.localizer.Match(q.Language)),
		ClassBalance:  result.ClassEnding(),
	}, nil
}

// GetIncomeStatement returns the income statement of an organization for a period
func (s *ReportService) GetIncomeStatement(ctx context.Context, tenantID uuid.UUID, q ReportQuery) (*ledger.IncomeStatement, error) {
	return cached(s, tenantID, "income-statement", q, func(org string, period ledger.Period, lang string) (*ledger.IncomeStatement, error) {
		balances, namer, err := s.periodBalances(ctx, tenantID, org, period, lang)
		if err != nil {
			return nil, err
		}
		return ledger.BuildIncomeStatement(org, period, lang, balances, namer), nil
	})
}

// GetTrialBalance returns the trial balance of an organization for a period
func (s *ReportService) GetTrialBalance(ctx context.Context, tenantID uuid.UUID, q ReportQuery) (*ledger.TrialBalance, error) {
	return cached(s, tenantID, "trial-balance", q, func(org string, period ledger.Period, lang string) (*ledger.TrialBalance, error) {
		balances, namer, err := s.periodBalances(ctx, tenantID, org, period, lang)
		if err != nil {
			return nil, err
		}
		return ledger.BuildTrialBalance(org, period, lang, balances, namer), nil
	})
}

// GetCashFlowStatement returns the cash movements of an organization for a period
func (s *ReportService) GetCashFlowStatement(ctx context.Context, tenantID uuid.UUID, q ReportQuery) (*ledger.CashFlowStatement, error) {
	return cached(s, tenantID, "cash-flow", q, func(org string, period ledger.Period, lang string) (*ledger.CashFlowStatement, error) {
		balances, namer, err := s.periodBalances(ctx, tenantID, org, period, lang)
		if err != nil {
			return nil, err
		}
		return ledger.BuildCashFlowStatement(org, period, lang, balances, namer), nil
	})
}

// GetBalanceSheet returns the financial position of an organization. Entries
// dated before asOf are included.
func (s *ReportService) GetBalanceSheet(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, asOf time.Time, lang string) (*ledger.BalanceSheet, error) {
	org, err := requireOrganization(organizationPartyID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		return nil, shared.NewValidationError(ledger.CodeInvalidPeriod, "as-of date is required")
	}
	asOf = asOf.UTC()
	lang = s.localizer.Match(lang)
	key := ReportCacheKey(tenantID, "balance-sheet", org, asOf.Format(time.RFC3339), lang)
	generation := s.cacheGeneration(tenantID)
	if v, ok := s.cacheGet(key); ok {
		if bs, ok := v.(*ledger.BalanceSheet); ok {
			return bs.Clone(), nil
		}
	}

	accounts, err := s.accounts.FindAll(ctx, tenantID)
	if err != nil {
		return nil, storageErr("list GL accounts", err)
	}
	balances, err := s.aggregator.BalancesAsOf(ctx, tenantID, org, accounts, asOf)
	if err != nil {
		return nil, storageErr("compute balances", err)
	}
	bs := ledger.BuildBalanceSheet(org, asOf, lang, balances, s.namer(accounts, lang))
	s.cacheSet(tenantID, generation, key, bs)
	return bs.Clone(), nil
}

// cached validates the query, serves a cached report when present and stores a
// freshly built one. Callers always get their own copy.
func cached[R interface{ Clone() R }](s *ReportService, tenantID uuid.UUID, kind string, q ReportQuery, build func(org string, period ledger.Period, lang string) (R, error)) (R, error) {
	var zero R
	org, err := requireOrganization(q.OrganizationPartyID)
	if err != nil {
		return zero, err
	}
	period, err := ledger.NewPeriod(q.From, q.Thru)
	if err != nil {
		return zero, err
	}
	lang := s.localizer.Match(q.Language)

	key := ReportCacheKey(tenantID, kind, org, period.From.Format(time.RFC3339), period.Thru.Format(time.RFC3339), lang)
	generation := s.cacheGeneration(tenantID)
	if v, ok := s.cacheGet(key); ok {
		if report, ok := v.(R); ok {
			return report.Clone(), nil
		}
	}
	report, err := build(org, period, lang)
	if err != nil {
		return zero, err
	}
	s.cacheSet(tenantID, generation, key, report)
	return report.Clone(), nil
}

func (s *ReportService) periodBalances(ctx context.Context, tenantID uuid.UUID, org string, period ledger.Period, lang string) ([]ledger.BalanceResult, ledger.AccountNamer, error) {
	accounts, err := s.accounts.FindAll(ctx, tenantID)
	if err != nil {
		return nil, nil, storageErr("list GL accounts", err)
	}
	balances, err := s.aggregator.GetBalancesForAccounts(ctx, tenantID, accounts, period, ledger.BalanceOptions{OrganizationPartyID: org})
	if err != nil {
		return nil, nil, storageErr("compute balances", err)
	}
	return balances, s.namer(accounts, lang), nil
}

func (s *ReportService) namer(accounts []ledger.GlAccount, lang string) ledger.AccountNamer {
	byID := make(map[uuid.UUID]*ledger.GlAccount, len(accounts))
	for i := range accounts {
		byID[accounts[i].ID] = &accounts[i]
	}
	return func(id uuid.UUID) string {
		return s.localizer.Name(byID[id], lang)
	}
}

func (s *ReportService) cacheGet(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

// cacheGeneration must be read before the report's balances are loaded
func (s *ReportService) cacheGeneration(tenantID uuid.UUID) uint64 {
	if s.cache == nil {
		return 0
	}
	return s.cache.Generation(tenantID)
}

func (s *ReportService) cacheSet(tenantID uuid.UUID, generation uint64, key string, v any) {
	if s.cache != nil {
		s.cache.Set(tenantID, generation, key, v)
	}
}

func requireOrganization(org string) (string, error) {
	org = strings.TrimSpace(org)
	if org == "" {
		return "", shared.NewDomainError("INVALID_ORGANIZATION", "Organization party ID is required")
	}
	return org, nil
}
