package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PeriodService manages fiscal periods and their closing
type PeriodService struct {
	scope     TransactionScope
	periods   ledger.TimePeriodRepository
	clock     func() time.Time
	publisher shared.EventPublisher
	reports   ReportCache
	logger    *zap.Logger
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(scope TransactionScope, periods ledger.TimePeriodRepository, publisher shared.EventPublisher, logger *zap.Logger) *PeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{
		scope:     scope,
		periods:   periods,
		clock:     func() time.Time { return time.Now().UTC() },
		publisher: publisher,
		logger:    logger,
	}
}

// SetReportCache sets the report cache cleared when a period closes
func (s *PeriodService) SetReportCache(c ReportCache) {
	s.reports = c
}

// Create creates an open period. Periods of the same type and organization may not overlap.
func (s *PeriodService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreatePeriodRequest) (*PeriodResponse, error) {
	period, err := ledger.NewCustomTimePeriod(tenantID, req.OrganizationPartyID, ledger.PeriodType(req.PeriodType), req.PeriodName, req.FromDate, req.ThruDate)
	if err != nil {
		return nil, err
	}
	period.SetCreatedBy(userID)

	existing, err := s.periods.FindAll(ctx, tenantID, period.OrganizationPartyID)
	if err != nil {
		return nil, storageErr("list time periods", err)
	}
	for _, p := range existing {
		if p.PeriodType != period.PeriodType {
			continue
		}
		if period.FromDate.Before(p.ThruDate) && p.FromDate.Before(period.ThruDate) {
			return nil, shared.NewValidationError(ledger.CodeInvalidPeriod,
				fmt.Sprintf("period %s overlaps existing period %s", period.Period(), p.PeriodName))
		}
	}

	if err := s.periods.Save(ctx, period); err != nil {
		return nil, storageErr("save time period", err)
	}
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// GetByID returns one period
func (s *PeriodService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*PeriodResponse, error) {
	period, err := s.periods.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, storageErr("load time period", err)
	}
	if period == nil {
		return nil, ledger.ErrPeriodNotFound(id)
	}
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// List returns the periods of an organization ordered by start date. An empty
// organization lists every period of the tenant.
func (s *PeriodService) List(ctx context.Context, tenantID uuid.UUID, organizationPartyID string) ([]PeriodResponse, error) {
	periods, err := s.periods.FindAll(ctx, tenantID, organizationPartyID)
	if err != nil {
		return nil, storageErr("list time periods", err)
	}
	out := make([]PeriodResponse, len(periods))
	for i := range periods {
		out[i] = ToPeriodResponse(&periods[i])
	}
	return out, nil
}

// LastClosed returns the latest closed period of the organization ending no
// later than before, or nil. A zero before means no bound.
func (s *PeriodService) LastClosed(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, before time.Time) (*PeriodResponse, error) {
	period, err := s.periods.FindLastClosed(ctx, tenantID, organizationPartyID, before)
	if err != nil {
		return nil, storageErr("load last closed period", err)
	}
	if period == nil {
		return nil, nil
	}
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// Close closes a period. Every transaction of the organization dated before
// the period end must be posted. A snapshot of each account with a balance or
// movement is written so later balances start from it.
func (s *PeriodService) Close(ctx context.Context, tenantID, id uuid.UUID) (*ClosePeriodResult, error) {
	var (
		closed    *ledger.CustomTimePeriod
		snapshots int
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		period, err := repos.Periods().FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return storageErr("load time period", err)
		}
		if period == nil {
			return ledger.ErrPeriodNotFound(id)
		}
		if period.IsClosed {
			return shared.NewConflictError(ledger.CodePeriodAlreadyClosed, "time period "+period.PeriodName+" is already closed")
		}

		unposted, err := repos.Transactions().CountUnposted(ctx, tenantID, period.OrganizationPartyID, period.ThruDate)
		if err != nil {
			return storageErr("count unposted transactions", err)
		}
		if unposted > 0 {
			return shared.NewValidationError(ledger.CodeUnpostedTransactions,
				fmt.Sprintf("%d unposted transactions are dated before %s", unposted, period.ThruDate.Format("2006-01-02")))
		}

		accounts, err := repos.Accounts().FindAll(ctx, tenantID)
		if err != nil {
			return storageErr("list GL accounts", err)
		}
		agg := ledger.NewBalanceAggregator(repos.Accounts(), repos.Periods(), repos.Histories(), repos.Ledger())
		balances, err := agg.GetBalancesForAccounts(ctx, tenantID, accounts, period.Period(), ledger.BalanceOptions{
			OrganizationPartyID: period.OrganizationPartyID,
		})
		if err != nil {
			return storageErr("compute closing balances", err)
		}

		now := s.clock()
		rows := make([]ledger.GlAccountHistory, 0, len(balances))
		for _, b := range balances {
			if !b.HasActivity() {
				continue
			}
			rows = append(rows, ledger.GlAccountHistory{
				ID:                  uuid.New(),
				TenantID:            tenantID,
				CustomTimePeriodID:  period.ID,
				GlAccountID:         b.AccountID,
				OrganizationPartyID: period.OrganizationPartyID,
				ThruDate:            period.ThruDate,
				PostedDebits:        b.PostedDebits,
				PostedCredits:       b.PostedCredits,
				EndingBalance:       b.EndingBalance,
				CreatedAt:           now,
			})
		}

		if err := period.Close(now, len(rows)); err != nil {
			return err
		}
		if err := repos.Periods().SaveWithLock(ctx, period); err != nil {
			return storageErr("save time period", err)
		}
		if err := repos.Histories().SaveAll(ctx, rows); err != nil {
			return storageErr("save closing balances", err)
		}
		closed, snapshots = period, len(rows)
		return nil
	})
	if err != nil {
		return nil, storageErr("commit period close", err)
	}
	invalidateReports(s.reports, tenantID)

	events := closed.GetDomainEvents()
	closed.ClearDomainEvents()
	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("failed to publish period closed event", zap.String("period_id", id.String()), zap.Error(err))
		}
	}
	s.logger.Info("time period closed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("period_id", id.String()),
		zap.Int("snapshots", snapshots),
	)
	return &ClosePeriodResult{Period: ToPeriodResponse(closed), Snapshots: snapshots}, nil
}
