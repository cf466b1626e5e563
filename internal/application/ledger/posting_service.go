package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostingService completes (posts) and reverses accounting transactions
type PostingService struct {
	scope     TransactionScope
	locker    PostingLocker
	rounding  valueobject.RoundingMode
	clock     func() time.Time
	publisher shared.EventPublisher
	reports   ReportCache
	recorder  PostingRecorder
	logger    *zap.Logger
}

// PostingOption configures a PostingService
type PostingOption func(*PostingService)

// WithEventPublisher publishes domain events after each commit
func WithEventPublisher(p shared.EventPublisher) PostingOption {
	return func(s *PostingService) { s.publisher = p }
}

// WithReportCache clears the tenant's cached reports after each commit,
// before Complete or Reverse return
func WithReportCache(c ReportCache) PostingOption {
	return func(s *PostingService) { s.reports = c }
}

// WithPostingRecorder reports posting outcomes, typically to metrics
func WithPostingRecorder(r PostingRecorder) PostingOption {
	return func(s *PostingService) { s.recorder = r }
}

// WithPostingClock overrides the time source of posted dates
func WithPostingClock(clock func() time.Time) PostingOption {
	return func(s *PostingService) { s.clock = clock }
}

// WithPostingLogger sets the logger
func WithPostingLogger(l *zap.Logger) PostingOption {
	return func(s *PostingService) { s.logger = l }
}

// NewPostingService creates a new PostingService
func NewPostingService(scope TransactionScope, locker PostingLocker, rounding valueobject.RoundingMode, opts ...PostingOption) *PostingService {
	s := &PostingService{
		scope:    scope,
		locker:   locker,
		rounding: rounding,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complete posts the transaction. Posting runs in one database transaction:
// the header row is locked, the entries are validated and the posted flag,
// date and user are written by a single conditional update. On any error
// nothing is stored.
func (s *PostingService) Complete(ctx context.Context, tenantID, transactionID, userID uuid.UUID) (result *CompleteResult, err error) {
	start := time.Now()
	defer func() { s.record(ctx, tenantID, err, time.Since(start)) }()

	unlock, err := s.lock(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, unlock, transactionID)

	var (
		posted     *ledger.AcctgTrans
		validation *ledger.ValidationResult
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		trans, err := repos.Transactions().FindByIDForUpdate(ctx, tenantID, transactionID)
		if err != nil {
			return storageErr("load accounting transaction", err)
		}
		validation, err = s.poster(repos).Post(ctx, trans, transactionID, userID)
		if err != nil {
			return storageErr("post accounting transaction", err)
		}
		if err := repos.Transactions().MarkPosted(ctx, trans); err != nil {
			return storageErr("store posted state", err)
		}
		posted = trans
		return nil
	})
	if err != nil {
		return nil, storageErr("commit posting", err)
	}

	invalidateReports(s.reports, tenantID)
	s.publish(ctx, posted)
	s.logger.Info("accounting transaction posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transaction_id", posted.ID.String()),
		zap.String("organization_party_id", posted.OrganizationPartyID),
		zap.Int("entries", len(posted.Entries)),
	)
	return &CompleteResult{
		ID:           posted.ID,
		PostedDate:   *posted.PostedDate,
		TotalDebits:  validation.TotalDebits,
		TotalCredits: validation.TotalCredits,
	}, nil
}

// Reverse creates a transaction that offsets a posted one and posts it in the
// same database transaction. A transaction can be reversed once.
func (s *PostingService) Reverse(ctx context.Context, tenantID, transactionID, userID uuid.UUID, req ReverseTransactionRequest) (result *ReverseResult, err error) {
	start := time.Now()
	defer func() { s.record(ctx, tenantID, err, time.Since(start)) }()

	unlock, err := s.lock(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, unlock, transactionID)

	date := s.clock()
	if req.TransactionDate != nil {
		date = *req.TransactionDate
	}

	var original, reversal *ledger.AcctgTrans
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		trans, err := repos.Transactions().FindByIDForUpdate(ctx, tenantID, transactionID)
		if err != nil {
			return storageErr("load accounting transaction", err)
		}
		if trans == nil {
			return ledger.ErrTransactionNotFound(transactionID)
		}
		existing, err := repos.Transactions().FindReversalOf(ctx, tenantID, transactionID)
		if err != nil {
			return storageErr("look up reversal", err)
		}
		if existing != nil {
			return shared.NewConflictError(ledger.CodeAlreadyReversed,
				"accounting transaction "+transactionID.String()+" was already reversed by "+existing.ID.String())
		}

		rev, err := trans.NewReversal(date)
		if err != nil {
			return err
		}
		rev.SetCreatedBy(userID)
		if err := repos.Transactions().Create(ctx, rev); err != nil {
			return storageErr("create reversal", err)
		}
		if _, err := s.poster(repos).Post(ctx, rev, rev.ID, userID); err != nil {
			return storageErr("post reversal", err)
		}
		if err := repos.Transactions().MarkPosted(ctx, rev); err != nil {
			return storageErr("store posted state", err)
		}
		original, reversal = trans, rev
		return nil
	})
	if err != nil {
		return nil, storageErr("commit reversal", err)
	}
	invalidateReports(s.reports, tenantID)

	reversal.AddDomainEvent(ledger.NewAcctgTransReversedEvent(original, reversal))
	s.publish(ctx, reversal)
	return &ReverseResult{
		OriginalID: original.ID,
		Reversal:   ToTransactionResponse(reversal),
	}, nil
}

func (s *PostingService) poster(repos TransactionalRepositories) *ledger.Poster {
	validator := ledger.NewEntryValidator(repos.Accounts(), ledger.WithRoundingMode(s.rounding))
	return ledger.NewPoster(validator, repos.Periods(), ledger.WithClock(s.clock))
}

func (s *PostingService) lock(ctx context.Context, tenantID, transactionID uuid.UUID) (func(context.Context) error, error) {
	unlock, err := s.locker.TryLock(ctx, postingLockKey(tenantID, transactionID))
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			return nil, ledger.ErrPostingInProgress(transactionID)
		}
		return nil, shared.NewPersistenceError("acquire posting lock", err)
	}
	return unlock, nil
}

func (s *PostingService) unlock(ctx context.Context, unlock func(context.Context) error, transactionID uuid.UUID) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to release posting lock",
			zap.String("transaction_id", transactionID.String()),
			zap.Error(err),
		)
	}
}

// publish sends pending events after commit. Delivery failures are logged;
// the posting itself already succeeded.
func (s *PostingService) publish(ctx context.Context, trans *ledger.AcctgTrans) {
	events := trans.GetDomainEvents()
	trans.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish ledger events",
			zap.String("transaction_id", trans.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *PostingService) record(ctx context.Context, tenantID uuid.UUID, err error, d time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordPosting(ctx, tenantID, outcomeOf(err), d)
	}
}
