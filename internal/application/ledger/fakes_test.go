package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testTenant = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testUser   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

const testOrg = "ORG-1"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

var errStorage = errors.New("connection reset by peer")

// memStore is a versioned in-memory ledger shared by the fake repositories.
// Every read returns a copy so callers never alias stored state.
type memStore struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]ledger.GlAccount
	trans     map[uuid.UUID]ledger.AcctgTrans
	periods   map[uuid.UUID]ledger.CustomTimePeriod
	histories []ledger.GlAccountHistory
	failOn    map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[uuid.UUID]ledger.GlAccount),
		trans:    make(map[uuid.UUID]ledger.AcctgTrans),
		periods:  make(map[uuid.UUID]ledger.CustomTimePeriod),
		failOn:   make(map[string]error),
	}
}

func (s *memStore) fail(op string) error {
	return s.failOn[op]
}

func (s *memStore) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(
		&memTransRepo{s}, &memAccountRepo{s}, &memPeriodRepo{s}, &memHistoryRepo{s}, &memLedgerRepo{s},
	)
}

func (s *memStore) storedTrans(id uuid.UUID) ledger.AcctgTrans {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTrans(s.trans[id])
}

func copyAccount(a ledger.GlAccount) ledger.GlAccount {
	names := make(map[string]string, len(a.Names))
	for k, v := range a.Names {
		names[k] = v
	}
	a.Names = names
	return a
}

func copyTrans(t ledger.AcctgTrans) ledger.AcctgTrans {
	t.Entries = append([]ledger.AcctgTransEntry(nil), t.Entries...)
	t.ClearDomainEvents()
	return t
}

func copyPeriod(p ledger.CustomTimePeriod) ledger.CustomTimePeriod {
	p.ClearDomainEvents()
	return p
}

func concurrentModification(id uuid.UUID) error {
	return shared.NewConflictError(ledger.CodeConcurrentModification, "record "+id.String()+" was modified concurrently")
}

// memAccountRepo implements ledger.GlAccountRepository
type memAccountRepo struct{ s *memStore }

func (r *memAccountRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*ledger.GlAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.find"); err != nil {
		return nil, err
	}
	a, ok := r.s.accounts[id]
	if !ok || a.TenantID != tenantID {
		return nil, nil
	}
	c := copyAccount(a)
	return &c, nil
}

func (r *memAccountRepo) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*ledger.GlAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.find"); err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*ledger.GlAccount, len(ids))
	for _, id := range ids {
		if a, ok := r.s.accounts[id]; ok && a.TenantID == tenantID {
			c := copyAccount(a)
			out[id] = &c
		}
	}
	return out, nil
}

func (r *memAccountRepo) FindByCode(_ context.Context, tenantID uuid.UUID, code string) (*ledger.GlAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.TenantID == tenantID && a.Code == code {
			c := copyAccount(a)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) FindAll(_ context.Context, tenantID uuid.UUID) ([]ledger.GlAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.find"); err != nil {
		return nil, err
	}
	out := make([]ledger.GlAccount, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		if a.TenantID == tenantID {
			out = append(out, copyAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memAccountRepo) FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]ledger.GlAccount, error) {
	all, err := r.FindAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.GlAccount, 0)
	for _, a := range all {
		if a.ParentID != nil && *a.ParentID == parentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) Save(_ context.Context, account *ledger.GlAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.save"); err != nil {
		return err
	}
	r.s.accounts[account.ID] = copyAccount(*account)
	return nil
}

// memTransRepo implements ledger.AcctgTransRepository with the version rule
// of the database repository
type memTransRepo struct{ s *memStore }

func (r *memTransRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*ledger.AcctgTrans, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("trans.find"); err != nil {
		return nil, err
	}
	t, ok := r.s.trans[id]
	if !ok || t.TenantID != tenantID {
		return nil, nil
	}
	c := copyTrans(t)
	return &c, nil
}

func (r *memTransRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AcctgTrans, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *memTransRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter ledger.AcctgTransFilter) ([]ledger.AcctgTrans, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matched := make([]ledger.AcctgTrans, 0)
	for _, t := range r.s.trans {
		if t.TenantID != tenantID {
			continue
		}
		if filter.OrganizationPartyID != "" && t.OrganizationPartyID != filter.OrganizationPartyID {
			continue
		}
		if filter.TransType != "" && t.TransType != filter.TransType {
			continue
		}
		if filter.IsPosted != nil && t.IsPosted != *filter.IsPosted {
			continue
		}
		matched = append(matched, copyTrans(t))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].TransactionDate.Before(matched[j].TransactionDate) })
	total := int64(len(matched))
	start := filter.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memTransRepo) FindReversalOf(_ context.Context, tenantID, originalID uuid.UUID) (*ledger.AcctgTrans, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.trans {
		if t.TenantID == tenantID && t.ReversalOfID != nil && *t.ReversalOfID == originalID {
			c := copyTrans(t)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memTransRepo) Create(_ context.Context, trans *ledger.AcctgTrans) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("trans.create"); err != nil {
		return err
	}
	if _, ok := r.s.trans[trans.ID]; ok {
		return errors.New("duplicate key")
	}
	r.s.trans[trans.ID] = copyTrans(*trans)
	return nil
}

func (r *memTransRepo) SaveDraft(_ context.Context, trans *ledger.AcctgTrans) error {
	return r.update(trans, "trans.save")
}

func (r *memTransRepo) MarkPosted(_ context.Context, trans *ledger.AcctgTrans) error {
	return r.update(trans, "trans.mark_posted")
}

func (r *memTransRepo) update(trans *ledger.AcctgTrans, op string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(op); err != nil {
		return err
	}
	stored, ok := r.s.trans[trans.ID]
	if !ok || stored.IsPosted || stored.Version != trans.Version-1 {
		return concurrentModification(trans.ID)
	}
	r.s.trans[trans.ID] = copyTrans(*trans)
	return nil
}

func (r *memTransRepo) CountUnposted(_ context.Context, tenantID uuid.UUID, org string, thru time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.trans {
		if t.TenantID == tenantID && t.OrganizationPartyID == org && !t.IsPosted && t.TransactionDate.Before(thru) {
			n++
		}
	}
	return n, nil
}

// memPeriodRepo implements ledger.TimePeriodRepository
type memPeriodRepo struct{ s *memStore }

func (r *memPeriodRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*ledger.CustomTimePeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.periods[id]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	c := copyPeriod(p)
	return &c, nil
}

func (r *memPeriodRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.CustomTimePeriod, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *memPeriodRepo) FindAll(_ context.Context, tenantID uuid.UUID, org string) ([]ledger.CustomTimePeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]ledger.CustomTimePeriod, 0)
	for _, p := range r.s.periods {
		if p.TenantID == tenantID && (org == "" || p.OrganizationPartyID == org) {
			out = append(out, copyPeriod(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromDate.Before(out[j].FromDate) })
	return out, nil
}

func (r *memPeriodRepo) FindLastClosed(_ context.Context, tenantID uuid.UUID, org string, before time.Time) (*ledger.CustomTimePeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *ledger.CustomTimePeriod
	for _, p := range r.s.periods {
		if !p.IsClosed || p.TenantID != tenantID || p.OrganizationPartyID != org {
			continue
		}
		if !before.IsZero() && p.ThruDate.After(before) {
			continue
		}
		if best == nil || p.ThruDate.After(best.ThruDate) {
			c := copyPeriod(p)
			best = &c
		}
	}
	return best, nil
}

func (r *memPeriodRepo) Save(_ context.Context, period *ledger.CustomTimePeriod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.periods[period.ID] = copyPeriod(*period)
	return nil
}

func (r *memPeriodRepo) SaveWithLock(_ context.Context, period *ledger.CustomTimePeriod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.periods[period.ID]
	if !ok || stored.Version != period.Version-1 {
		return concurrentModification(period.ID)
	}
	r.s.periods[period.ID] = copyPeriod(*period)
	return nil
}

// memHistoryRepo implements ledger.GlAccountHistoryRepository
type memHistoryRepo struct{ s *memStore }

func (r *memHistoryRepo) FindByPeriod(_ context.Context, tenantID, periodID uuid.UUID) ([]ledger.GlAccountHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []ledger.GlAccountHistory
	for _, h := range r.s.histories {
		if h.TenantID == tenantID && h.CustomTimePeriodID == periodID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memHistoryRepo) SaveAll(_ context.Context, rows []ledger.GlAccountHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("histories.save"); err != nil {
		return err
	}
	r.s.histories = append(r.s.histories, rows...)
	return nil
}

// memLedgerRepo sums the entries of stored transactions
type memLedgerRepo struct{ s *memStore }

func (r *memLedgerRepo) SumActivity(_ context.Context, q ledger.ActivityQuery) ([]ledger.AccountActivity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ledger.sum"); err != nil {
		return nil, err
	}
	wanted := make(map[uuid.UUID]bool, len(q.AccountIDs))
	for _, id := range q.AccountIDs {
		wanted[id] = true
	}
	sums := make(map[uuid.UUID]*ledger.AccountActivity)
	for _, t := range r.s.trans {
		if t.TenantID != q.TenantID || t.IsPosted != q.Posted || t.FiscalType != q.FiscalType {
			continue
		}
		if q.OrganizationPartyID != "" && t.OrganizationPartyID != q.OrganizationPartyID {
			continue
		}
		if q.From != nil && t.TransactionDate.Before(*q.From) {
			continue
		}
		if q.Thru != nil && !t.TransactionDate.Before(*q.Thru) {
			continue
		}
		for _, e := range t.Entries {
			if len(wanted) > 0 && !wanted[e.GlAccountID] {
				continue
			}
			sum, ok := sums[e.GlAccountID]
			if !ok {
				sum = &ledger.AccountActivity{GlAccountID: e.GlAccountID, Debits: decimal.Zero, Credits: decimal.Zero}
				sums[e.GlAccountID] = sum
			}
			if !e.Amount.Valid {
				continue
			}
			if e.IsDebit() {
				sum.Debits = sum.Debits.Add(e.Amount.Decimal)
			} else {
				sum.Credits = sum.Credits.Add(e.Amount.Decimal)
			}
		}
	}
	out := make([]ledger.AccountActivity, 0, len(sums))
	for _, sum := range sums {
		out = append(out, *sum)
	}
	return out, nil
}

// keyedLocker is an in-process PostingLocker
type keyedLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{held: make(map[string]bool)}
}

func (l *keyedLocker) TryLock(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held[key] {
		return nil, ErrLockHeld
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// recordingRecorder captures posting outcomes
type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingRecorder) RecordPosting(_ context.Context, _ uuid.UUID, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// fixture seeds a small chart into a store
type fixture struct {
	store   *memStore
	cash    *ledger.GlAccount
	bank    *ledger.GlAccount
	revenue *ledger.GlAccount
	expense *ledger.GlAccount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore()}
	f.cash = f.account(t, "1100", ledger.ClassAsset, ledger.CategoryCash)
	f.bank = f.account(t, "1110", ledger.ClassAsset, ledger.CategoryCash)
	f.revenue = f.account(t, "4100", ledger.ClassRevenue, ledger.CategoryRevenue)
	f.expense = f.account(t, "5300", ledger.ClassExpense, ledger.CategorySGA)
	return f
}

func (f *fixture) account(t *testing.T, code string, class ledger.GlAccountClass, category ledger.GlAccountCategory) *ledger.GlAccount {
	t.Helper()
	a, err := ledger.NewGlAccount(testTenant, code, class, category, "Account "+code)
	require.NoError(t, err)
	f.store.accounts[a.ID] = copyAccount(*a)
	return a
}

type line struct {
	account *ledger.GlAccount
	flag    ledger.DebitCreditFlag
	amount  string
}

// draft stores a draft transaction dated date with the given lines
func (f *fixture) draft(t *testing.T, date time.Time, lines ...line) *ledger.AcctgTrans {
	t.Helper()
	tr, err := ledger.NewAcctgTrans(testTenant, testOrg, ledger.TransTypeManual, ledger.FiscalTypeActual, date, valueobject.USD)
	require.NoError(t, err)
	for _, l := range lines {
		in := ledger.EntryInput{GlAccountID: l.account.ID, DebitCreditFlag: l.flag}
		if l.amount != "" {
			in.Amount = decimal.NewNullDecimal(dec(l.amount))
		}
		_, err := tr.AddEntry(in)
		require.NoError(t, err)
	}
	require.NoError(t, (&memTransRepo{f.store}).Create(context.Background(), tr))
	return tr
}

// closedPeriod stores a closed period of the test organization
func (f *fixture) closedPeriod(t *testing.T, from, thru time.Time) *ledger.CustomTimePeriod {
	t.Helper()
	p, err := ledger.NewCustomTimePeriod(testTenant, testOrg, ledger.PeriodTypeFiscalMonth, "", from, thru)
	require.NoError(t, err)
	require.NoError(t, p.Close(thru, 0))
	f.store.periods[p.ID] = copyPeriod(*p)
	return p
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
