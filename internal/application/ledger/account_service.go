package ledger

import (
	"context"
	"sort"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountService manages the chart of accounts
type AccountService struct {
	accounts  ledger.GlAccountRepository
	localizer *ledger.Localizer
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts ledger.GlAccountRepository, localizer *ledger.Localizer) *AccountService {
	if localizer == nil {
		localizer = ledger.NewLocalizer()
	}
	return &AccountService{
		accounts:  accounts,
		localizer: localizer,
	}
}

// Localizer returns the localizer used for account names
func (s *AccountService) Localizer() *ledger.Localizer {
	return s.localizer
}

// Create creates a new GL account
func (s *AccountService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateAccountRequest) (*AccountResponse, error) {
	existing, err := s.accounts.FindByCode(ctx, tenantID, req.Code)
	if err != nil {
		return nil, storageErr("look up GL account code", err)
	}
	if existing != nil {
		return nil, shared.NewConflictError(ledger.CodeDuplicateAccountCode, "GL account code "+req.Code+" already exists")
	}

	account, err := ledger.NewGlAccount(tenantID, req.Code, ledger.GlAccountClass(req.Class), ledger.GlAccountCategory(req.Category), req.Name)
	if err != nil {
		return nil, err
	}
	account.SetCreatedBy(userID)

	for lang, name := range req.Names {
		code, err := s.localizer.Canonical(lang)
		if err != nil {
			return nil, err
		}
		if err := account.SetName(code, name); err != nil {
			return nil, err
		}
	}
	if req.ParentID != nil {
		parent, err := s.load(ctx, tenantID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if err := account.SetParent(parent); err != nil {
			return nil, err
		}
	}
	account.Version = 1

	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, storageErr("save GL account", err)
	}
	resp := ToAccountResponse(account, s.localizer, ledger.DefaultLanguage)
	return &resp, nil
}

// GetByID returns one account named in lang
func (s *AccountService) GetByID(ctx context.Context, tenantID, id uuid.UUID, lang string) (*AccountResponse, error) {
	account, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account, s.localizer, s.localizer.Match(lang))
	return &resp, nil
}

// List returns every account of the tenant ordered by code
func (s *AccountService) List(ctx context.Context, tenantID uuid.UUID, lang string) ([]AccountResponse, error) {
	accounts, err := s.accounts.FindAll(ctx, tenantID)
	if err != nil {
		return nil, storageErr("list GL accounts", err)
	}
	lang = s.localizer.Match(lang)
	out := make([]AccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToAccountResponse(&accounts[i], s.localizer, lang)
	}
	return out, nil
}

// GetTree returns the chart as a forest of root accounts. Accounts whose parent
// is missing are shown as roots.
func (s *AccountService) GetTree(ctx context.Context, tenantID uuid.UUID, lang string) ([]*AccountTreeNode, error) {
	accounts, err := s.accounts.FindAll(ctx, tenantID)
	if err != nil {
		return nil, storageErr("list GL accounts", err)
	}
	lang = s.localizer.Match(lang)

	nodes := make(map[uuid.UUID]*AccountTreeNode, len(accounts))
	for i := range accounts {
		nodes[accounts[i].ID] = &AccountTreeNode{
			AccountResponse: ToAccountResponse(&accounts[i], s.localizer, lang),
			Children:        make([]*AccountTreeNode, 0),
		}
	}
	roots := make([]*AccountTreeNode, 0)
	for i := range accounts {
		node := nodes[accounts[i].ID]
		if pid := accounts[i].ParentID; pid != nil {
			if parent, ok := nodes[*pid]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	sortTree(roots)
	return roots, nil
}

func sortTree(nodes []*AccountTreeNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Code < nodes[j].Code })
	for _, n := range nodes {
		sortTree(n.Children)
	}
}

// SetName sets the display name of an account in one supported language
func (s *AccountService) SetName(ctx context.Context, tenantID, id uuid.UUID, lang string, req SetAccountNameRequest) (*AccountResponse, error) {
	code, err := s.localizer.Canonical(lang)
	if err != nil {
		return nil, err
	}
	account, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := account.SetName(code, req.Name); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, storageErr("save GL account", err)
	}
	resp := ToAccountResponse(account, s.localizer, code)
	return &resp, nil
}

// SetParent moves an account under another one. Moving an account below one of
// its own descendants is rejected.
func (s *AccountService) SetParent(ctx context.Context, tenantID, id uuid.UUID, req SetAccountParentRequest) (*AccountResponse, error) {
	account, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	var parent *ledger.GlAccount
	if req.ParentID != nil {
		parent, err = s.load(ctx, tenantID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		all, err := s.accounts.FindAll(ctx, tenantID)
		if err != nil {
			return nil, storageErr("list GL accounts", err)
		}
		for _, d := range ledger.Subtree(all, account.ID) {
			if d.ID == parent.ID && d.ID != account.ID {
				return nil, shared.NewValidationError(ledger.CodeInvalidAccountParent,
					"GL account "+parent.Code+" is a descendant of "+account.Code)
			}
		}
	}
	if err := account.SetParent(parent); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, storageErr("save GL account", err)
	}
	resp := ToAccountResponse(account, s.localizer, ledger.DefaultLanguage)
	return &resp, nil
}

// SetActive activates or deactivates an account. Inactive accounts cannot
// receive postings but keep their history.
func (s *AccountService) SetActive(ctx context.Context, tenantID, id uuid.UUID, req SetAccountActiveRequest) (*AccountResponse, error) {
	account, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Active {
		account.Activate()
	} else {
		account.Deactivate()
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, storageErr("save GL account", err)
	}
	resp := ToAccountResponse(account, s.localizer, ledger.DefaultLanguage)
	return &resp, nil
}

// SeedChart creates the accounts of a chart that do not exist yet.
// Existing codes are skipped so the seed can be rerun.
func (s *AccountService) SeedChart(ctx context.Context, tenantID, userID uuid.UUID, entries []ledger.ChartEntry) (*SeedChartResult, error) {
	accounts, err := ledger.BuildChart(tenantID, entries)
	if err != nil {
		return nil, err
	}
	existing, err := s.accounts.FindAll(ctx, tenantID)
	if err != nil {
		return nil, storageErr("list GL accounts", err)
	}
	byCode := make(map[string]uuid.UUID, len(existing))
	for _, a := range existing {
		byCode[a.Code] = a.ID
	}
	// Built accounts got fresh ids; re-point parents at accounts that already exist
	remap := make(map[uuid.UUID]uuid.UUID)
	for _, a := range accounts {
		if id, ok := byCode[a.Code]; ok {
			remap[a.ID] = id
		}
	}

	result := &SeedChartResult{}
	for _, a := range accounts {
		if _, ok := byCode[a.Code]; ok {
			result.Skipped++
			continue
		}
		if a.ParentID != nil {
			if id, ok := remap[*a.ParentID]; ok {
				a.ParentID = &id
			}
		}
		a.SetCreatedBy(userID)
		if err := s.accounts.Save(ctx, a); err != nil {
			return nil, storageErr("save GL account", err)
		}
		result.Created++
	}
	return result, nil
}

func (s *AccountService) load(ctx context.Context, tenantID, id uuid.UUID) (*ledger.GlAccount, error) {
	account, err := s.accounts.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, storageErr("load GL account", err)
	}
	if account == nil {
		return nil, ledger.ErrAccountNotFound(id)
	}
	return account, nil
}
