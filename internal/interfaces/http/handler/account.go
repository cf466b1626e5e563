package handler

import (
	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles chart of accounts endpoints
type AccountHandler struct {
	BaseHandler
	accounts *appledger.AccountService
	reports  *appledger.ReportService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *appledger.AccountService, reports *appledger.ReportService) *AccountHandler {
	return &AccountHandler{accounts: accounts, reports: reports}
}

// Create handles POST /accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req appledger.CreateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Name = sanitizeText(req.Name)
	for lang, name := range req.Names {
		req.Names[lang] = sanitizeText(name)
	}

	account, err := h.accounts.Create(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// List handles GET /accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context(), middleware.GetTenantID(c), language(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// Tree handles GET /accounts/tree
func (h *AccountHandler) Tree(c *gin.Context) {
	tree, err := h.accounts.GetTree(c.Request.Context(), middleware.GetTenantID(c), language(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// Get handles GET /accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.GetByID(c.Request.Context(), middleware.GetTenantID(c), id, language(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// SetName handles PUT /accounts/:id/names/:lang
func (h *AccountHandler) SetName(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.SetAccountNameRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Name = sanitizeText(req.Name)

	account, err := h.accounts.SetName(c.Request.Context(), middleware.GetTenantID(c), id, c.Param("lang"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// SetParent handles PUT /accounts/:id/parent
func (h *AccountHandler) SetParent(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.SetAccountParentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.SetParent(c.Request.Context(), middleware.GetTenantID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// SetActive handles PUT /accounts/:id/active
func (h *AccountHandler) SetActive(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.SetAccountActiveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.SetActive(c.Request.Context(), middleware.GetTenantID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// SeedDefaultChart handles POST /accounts/seed. Accounts that already exist are skipped.
func (h *AccountHandler) SeedDefaultChart(c *gin.Context) {
	result, err := h.accounts.SeedChart(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), ledger.DefaultChart)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Balances handles GET /accounts/:id/balances?from&thru&org&include_unposted&include_children.
// The period is [from, thru).
func (h *AccountHandler) Balances(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	q, ok := h.balanceQuery(c, id)
	if !ok {
		return
	}
	balance, err := h.reports.GetBalances(c.Request.Context(), middleware.GetTenantID(c), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

func (h *AccountHandler) balanceQuery(c *gin.Context, id uuid.UUID) (appledger.BalanceQuery, bool) {
	q := appledger.BalanceQuery{
		AccountID:           id,
		OrganizationPartyID: c.Query("org"),
		Language:            language(c),
	}
	var ok bool
	if q.From, ok = h.queryTime(c, "from"); !ok {
		return q, false
	}
	if q.Thru, ok = h.queryTime(c, "thru"); !ok {
		return q, false
	}
	if q.IncludeUnposted, ok = h.queryBool(c, "include_unposted"); !ok {
		return q, false
	}
	if q.IncludeChildren, ok = h.queryBool(c, "include_children"); !ok {
		return q, false
	}
	return q, true
}
