package handler

import (
	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ReportHandler serves the financial statements
type ReportHandler struct {
	BaseHandler
	reports *appledger.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *appledger.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// reportQuery reads org, from, thru and the report language
func (h *ReportHandler) reportQuery(c *gin.Context) (appledger.ReportQuery, bool) {
	q := appledger.ReportQuery{
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
	return q, true
}

// IncomeStatement handles GET /reports/income-statement
func (h *ReportHandler) IncomeStatement(c *gin.Context) {
	q, ok := h.reportQuery(c)
	if !ok {
		return
	}
	report, err := h.reports.GetIncomeStatement(c.Request.Context(), middleware.GetTenantID(c), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// TrialBalance handles GET /reports/trial-balance
func (h *ReportHandler) TrialBalance(c *gin.Context) {
	q, ok := h.reportQuery(c)
	if !ok {
		return
	}
	report, err := h.reports.GetTrialBalance(c.Request.Context(), middleware.GetTenantID(c), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// CashFlow handles GET /reports/cash-flow
func (h *ReportHandler) CashFlow(c *gin.Context) {
	q, ok := h.reportQuery(c)
	if !ok {
		return
	}
	report, err := h.reports.GetCashFlowStatement(c.Request.Context(), middleware.GetTenantID(c), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// BalanceSheet handles GET /reports/balance-sheet?org=&as_of=
func (h *ReportHandler) BalanceSheet(c *gin.Context) {
	asOf, ok := h.queryTime(c, "as_of")
	if !ok {
		return
	}
	report, err := h.reports.GetBalanceSheet(c.Request.Context(), middleware.GetTenantID(c), c.Query("org"), asOf, language(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
