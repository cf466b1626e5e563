package handler

import (
	"net/http"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// TransactionHandler handles accounting transaction endpoints: drafting,
// validation, posting and reversal
type TransactionHandler struct {
	BaseHandler
	transactions *appledger.TransactionService
	posting      *appledger.PostingService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactions *appledger.TransactionService, posting *appledger.PostingService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, posting: posting}
}

// Create handles POST /transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var req appledger.CreateTransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Description = sanitizeText(req.Description)
	for i := range req.Entries {
		req.Entries[i].Description = sanitizeText(req.Entries[i].Description)
	}

	trans, err := h.transactions.Create(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, trans)
}

// List handles GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	var filter appledger.TransactionListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.transactions.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get handles GET /transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	trans, err := h.transactions.GetByID(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trans)
}

// UpdateHeader handles PUT /transactions/:id
func (h *TransactionHandler) UpdateHeader(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.UpdateTransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Description = sanitizeText(req.Description)

	trans, err := h.transactions.UpdateHeader(c.Request.Context(), middleware.GetTenantID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trans)
}

// AddEntry handles POST /transactions/:id/entries
func (h *TransactionHandler) AddEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.EntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Description = sanitizeText(req.Description)

	trans, err := h.transactions.AddEntry(c.Request.Context(), middleware.GetTenantID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, trans)
}

// UpdateEntry handles PUT /transactions/:id/entries/:seq
func (h *TransactionHandler) UpdateEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.EntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Description = sanitizeText(req.Description)

	trans, err := h.transactions.UpdateEntry(c.Request.Context(), middleware.GetTenantID(c), id, c.Param("seq"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trans)
}

// RemoveEntry handles DELETE /transactions/:id/entries/:seq
func (h *TransactionHandler) RemoveEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	trans, err := h.transactions.RemoveEntry(c.Request.Context(), middleware.GetTenantID(c), id, c.Param("seq"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trans)
}

// Validate handles POST /transactions/:id/validate. A failed check answers 422
// with the computed totals in data next to the error.
func (h *TransactionHandler) Validate(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.transactions.Validate(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		if result != nil && shared.IsValidation(err) {
			status, info := dto.ErrorFrom(err, middleware.GetRequestID(c))
			c.Set(middleware.ErrorCodeKey, info.Code)
			c.JSON(status, dto.Response{Success: false, Data: result, Error: info})
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Complete handles POST /transactions/:id/complete
func (h *TransactionHandler) Complete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.posting.Complete(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reverse handles POST /transactions/:id/reverse. The body is optional.
func (h *TransactionHandler) Reverse(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.ReverseTransactionRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	result, err := h.posting.Reverse(c.Request.Context(), middleware.GetTenantID(c), id, middleware.GetUserID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(result))
}
