package handler

import (
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// PeriodHandler handles custom time period endpoints
type PeriodHandler struct {
	BaseHandler
	periods *appledger.PeriodService
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periods *appledger.PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// Create handles POST /periods
func (h *PeriodHandler) Create(c *gin.Context) {
	var req appledger.CreatePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.PeriodName = sanitizeText(req.PeriodName)

	period, err := h.periods.Create(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, period)
}

// List handles GET /periods?org=
func (h *PeriodHandler) List(c *gin.Context) {
	periods, err := h.periods.List(c.Request.Context(), middleware.GetTenantID(c), c.Query("org"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, periods)
}

// Get handles GET /periods/:id
func (h *PeriodHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	period, err := h.periods.GetByID(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// LastClosed handles GET /periods/last-closed?org=&before=. Before defaults to now.
func (h *PeriodHandler) LastClosed(c *gin.Context) {
	before, ok := h.queryTime(c, "before")
	if !ok {
		return
	}
	if before.IsZero() {
		before = time.Now().UTC()
	}
	period, err := h.periods.LastClosed(c.Request.Context(), middleware.GetTenantID(c), c.Query("org"), before)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Close handles POST /periods/:id/close
func (h *PeriodHandler) Close(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.periods.Close(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
