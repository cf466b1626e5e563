package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// dateLayout is accepted for date-only query parameters next to RFC 3339
const dateLayout = "2006-01-02"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.Set(middleware.ErrorCodeKey, dto.ErrCodeBadRequest)
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(&dto.ErrorInfo{
		Code:      dto.ErrCodeBadRequest,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	}))
}

// HandleError converts a service error to an HTTP response. Domain errors keep
// their code; persistence and unexpected errors are logged with their cause.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, info := dto.ErrorFrom(err, middleware.GetRequestID(c))
	c.Set(middleware.ErrorCodeKey, info.Code)

	switch kind := shared.KindOf(err); kind {
	case shared.KindPersistence, shared.KindInternal:
		logger.L(c.Request.Context()).Error("Request failed", zap.String("kind", string(kind)), zap.Error(err))
	default:
		logger.L(c.Request.Context()).Debug("Request rejected", zap.String("code", info.Code), zap.Error(err))
	}
	c.JSON(status, dto.NewErrorResponse(info))
}

// bindJSON binds the request body, writing a 400 response on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery binds query parameters, writing a 400 response on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// pathUUID parses a UUID path parameter, writing a 400 response on failure
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryTime parses a date or RFC 3339 query parameter. Missing values are zero.
func (h *BaseHandler) queryTime(c *gin.Context, name string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, true
	}
	t, err := parseTime(raw)
	if err != nil {
		h.BadRequest(c, "invalid "+name+": use YYYY-MM-DD or RFC 3339")
		return time.Time{}, false
	}
	return t, true
}

// queryBool parses an optional boolean query parameter
func (h *BaseHandler) queryBool(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		h.BadRequest(c, "invalid "+name+": must be true or false")
		return false, false
	}
	return v, true
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// language returns the lang query parameter, falling back to Accept-Language
func language(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return c.GetHeader("Accept-Language")
}
