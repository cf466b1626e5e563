// Package middleware provides HTTP middleware for the ledger API.
package middleware

import (
	"net/http"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header names carrying the request scope
const (
	HeaderRequestID = "X-Request-ID"
	HeaderTenantID  = "X-Tenant-ID"
	HeaderUserID    = "X-User-ID"
)

// Gin context keys
const (
	RequestIDKey = "request_id"
	TenantIDKey  = "tenant_id"
	UserIDKey    = "user_id"
)

// MaxRequestIDLength bounds client supplied request ids
const MaxRequestIDLength = 128

// RequestScope resolves the request id, tenant and user of a request, stores
// them on the gin context and in the request context for logging. Tenant and
// user headers that are not UUIDs are ignored here; RequireTenant rejects them.
func RequestScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)

		scope := logger.RequestScope{RequestID: requestID}
		if tenantID, err := uuid.Parse(c.GetHeader(HeaderTenantID)); err == nil && tenantID != uuid.Nil {
			c.Set(TenantIDKey, tenantID)
			scope.TenantID = tenantID.String()
		}
		if userID, err := uuid.Parse(c.GetHeader(HeaderUserID)); err == nil {
			c.Set(UserIDKey, userID)
			scope.UserID = userID.String()
		}

		c.Request = c.Request.WithContext(logger.WithScope(c.Request.Context(), scope))
		c.Next()
	}
}

// RequireTenant aborts requests without a valid X-Tenant-ID header
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(TenantIDKey); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(&dto.ErrorInfo{
				Code:      dto.ErrCodeBadRequest,
				Message:   "X-Tenant-ID header must be a UUID",
				RequestID: GetRequestID(c),
			}))
			return
		}
		c.Next()
	}
}

// GetRequestID returns the request id set by RequestScope
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// GetTenantID returns the tenant set by RequestScope, or uuid.Nil
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetUserID returns the acting user, or uuid.Nil for anonymous requests
func GetUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// Secure adds the standard security headers to every response
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}
