package router

import (
	"net/http"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles the HTTP handlers the ledger API is served by
type Handlers struct {
	Accounts     *handler.AccountHandler
	Transactions *handler.TransactionHandler
	Periods      *handler.PeriodHandler
	Reports      *handler.ReportHandler
	System       *handler.SystemHandler
}

// EngineConfig configures the global middleware chain
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	MaxBodyBytes   int64
	// RateLimiter is optional; nil disables rate limiting
	RateLimiter    *middleware.RateLimiter
	TrustedProxies []string
}

// LedgerRoutes builds the /ledger route table. Every route requires a tenant.
func LedgerRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("ledger", "/ledger").Use(middleware.RequireTenant())

	g.Group("accounts", "/accounts").
		POST("", h.Accounts.Create).
		GET("", h.Accounts.List).
		GET("/tree", h.Accounts.Tree).
		POST("/seed", h.Accounts.SeedDefaultChart).
		GET("/:id", h.Accounts.Get).
		GET("/:id/balances", h.Accounts.Balances).
		PUT("/:id/names/:lang", h.Accounts.SetName).
		PUT("/:id/parent", h.Accounts.SetParent).
		PUT("/:id/active", h.Accounts.SetActive)

	g.Group("transactions", "/transactions").
		POST("", h.Transactions.Create).
		GET("", h.Transactions.List).
		GET("/:id", h.Transactions.Get).
		PUT("/:id", h.Transactions.UpdateHeader).
		POST("/:id/entries", h.Transactions.AddEntry).
		PUT("/:id/entries/:seq", h.Transactions.UpdateEntry).
		DELETE("/:id/entries/:seq", h.Transactions.RemoveEntry).
		POST("/:id/validate", h.Transactions.Validate).
		POST("/:id/complete", h.Transactions.Complete).
		POST("/:id/reverse", h.Transactions.Reverse)

	g.Group("periods", "/periods").
		POST("", h.Periods.Create).
		GET("", h.Periods.List).
		GET("/last-closed", h.Periods.LastClosed).
		GET("/:id", h.Periods.Get).
		POST("/:id/close", h.Periods.Close)

	g.Group("reports", "/reports").
		GET("/income-statement", h.Reports.IncomeStatement).
		GET("/trial-balance", h.Reports.TrialBalance).
		GET("/cash-flow", h.Reports.CashFlow).
		GET("/balance-sheet", h.Reports.BalanceSheet)

	return g
}

// SystemRoutes builds the /system route table
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.Info)
}

// New creates the gin engine with the global middleware chain and all routes
func New(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.HandleMethodNotAllowed = true

	engine.Use(logger.Recovery(log), middleware.RequestScope())
	if cfg.TracingEnabled {
		engine.Use(middleware.Tracing(cfg.ServiceName), middleware.SpanAttributes())
	}
	engine.Use(
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.BodyLimit(cfg.MaxBodyBytes),
	)
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	engine.GET("/health", h.System.Health)
	engine.NoRoute(notFound)
	engine.NoMethod(methodNotAllowed)

	NewRouter(engine).
		Register(LedgerRoutes(h)).
		Register(SystemRoutes(h.System)).
		Setup()

	return engine, nil
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse(&dto.ErrorInfo{
		Code:      dto.ErrCodeRouteNotFound,
		Message:   "Route not found",
		RequestID: middleware.GetRequestID(c),
	}))
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponse(&dto.ErrorInfo{
		Code:      dto.ErrCodeMethodNotAllowed,
		Message:   "Method not allowed",
		RequestID: middleware.GetRequestID(c),
	}))
}
