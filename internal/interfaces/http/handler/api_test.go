package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const org = "ORG-1"

type api struct {
	t      *testing.T
	engine *gin.Engine
	tenant uuid.UUID
	user   uuid.UUID
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
		Fields  []struct {
			Field string `json:"field"`
			Tag   string `json:"tag"`
		} `json:"fields"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.SetupValidator())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.LedgerModels()...))

	repos, scope := persistence.NewLedgerRepositories(db)
	services := appledger.NewServices(appledger.Dependencies{
		Repositories: repos,
		Scope:        scope,
		Locker:       cache.NewInMemoryPostingLocker(time.Minute),
		Rounding:     valueobject.RoundHalfUp,
		Cache:        cache.NewReportCache(time.Minute),
	})

	engine, err := router.New(router.EngineConfig{}, router.Handlers{
		Accounts:     handler.NewAccountHandler(services.Accounts, services.Reports),
		Transactions: handler.NewTransactionHandler(services.Transactions, services.Posting),
		Periods:      handler.NewPeriodHandler(services.Periods),
		Reports:      handler.NewReportHandler(services.Reports),
		System:       handler.NewSystemHandler(&persistence.Database{DB: db}, "test"),
	})
	require.NoError(t, err)

	return &api{t: t, engine: engine, tenant: uuid.New(), user: uuid.New()}
}

func (a *api) do(method, path string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTenantID, a.tenant.String())
	req.Header.Set(middleware.HeaderUserID, a.user.String())
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// accountIDs seeds the default chart and returns account ids by code
func (a *api) accountIDs() map[string]uuid.UUID {
	a.t.Helper()
	status, _ := a.do(http.MethodPost, "/api/v1/ledger/accounts/seed", nil)
	require.Equal(a.t, http.StatusOK, status)

	status, env := a.do(http.MethodGet, "/api/v1/ledger/accounts", nil)
	require.Equal(a.t, http.StatusOK, status)
	ids := make(map[string]uuid.UUID)
	for _, acc := range decode[[]appledger.AccountResponse](a.t, env) {
		ids[acc.Code] = acc.ID
	}
	return ids
}

func entry(account uuid.UUID, flag, amount string) map[string]any {
	return map[string]any{"gl_account_id": account, "debit_credit_flag": flag, "amount": amount}
}

func (a *api) createTransaction(date string, entries ...map[string]any) uuid.UUID {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/v1/ledger/transactions", map[string]any{
		"organization_party_id": org,
		"trans_type":            "MANUAL",
		"transaction_date":      date,
		"currency_uom_id":       "USD",
		"description":           "<b>Cash sale</b>",
		"entries":               entries,
	})
	require.Equal(a.t, http.StatusCreated, status, "%+v", env.Error)
	return decode[appledger.TransactionResponse](a.t, env).ID
}

func TestAPI_PostAndReport(t *testing.T) {
	a := newAPI(t)
	ids := a.accountIDs()
	cash, sales := ids["1100"], ids["4100"]
	require.NotEqual(t, uuid.Nil, cash)
	require.NotEqual(t, uuid.Nil, sales)

	id := a.createTransaction("2024-01-15T00:00:00Z",
		entry(cash, "D", "100.00"),
		entry(sales, "C", "100.00"),
	)

	t.Run("description is sanitized", func(t *testing.T) {
		status, env := a.do(http.MethodGet, "/api/v1/ledger/transactions/"+id.String(), nil)
		require.Equal(t, http.StatusOK, status)
		trans := decode[appledger.TransactionResponse](t, env)
		assert.Equal(t, "Cash sale", trans.Description)
		assert.Len(t, trans.Entries, 2)
		assert.False(t, trans.IsPosted)
	})

	t.Run("validate reports totals", func(t *testing.T) {
		status, env := a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/validate", nil)
		require.Equal(t, http.StatusOK, status)
		var result struct {
			Balanced    bool            `json:"balanced"`
			TotalDebits decimal.Decimal `json:"total_debits"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.True(t, result.Balanced)
		assert.True(t, result.TotalDebits.Equal(decimal.NewFromInt(100)))
	})

	t.Run("complete posts once", func(t *testing.T) {
		status, env := a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/complete", nil)
		require.Equal(t, http.StatusOK, status, "%+v", env.Error)
		result := decode[appledger.CompleteResult](t, env)
		assert.Equal(t, id, result.ID)

		status, env = a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/complete", nil)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "ALREADY_POSTED", env.Error.Code)
	})

	t.Run("posted transactions are read-only", func(t *testing.T) {
		status, env := a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/entries", entry(cash, "D", "1"))
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "TRANSACTION_POSTED", env.Error.Code)
	})

	t.Run("account balance", func(t *testing.T) {
		status, env := a.do(http.MethodGet,
			"/api/v1/ledger/accounts/"+cash.String()+"/balances?from=2024-01-01&thru=2024-02-01&org="+org, nil)
		require.Equal(t, http.StatusOK, status, "%+v", env.Error)
		var balance struct {
			EndingBalance decimal.Decimal `json:"ending_balance"`
			PostedDebits  decimal.Decimal `json:"posted_debits"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &balance))
		assert.True(t, balance.EndingBalance.Equal(decimal.NewFromInt(100)), balance.EndingBalance.String())
		assert.True(t, balance.PostedDebits.Equal(decimal.NewFromInt(100)))
	})

	t.Run("income statement", func(t *testing.T) {
		status, env := a.do(http.MethodGet, "/api/v1/ledger/reports/income-statement?from=2024-01-01&thru=2024-02-01&org="+org, nil)
		assert.Equal(t, http.StatusOK, status, "%+v", env.Error)
		assert.True(t, env.Success)
	})

	t.Run("reverse", func(t *testing.T) {
		status, env := a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/reverse",
			map[string]any{"transaction_date": "2024-01-20T00:00:00Z"})
		require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
		result := decode[appledger.ReverseResult](t, env)
		assert.Equal(t, id, result.OriginalID)
		require.NotNil(t, result.Reversal.ReversalOfID)
		assert.Equal(t, id, *result.Reversal.ReversalOfID)

		status, env = a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/reverse", nil)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "ALREADY_REVERSED", env.Error.Code)
	})

	t.Run("list paginates", func(t *testing.T) {
		status, env := a.do(http.MethodGet, "/api/v1/ledger/transactions?org="+org+"&page_size=10", nil)
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(2), env.Meta.Total)
	})
}

func TestAPI_Errors(t *testing.T) {
	a := newAPI(t)
	ids := a.accountIDs()

	t.Run("unbalanced transaction fails validation with totals", func(t *testing.T) {
		id := a.createTransaction("2024-01-15T00:00:00Z",
			entry(ids["1100"], "D", "100"),
			entry(ids["4100"], "C", "90"),
		)
		status, env := a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/validate", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "UNBALANCED_TRANSACTION", env.Error.Code)
		assert.NotEmpty(t, env.Data)

		status, env = a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/complete", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "UNBALANCED_TRANSACTION", env.Error.Code)
	})

	t.Run("binding errors name the field", func(t *testing.T) {
		status, env := a.do(http.MethodPost, "/api/v1/ledger/transactions", map[string]any{
			"organization_party_id": org,
			"trans_type":            "MANUAL",
			"transaction_date":      "2024-01-15T00:00:00Z",
			"entries":               []map[string]any{entry(ids["1100"], "X", "1")},
		})
		assert.Equal(t, http.StatusBadRequest, status)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_VALIDATION", env.Error.Code)
		require.Len(t, env.Error.Fields, 1)
		assert.Equal(t, "dc_flag", env.Error.Fields[0].Tag)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		status, env := a.do(http.MethodGet, "/api/v1/ledger/transactions/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "TRANSACTION_NOT_FOUND", env.Error.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		status, env := a.do(http.MethodGet, "/api/v1/ledger/accounts/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "ERR_BAD_REQUEST", env.Error.Code)
	})

	t.Run("malformed date", func(t *testing.T) {
		status, _ := a.do(http.MethodGet, "/api/v1/ledger/reports/trial-balance?from=yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("tenants are isolated", func(t *testing.T) {
		other := *a
		other.tenant = uuid.New()
		status, env := other.do(http.MethodGet, "/api/v1/ledger/accounts", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Empty(t, decode[[]appledger.AccountResponse](t, env))
	})
}

func TestAPI_Periods(t *testing.T) {
	a := newAPI(t)
	ids := a.accountIDs()

	status, env := a.do(http.MethodPost, "/api/v1/ledger/periods", map[string]any{
		"organization_party_id": org,
		"period_type":           "FISCAL_MONTH",
		"period_name":           "January 2024",
		"from_date":             "2024-01-01T00:00:00Z",
		"thru_date":             "2024-02-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	period := decode[appledger.PeriodResponse](t, env)

	t.Run("close refuses unposted transactions", func(t *testing.T) {
		id := a.createTransaction("2024-01-10T00:00:00Z",
			entry(ids["1100"], "D", "50"),
			entry(ids["3100"], "C", "50"),
		)
		status, env := a.do(http.MethodPost, "/api/v1/ledger/periods/"+period.ID.String()+"/close", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "UNPOSTED_TRANSACTIONS", env.Error.Code)

		status, _ = a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/complete", nil)
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("close and look up", func(t *testing.T) {
		status, env := a.do(http.MethodPost, "/api/v1/ledger/periods/"+period.ID.String()+"/close", nil)
		require.Equal(t, http.StatusOK, status, "%+v", env.Error)
		result := decode[appledger.ClosePeriodResult](t, env)
		assert.True(t, result.Period.IsClosed)

		status, env = a.do(http.MethodGet, "/api/v1/ledger/periods/last-closed?org="+org+"&before=2024-03-01", nil)
		require.Equal(t, http.StatusOK, status, "%+v", env.Error)
		assert.Equal(t, period.ID, decode[appledger.PeriodResponse](t, env).ID)
	})

	t.Run("posting into a closed period is refused", func(t *testing.T) {
		id := a.createTransaction("2024-01-20T00:00:00Z",
			entry(ids["1100"], "D", "5"),
			entry(ids["4100"], "C", "5"),
		)
		status, env := a.do(http.MethodPost, "/api/v1/ledger/transactions/"+id.String()+"/complete", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "PERIOD_CLOSED", env.Error.Code)
	})
}
