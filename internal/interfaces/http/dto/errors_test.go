package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind     shared.ErrorKind
		expected int
	}{
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindValidation, http.StatusUnprocessableEntity},
		{shared.KindConflict, http.StatusConflict},
		{shared.KindPersistence, http.StatusServiceUnavailable},
		{shared.KindInvalidInput, http.StatusBadRequest},
		{shared.KindInternal, http.StatusInternalServerError},
		{shared.ErrorKind("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForKind(tt.kind))
		})
	}
}

func TestErrorFrom(t *testing.T) {
	t.Run("validation error keeps code and details", func(t *testing.T) {
		err := shared.NewValidationError("UNBALANCED_TRANSACTION", "debits do not equal credits").
			WithDetails("debits=100.00", "credits=90.00")

		status, info := ErrorFrom(fmt.Errorf("complete: %w", err), "req-1")

		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "UNBALANCED_TRANSACTION", info.Code)
		assert.Equal(t, "debits do not equal credits", info.Message)
		assert.Equal(t, []string{"debits=100.00", "credits=90.00"}, info.Details)
		assert.Equal(t, "req-1", info.RequestID)
	})

	t.Run("not found", func(t *testing.T) {
		status, info := ErrorFrom(shared.NewNotFoundError("GL_ACCOUNT_NOT_FOUND", "missing"), "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "GL_ACCOUNT_NOT_FOUND", info.Code)
	})

	t.Run("conflict", func(t *testing.T) {
		status, _ := ErrorFrom(shared.ErrConcurrencyConflict, "")
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("persistence hides the cause", func(t *testing.T) {
		err := shared.NewPersistenceError("save transaction", errors.New("pq: connection refused"))

		status, info := ErrorFrom(err, "req-2")

		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, ErrCodeServiceUnavailable, info.Code)
		assert.NotContains(t, info.Message, "connection refused")
		assert.Empty(t, info.Details)
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		status, info := ErrorFrom(errors.New("boom"), "req-3")
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, ErrCodeInternal, info.Code)
		assert.Equal(t, "req-3", info.RequestID)
	})
}

func TestErrorResponseJSON(t *testing.T) {
	_, info := ErrorFrom(shared.NewNotFoundError("TRANSACTION_NOT_FOUND", "not found"), "req-test-123")

	data, err := json.Marshal(NewErrorResponse(info))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, false, decoded["success"])
	body, ok := decoded["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "TRANSACTION_NOT_FOUND", body["code"])
	assert.Equal(t, "not found", body["message"])
	assert.Equal(t, "req-test-123", body["request_id"])
	assert.NotContains(t, body, "fields")
}

func TestNewValidationErrorResponse(t *testing.T) {
	fields := []ValidationDetail{
		{Field: "debit_credit_flag", Tag: "dc_flag", Message: "Must be D or C"},
		{Field: "amount", Tag: "decimal", Message: "Must be a decimal number"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-789", fields)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Len(t, resp.Error.Fields, 2)
	assert.Equal(t, "debit_credit_flag", resp.Error.Fields[0].Field)
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"name": "test"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{11, 10, 2, 10},
		{100, 0, 5, 20},
		{100, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}
