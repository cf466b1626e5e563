package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entryInput struct {
	Flag     string           `json:"debit_credit_flag" binding:"required,dc_flag"`
	Currency string           `json:"currency_uom_id" binding:"omitempty,currency"`
	Amount   *decimal.Decimal `json:"amount" binding:"omitempty,decimal"`
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestSetupValidator(t *testing.T) {
	require.NoError(t, SetupValidator())

	t.Run("valid input", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&entryInput{Flag: "D", Currency: "USD", Amount: amount("1250.5")})
		assert.NoError(t, err)
	})

	t.Run("nil amount is allowed", func(t *testing.T) {
		assert.NoError(t, binding.Validator.ValidateStruct(&entryInput{Flag: "C"}))
	})

	tests := []struct {
		name  string
		input entryInput
		field string
		tag   string
	}{
		{"bad flag", entryInput{Flag: "X"}, "debit_credit_flag", "dc_flag"},
		{"lower case currency", entryInput{Flag: "D", Currency: "usd"}, "currency_uom_id", "currency"},
		{"too many decimals", entryInput{Flag: "D", Amount: amount("1.23456")}, "amount", "decimal"},
		{"too many digits", entryInput{Flag: "D", Amount: amount("1234567890123456")}, "amount", "decimal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.input)
			require.Error(t, err)

			resp := FormatValidationErrors(err, "req-1")
			require.NotNil(t, resp.Error)
			require.Len(t, resp.Error.Fields, 1)
			assert.Equal(t, tt.field, resp.Error.Fields[0].Field)
			assert.Equal(t, tt.tag, resp.Error.Fields[0].Tag)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestValidAmount(t *testing.T) {
	assert.True(t, validAmount("0"))
	assert.True(t, validAmount("-99.9999"))
	assert.True(t, validAmount("123456789012345.1200"))
	assert.False(t, validAmount("0.00001"))
	assert.False(t, validAmount("abc"))
}

func TestFormatValidationErrors_NotValidation(t *testing.T) {
	resp := FormatValidationErrors(errors.New("unexpected EOF"), "req-2")
	assert.False(t, resp.Success)
	assert.Equal(t, "ERR_INVALID_JSON", resp.Error.Code)
	assert.Equal(t, []string{"unexpected EOF"}, resp.Error.Details)
}
