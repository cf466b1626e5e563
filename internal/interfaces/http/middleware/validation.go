package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Amount columns are DECIMAL(19,4)
const (
	maxAmountScale         = 4
	maxAmountIntegerDigits = 15
)

// SetupValidator registers the ledger tags on gin's validator:
//
//	dc_flag   "D" or "C"
//	currency  three upper-case letters
//	decimal   an amount that fits DECIMAL(19,4)
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	return errors.Join(
		v.RegisterValidation("dc_flag", func(fl validator.FieldLevel) bool {
			return ledger.DebitCreditFlag(fl.Field().String()).IsValid()
		}),
		v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return valueobject.Currency(fl.Field().String()).IsValid()
		}),
		v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
			return validAmount(fl.Field().String())
		}),
	)
}

func validAmount(s string) bool {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	if !d.Equal(d.Truncate(maxAmountScale)) {
		return false
	}
	return len(d.Abs().Truncate(0).String()) <= maxAmountIntegerDigits
}

// FormatValidationErrors converts a binding error into the API error body.
// Errors that are not field validation failures become a single JSON error.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dto.NewErrorResponse(&dto.ErrorInfo{
			Code:      dto.ErrCodeInvalidJSON,
			Message:   "Request body could not be parsed",
			RequestID: requestID,
			Details:   []string{err.Error()},
		})
	}

	fields := make([]dto.ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, dto.ValidationDetail{
			Field:   e.Field(),
			Tag:     e.Tag(),
			Message: validationMessage(e),
		})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, fields)
}

// HandleValidationError writes a 400 response for a binding error
func HandleValidationError(c *gin.Context, err error) {
	resp := FormatValidationErrors(err, GetRequestID(c))
	c.Set(ErrorCodeKey, resp.Error.Code)
	c.JSON(http.StatusBadRequest, resp)
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "dc_flag":
		return "Must be D or C"
	case "currency":
		return "Must be a three letter ISO 4217 currency code"
	case "decimal":
		return "Must be a decimal amount with at most 4 fractional digits"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	default:
		return "Invalid value"
	}
}
