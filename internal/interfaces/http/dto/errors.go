package dto

import (
	"errors"
	"net/http"

	"github.com/erp/ledger/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes
// (UNBALANCED_TRANSACTION, PERIOD_CLOSED, ...) and only borrow a status.
const (
	// ErrCodeInternal matches the code written by the panic recovery middleware
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeValidation is used when request binding fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeServiceUnavailable is used when the store cannot be reached
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	// ErrCodeRouteNotFound is used for unknown paths
	ErrCodeRouteNotFound = "ERR_ROUTE_NOT_FOUND"
	// ErrCodeMethodNotAllowed is used when the path exists with another method
	ErrCodeMethodNotAllowed = "ERR_METHOD_NOT_ALLOWED"
)

// KindHTTPStatus maps domain error kinds to HTTP status codes
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindNotFound:     http.StatusNotFound,
	shared.KindValidation:   http.StatusUnprocessableEntity,
	shared.KindConflict:     http.StatusConflict,
	shared.KindPersistence:  http.StatusServiceUnavailable,
	shared.KindInvalidInput: http.StatusBadRequest,
	shared.KindInternal:     http.StatusInternalServerError,
}

// StatusForKind returns the HTTP status for a domain error kind.
// Unknown kinds map to 500.
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := KindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorFrom converts an error returned by a service into a status and error body.
// Persistence and unknown errors never leak their cause to the client.
func ErrorFrom(err error, requestID string) (int, *ErrorInfo) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, &ErrorInfo{
			Code:      ErrCodeInternal,
			Message:   "internal server error",
			RequestID: requestID,
		}
	}

	status := StatusForKind(de.Kind)
	info := &ErrorInfo{
		Code:      de.Code,
		Message:   de.Message,
		Details:   de.Details,
		RequestID: requestID,
	}
	if de.Kind == shared.KindPersistence {
		info.Code = ErrCodeServiceUnavailable
		info.Message = "storage temporarily unavailable"
		info.Details = nil
	}
	return status, info
}
