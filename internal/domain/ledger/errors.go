package ledger

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Error codes raised by the ledger
const (
	CodeTransactionNotFound    = "TRANSACTION_NOT_FOUND"
	CodeAccountNotFound        = "GL_ACCOUNT_NOT_FOUND"
	CodePeriodNotFound         = "TIME_PERIOD_NOT_FOUND"
	CodeEntryNotFound          = "ENTRY_NOT_FOUND"
	CodeUnbalanced             = "UNBALANCED_TRANSACTION"
	CodeNoEntries              = "NO_ENTRIES"
	CodeAmountRequired         = "ENTRY_AMOUNT_REQUIRED"
	CodeInvalidFlag            = "INVALID_DEBIT_CREDIT_FLAG"
	CodeInactiveAccount        = "GL_ACCOUNT_INACTIVE"
	CodePeriodClosed           = "PERIOD_CLOSED"
	CodeInvalidPeriod          = "INVALID_PERIOD"
	CodeUnpostedTransactions   = "UNPOSTED_TRANSACTIONS"
	CodeAlreadyPosted          = "ALREADY_POSTED"
	CodeTransactionPosted      = "TRANSACTION_POSTED"
	CodeNotPosted              = "TRANSACTION_NOT_POSTED"
	CodeAlreadyReversed        = "ALREADY_REVERSED"
	CodePostingInProgress      = "POSTING_IN_PROGRESS"
	CodePeriodAlreadyClosed    = "PERIOD_ALREADY_CLOSED"
	CodeDuplicateAccountCode   = "DUPLICATE_ACCOUNT_CODE"
	CodeInvalidAccountParent   = "INVALID_ACCOUNT_PARENT"
	CodeUnsupportedLanguage    = "UNSUPPORTED_LANGUAGE"
	CodeConcurrentModification = "CONCURRENCY_CONFLICT"
)

// ErrTransactionNotFound builds the not-found error for a transaction id
func ErrTransactionNotFound(id uuid.UUID) *shared.DomainError {
	return shared.NewNotFoundError(CodeTransactionNotFound, fmt.Sprintf("accounting transaction %s not found", id))
}

// ErrAccountNotFound builds the not-found error for a GL account id
func ErrAccountNotFound(id uuid.UUID) *shared.DomainError {
	return shared.NewNotFoundError(CodeAccountNotFound, fmt.Sprintf("GL account %s not found", id))
}

// ErrPeriodNotFound builds the not-found error for a time period id
func ErrPeriodNotFound(id uuid.UUID) *shared.DomainError {
	return shared.NewNotFoundError(CodePeriodNotFound, fmt.Sprintf("time period %s not found", id))
}

// ErrAlreadyPosted is returned when posting a transaction that is already posted
func ErrAlreadyPosted(id uuid.UUID) *shared.DomainError {
	return shared.NewConflictError(CodeAlreadyPosted, fmt.Sprintf("accounting transaction %s is already posted", id))
}

// ErrTransactionPosted is returned when changing a posted transaction
func ErrTransactionPosted(id uuid.UUID) *shared.DomainError {
	return shared.NewConflictError(CodeTransactionPosted, fmt.Sprintf("accounting transaction %s is posted and cannot be modified", id))
}

// ErrPostingInProgress is returned when another caller holds the posting lock
func ErrPostingInProgress(id uuid.UUID) *shared.DomainError {
	return shared.NewConflictError(CodePostingInProgress, fmt.Sprintf("accounting transaction %s is being posted by another request", id))
}
