package ledger

import (
	"errors"

	"github.com/erp/ledger/internal/domain/shared"
)

// storageErr passes domain errors through and wraps everything else as a
// persistence failure of op.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewPersistenceError(op, err)
}

// outcomeOf maps an error to a posting outcome label
func outcomeOf(err error) string {
	if err == nil {
		return OutcomePosted
	}
	switch shared.KindOf(err) {
	case shared.KindValidation:
		return OutcomeValidation
	case shared.KindConflict:
		return OutcomeConflict
	case shared.KindNotFound:
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}
