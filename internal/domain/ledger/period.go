package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
)

// Period is a half-open reporting range [From, Thru).
// Every aggregation receives its boundary explicitly; there is no ambient current period.
type Period struct {
	From time.Time
	Thru time.Time
}

// NewPeriod builds a period normalized to UTC and validates it
func NewPeriod(from, thru time.Time) (Period, error) {
	p := Period{From: from.UTC(), Thru: thru.UTC()}
	return p, p.Validate()
}

// Validate checks that the period is non-empty
func (p Period) Validate() error {
	if p.From.IsZero() || p.Thru.IsZero() {
		return shared.NewValidationError(CodeInvalidPeriod, "Period requires both from and thru dates")
	}
	if !p.From.Before(p.Thru) {
		return shared.NewValidationError(CodeInvalidPeriod, fmt.Sprintf("Period start %s must be before end %s",
			p.From.Format(time.RFC3339), p.Thru.Format(time.RFC3339)))
	}
	return nil
}

// Contains reports whether t falls inside the period
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.Thru)
}

// String renders the period as from/thru dates
func (p Period) String() string {
	return p.From.Format("2006-01-02") + "/" + p.Thru.Format("2006-01-02")
}
