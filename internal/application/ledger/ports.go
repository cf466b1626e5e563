package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned by a PostingLocker when another owner holds the key
var ErrLockHeld = errors.New("lock is held by another owner")

// PostingLocker serializes postings of the same transaction across requests
// and, with a shared backend, across processes.
type PostingLocker interface {
	// TryLock acquires key without waiting. It returns ErrLockHeld on contention.
	TryLock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// ReportCache stores assembled reports. Keys are prefixed by tenant so a tenant
// can be invalidated on its own.
//
// Every tenant has a generation that InvalidateTenant bumps. A report is built
// after reading the generation and is stored only while it is still current, so
// a build that raced with a posting never lands in the cache.
type ReportCache interface {
	Get(key string) (any, bool)
	Generation(tenantID uuid.UUID) uint64
	Set(tenantID uuid.UUID, generation uint64, key string, value any) bool
	InvalidateTenant(tenantID uuid.UUID)
}

// PostingRecorder receives the outcome of every posting attempt
type PostingRecorder interface {
	RecordPosting(ctx context.Context, tenantID uuid.UUID, outcome string, duration time.Duration)
}

// Posting outcomes reported to the PostingRecorder
const (
	OutcomePosted     = "posted"
	OutcomeValidation = "validation"
	OutcomeConflict   = "conflict"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
)

func postingLockKey(tenantID, transactionID uuid.UUID) string {
	return fmt.Sprintf("ledger:posting:%s:%s", tenantID, transactionID)
}

// ReportCacheKey builds the cache key of a report. The tenant id comes first.
func ReportCacheKey(tenantID uuid.UUID, parts ...string) string {
	key := tenantID.String()
	for _, p := range parts {
		key += "|" + p
	}
	return key
}
