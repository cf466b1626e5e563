package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MeterName is the instrumentation scope of the ledger metrics
const MeterName = "github.com/erp/ledger"

// ErrMeterNil is returned when metrics are built without a meter
var ErrMeterNil = errors.New("meter cannot be nil")

// LedgerMetrics records posting outcomes and latency:
//
//	ledger_postings_total{outcome}          postings attempted
//	ledger_posting_duration_seconds{outcome} time from lock to commit
type LedgerMetrics struct {
	postings metric.Int64Counter
	duration metric.Float64Histogram
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	postings, err := meter.Int64Counter("ledger_postings_total",
		metric.WithDescription("Accounting transaction postings by outcome"),
		metric.WithUnit("{posting}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create postings counter: %w", err)
	}

	duration, err := meter.Float64Histogram("ledger_posting_duration_seconds",
		metric.WithDescription("Duration of posting attempts"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create posting duration histogram: %w", err)
	}

	return &LedgerMetrics{postings: postings, duration: duration}, nil
}

// RecordPosting implements appledger.PostingRecorder. The tenant id goes on the
// active span only, to keep metric cardinality bounded.
func (m *LedgerMetrics) RecordPosting(ctx context.Context, tenantID uuid.UUID, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.postings.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("ledger.posting", trace.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("tenant_id", tenantID.String()),
			attribute.Int64("duration_ms", d.Milliseconds()),
		))
	}
}

// Ensure LedgerMetrics implements PostingRecorder
var _ appledger.PostingRecorder = (*LedgerMetrics)(nil)
