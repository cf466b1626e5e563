package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // keep query variables in span statements (development only)
	SlowQueryThresh time.Duration
	DBSystem        string
	// TracerProvider overrides the global provider, mainly for tests
	TracerProvider trace.TracerProvider
}

// DBTracingConfigFrom builds the database tracing configuration for the given driver
func DBTracingConfigFrom(t config.TelemetryConfig, driver string) DBTracingConfig {
	system := "postgresql"
	if driver == config.DriverSQLite {
		system = "sqlite"
	}
	return DBTracingConfig{
		Enabled:         t.Enabled && t.DBTraceEnabled,
		LogFullSQL:      t.DBLogFullSQL,
		SlowQueryThresh: t.DBSlowQueryThresh,
		DBSystem:        system,
	}
}

// DBTracingPlugin registers otelgorm and marks slow or failed statements on their spans.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// Register installs otelgorm plus the timing callbacks on db
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	cb := db.Callback()
	// registered ahead of otelgorm so the after hooks run while its span is still open
	if err := errors.Join(
		cb.Create().Before("gorm:create").Register("ledger_timing:before_create", markStart),
		cb.Create().After("gorm:create").Register("ledger_timing:after_create", p.afterStatement),
		cb.Query().Before("gorm:query").Register("ledger_timing:before_query", markStart),
		cb.Query().After("gorm:query").Register("ledger_timing:after_query", p.afterStatement),
		cb.Update().Before("gorm:update").Register("ledger_timing:before_update", markStart),
		cb.Update().After("gorm:update").Register("ledger_timing:after_update", p.afterStatement),
		cb.Delete().Before("gorm:delete").Register("ledger_timing:before_delete", markStart),
		cb.Delete().After("gorm:delete").Register("ledger_timing:after_delete", p.afterStatement),
		cb.Row().Before("gorm:row").Register("ledger_timing:before_row", markStart),
		cb.Row().After("gorm:row").Register("ledger_timing:after_row", p.afterStatement),
		cb.Raw().Before("gorm:raw").Register("ledger_timing:before_raw", markStart),
		cb.Raw().After("gorm:raw").Register("ledger_timing:after_raw", p.afterStatement),
	); err != nil {
		return err
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

// afterStatement annotates the span otelgorm opened for the statement
func (p *DBTracingPlugin) afterStatement(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
	}

	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}
