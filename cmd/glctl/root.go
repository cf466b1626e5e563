package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// options holds the persistent flags
type options struct {
	configPath string
	logLevel   string
	tenant     string
	user       string
	org        string
	lang       string
	jsonOutput bool
}

// app is the wired ledger used by one command run
type app struct {
	services *appledger.Services
	tenantID uuid.UUID
	userID   uuid.UUID
	log      *zap.Logger
	out      io.Writer
	opts     *options
	close    func()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "glctl",
		Short:         "General ledger administration",
		Long:          "glctl seeds charts of accounts, posts and reverses transactions, closes periods and prints reports.\nIt connects to the database configured in config.toml or LEDGER_DATABASE_* variables.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config.toml (default: search ./, ./config, /etc/ledger)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.tenant, "tenant", "", "Tenant UUID (required)")
	flags.StringVar(&opts.user, "user", "", "Acting user UUID")
	flags.StringVar(&opts.org, "org", "", "Organization party id")
	flags.StringVar(&opts.lang, "lang", "", "Language of account names")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		newChartCmd(opts),
		newTransactionCmd(opts),
		newPeriodCmd(opts),
		newReportCmd(opts),
	)
	return root
}

// open wires the ledger services over the configured database
func (o *options) open(cmd *cobra.Command) (*app, error) {
	tenantID, err := uuid.Parse(o.tenant)
	if err != nil || tenantID == uuid.Nil {
		return nil, fmt.Errorf("--tenant must be a UUID")
	}
	userID := uuid.Nil
	if o.user != "" {
		if userID, err = uuid.Parse(o.user); err != nil {
			return nil, fmt.Errorf("--user must be a UUID")
		}
	}

	log, err := logger.NewForCLI(o.logLevel)
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database,
		logger.NewGormLogger(log, gormlogger.Warn, logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh)))
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	locker, closeLocker, err := cache.NewPostingLockerFactory(cfg.Redis, cfg.Ledger.PostingLockTTL,
		cache.WithLogger(log)).CreateLocker(cmd.Context())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	repos, scope := persistence.NewLedgerRepositories(db.DB)
	services := appledger.NewServices(appledger.Dependencies{
		Repositories: repos,
		Scope:        scope,
		Locker:       locker,
		Rounding:     cfg.Ledger.Rounding(),
		Currency:     valueobject.Currency(cfg.Ledger.DefaultCurrency),
		Languages:    cfg.Ledger.SupportedLanguages,
		Logger:       log,
	})

	return &app{
		services: services,
		tenantID: tenantID,
		userID:   userID,
		log:      log,
		out:      cmd.OutOrStdout(),
		opts:     o,
		close: func() {
			_ = closeLocker()
			_ = db.Close()
			_ = logger.Sync(log)
		},
	}, nil
}

// run opens the ledger, calls fn and releases everything afterwards
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

// printJSON writes v indented when --json is set and reports whether it did
func (a *app) printJSON(v any) (bool, error) {
	if !a.opts.jsonOutput {
		return false, nil
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
