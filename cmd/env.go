package cmd

import (
	"context"
	"fmt"

	"schema-manager/core/config"
	"schema-manager/core/database"
	"schema-manager/core/dialect"
	"schema-manager/core/executor"
	"schema-manager/core/introspect"
	"schema-manager/core/logger"
	"schema-manager/core/reconcile"
	"schema-manager/core/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// env bundles what every database command needs.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	dbCfg   database.Config
	dialect dialect.Dialect
}

// loadEnv loads configuration, builds the logger and connects to the
// configured database, or to name on the same server when name is set.
func loadEnv(name string) (*env, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbCfg := cfg.Database
	if name != "" {
		dbCfg = dbCfg.WithName(name)
	}
	d, err := dialect.For(dbCfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &env{
		cfg:     cfg,
		logger:  l.With(zap.String("database", dbCfg.Identity().String())),
		db:      db,
		dbCfg:   dbCfg,
		dialect: d,
	}, nil
}

func (e *env) close() {
	if err := database.Close(e.db); err != nil {
		e.logger.Warn("Failed to close database", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// openStorage returns the storage client and the script archive on it, or
// nils when archiving is disabled.
func openStorage(ctx context.Context, cfg storage.Config) (storage.Client, *executor.Archive, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	client, err := storage.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if err := storage.EnsureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, nil, err
	}
	return client, executor.NewArchive(client, cfg.Bucket, cfg.Prefix), nil
}

// manager builds a reconciliation manager with a fresh execution context.
func (e *env) manager(ctx context.Context) (*reconcile.Manager, error) {
	identity := e.dbCfg.Identity()

	var exec executor.Executor = executor.New(e.db, e.logger)
	_, a, err := openStorage(ctx, e.cfg.Storage)
	if err != nil {
		return nil, err
	}
	if a != nil {
		exec = executor.NewArchivingExecutor(exec, a, identity, e.logger)
	}

	return reconcile.NewManager(reconcile.NewExecutionContext(e.cfg.Manager.Names()), identity, reconcile.Dependencies{
		Introspector: introspect.New(e.db, identity, e.dialect, e.logger),
		Dialect:      e.dialect,
		Executor:     exec,
	}, e.cfg.Manager.Options(nil), e.logger)
}
