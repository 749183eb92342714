package integrity

import (
	"context"
	"fmt"

	"schema-manager/core/database"
	"schema-manager/core/dialect"
	"schema-manager/core/introspect"
	"schema-manager/core/schema"
	"schema-manager/core/storage"
	"schema-manager/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	db       *gorm.DB
	identity database.Identity
	dialect  dialect.Dialect
	names    schema.NamePolicy
	client   storage.Client
	storage  storage.Config
	logger   *zap.Logger
}

// NewService creates a new integrity service. client may be nil when archiving is disabled.
func NewService(db *gorm.DB, identity database.Identity, d dialect.Dialect, names schema.NamePolicy, client storage.Client, storageCfg storage.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		identity: identity,
		dialect:  d,
		names:    names,
		client:   client,
		storage:  storageCfg,
		logger:   logger,
	}
}

// CheckSchema compares the connected database with target without changing it.
func (s *Service) CheckSchema(ctx context.Context, target schema.Schema) (*checks.SchemaReport, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if err := target.Validate(s.names); err != nil {
		return nil, err
	}

	h, err := introspect.New(s.db, s.identity, s.dialect, s.logger).Open(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := h.Close(); err != nil {
			s.logger.Warn("Failed to release introspector handle", zap.Error(err))
		}
	}()

	normalized := schema.Schema{Tables: make([]schema.Table, len(target.Tables)), Views: target.Views}
	for i, t := range target.Tables {
		normalized.Tables[i] = s.dialect.Normalize(t)
	}

	report, err := checks.CheckSchema(ctx, h, s.names, normalized)
	if err != nil {
		return nil, err
	}
	report.Database = s.identity.String()
	return report, nil
}

// ArchiveEnabled reports whether a script archive is configured.
func (s *Service) ArchiveEnabled() bool {
	return s.client != nil && s.storage.Enabled
}

// CheckArchive inspects the script archive bucket.
func (s *Service) CheckArchive(ctx context.Context) (*checks.ArchiveReport, error) {
	return checks.CheckArchive(ctx, s.client, s.storage.Bucket, s.storage.Prefix)
}

// FixArchive creates the script archive bucket.
func (s *Service) FixArchive(ctx context.Context) error {
	return checks.FixArchive(ctx, s.client, s.storage.Bucket, s.storage.Region, s.logger)
}
