package integrity

import (
	"schema-manager/core/database"
	"schema-manager/core/dialect"
	"schema-manager/core/schema"
	"schema-manager/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature wires the integrity checks into the HTTP server.
type Feature struct {
	service *Service
}

// NewFeature creates the integrity feature.
func NewFeature(db *gorm.DB, identity database.Identity, d dialect.Dialect, names schema.NamePolicy, client storage.Client, storageCfg storage.Config, logger *zap.Logger) *Feature {
	return &Feature{service: NewService(db, identity, d, names, client, storageCfg, logger)}
}

// Name returns the feature name.
func (f *Feature) Name() string {
	return "integrity"
}

// IsEnabled reports whether a database is available to check.
func (f *Feature) IsEnabled() bool {
	return f.service.db != nil
}

// Load registers the integrity routes.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
