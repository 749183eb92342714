package provision

import (
	"errors"
	"fmt"
	"sync"

	"schema-manager/core/database"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Registry hands out one connection pool per database name. Concurrent
// requests for a database that is not connected yet share a single dial.
type Registry struct {
	base    database.Config
	connect func(database.Config) (*gorm.DB, error)
	logger  *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	conns map[string]*gorm.DB
}

// NewRegistry creates a registry whose connections differ from base only by name.
func NewRegistry(base database.Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		base:    base,
		connect: database.Connect,
		logger:  logger,
		conns:   make(map[string]*gorm.DB),
	}
}

// Get returns the pool for the named database, connecting on first use.
// An empty name selects the configured database.
func (r *Registry) Get(name string) (*gorm.DB, database.Config, error) {
	cfg := r.base
	if name != "" {
		cfg = r.base.WithName(name)
	}

	r.mu.RLock()
	db, ok := r.conns[cfg.Name]
	r.mu.RUnlock()
	if ok {
		return db, cfg, nil
	}

	v, err, shared := r.group.Do(cfg.Name, func() (any, error) {
		r.mu.RLock()
		db, ok := r.conns[cfg.Name]
		r.mu.RUnlock()
		if ok {
			return db, nil
		}

		db, err := r.connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Identity(), err)
		}

		r.mu.Lock()
		r.conns[cfg.Name] = db
		r.mu.Unlock()
		r.logger.Info("Database connected", zap.String("database", cfg.Identity().String()))
		return db, nil
	})
	if err != nil {
		return nil, cfg, err
	}
	if shared {
		r.logger.Debug("Shared connection attempt", zap.String("database", cfg.Name))
	}
	return v.(*gorm.DB), cfg, nil
}

// Close closes every pool handed out so far.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, db := range r.conns {
		if err := database.Close(db); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(r.conns, name)
	}
	return errors.Join(errs...)
}
