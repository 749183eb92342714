package provision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"schema-manager/core/dialect"
	"schema-manager/core/executor"
	"schema-manager/core/introspect"
	"schema-manager/core/reconcile"
	"schema-manager/core/schema"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for an unknown or closed session id.
var ErrSessionNotFound = errors.New("session not found")

// Observer receives engine events and session lifecycle changes.
// *metrics.Recorder satisfies it.
type Observer interface {
	reconcile.Observer
	SessionOpened()
	SessionClosed()
}

type nopObserver struct{}

func (nopObserver) ObserveMutation(*reconcile.Result, error) {}
func (nopObserver) ObserveDrop(string, int, error)           {}
func (nopObserver) ObserveIntrospection(string)              {}
func (nopObserver) ObserveInvalidation(string)               {}
func (nopObserver) SessionOpened()                           {}
func (nopObserver) SessionClosed()                           {}

// Service manages provisioning sessions.
type Service struct {
	registry *Registry
	cfg      reconcile.Config
	archive  *executor.Archive
	observer Observer
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a provisioning service. archive and observer may be nil.
func NewService(registry *Registry, cfg reconcile.Config, archive *executor.Archive, observer Observer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		registry: registry,
		cfg:      cfg,
		archive:  archive,
		observer: observer,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session on the named database. An empty name selects the
// configured database.
func (s *Service) Open(ctx context.Context, name string) (*Session, error) {
	db, cfg, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	d, err := dialect.For(cfg.Driver)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	identity := cfg.Identity()
	l := s.logger.With(zap.String("session", id))

	var exec executor.Executor = executor.New(db, l)
	if s.archive != nil {
		exec = executor.NewArchivingExecutor(exec, s.archive, identity, l)
	}

	manager, err := reconcile.NewManager(reconcile.NewExecutionContext(s.cfg.Names()), identity, reconcile.Dependencies{
		Introspector: introspect.New(db, identity, d, l),
		Dialect:      d,
		Executor:     exec,
	}, s.cfg.Options(s.observer), l)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        id,
		Database:  identity.String(),
		CreatedAt: time.Now().UTC(),
		manager:   manager,
		dialect:   d,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.observer.SessionOpened()

	l.Info("Session opened", zap.String("database", sess.Database))
	return sess, nil
}

// Get returns an open session.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns the open sessions, oldest first.
func (s *Service) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close ends a session. The connection pool stays with the registry.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.observer.SessionClosed()
	s.logger.Info("Session closed", zap.String("session", id))
	return nil
}

// CloseAll ends every session.
func (s *Service) CloseAll() {
	for _, sess := range s.List() {
		_ = s.Close(sess.ID)
	}
}

// Truncation resolves a requested truncation behavior, falling back to the
// configured default when none is given.
func (s *Service) Truncation(requested string) (reconcile.TruncationBehavior, error) {
	if requested == "" {
		return s.cfg.Truncation()
	}
	return reconcile.ParseTruncationBehavior(requested)
}

// Mutate brings the session's database in line with target.
func (s *Service) Mutate(ctx context.Context, id string, target schema.Schema, behavior reconcile.TruncationBehavior) (*reconcile.Result, error) {
	var result *reconcile.Result
	err := s.run(ctx, id, "mutate", func(m *reconcile.Manager) error {
		var err error
		result, err = m.MutateToSupportSchema(ctx, target, behavior)
		return err
	})
	return result, err
}

// DropTables drops the named tables that exist.
func (s *Service) DropTables(ctx context.Context, id string, names []string) error {
	return s.run(ctx, id, "drop tables", func(m *reconcile.Manager) error {
		return m.DropTablesIfPresent(ctx, names)
	})
}

// DropAllTables drops every table in the session's database.
func (s *Service) DropAllTables(ctx context.Context, id string) error {
	return s.run(ctx, id, "drop all tables", func(m *reconcile.Manager) error {
		return m.DropAllTables(ctx)
	})
}

// DropAllViews drops every view in the session's database.
func (s *Service) DropAllViews(ctx context.Context, id string) error {
	return s.run(ctx, id, "drop all views", func(m *reconcile.Manager) error {
		return m.DropAllViews(ctx)
	})
}

// Invalidate discards what the session knows about its database.
func (s *Service) Invalidate(id string) error {
	return s.run(context.Background(), id, "invalidate", func(m *reconcile.Manager) error {
		m.InvalidateCache()
		return nil
	})
}

// run executes op on the session, retrying faults the dialect classifies as
// transient. The engine has already invalidated its cache when op fails, so a
// retry starts from a fresh read of the database.
func (s *Service) run(ctx context.Context, id, name string, op func(*reconcile.Manager) error) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	for attempt := 0; ; attempt++ {
		err := op(sess.manager)
		if err == nil {
			return nil
		}
		if attempt >= s.cfg.TransientRetries || !sess.dialect.IsTransient(err) || ctx.Err() != nil {
			if attempt > 0 {
				return fmt.Errorf("%s failed after %d attempts: %w", name, attempt+1, err)
			}
			return err
		}
		s.logger.Warn("Transient failure, retrying",
			zap.String("session", id),
			zap.String("operation", name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
}
