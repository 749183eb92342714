package reconcile

import (
	"context"
	"errors"
	"fmt"

	"schema-manager/core/database"
	"schema-manager/core/schema"

	"go.uber.org/zap"
)

// Dependencies are the collaborators a Manager drives.
// Comparator and Planner default to the core/schema implementations.
type Dependencies struct {
	Introspector Introspector
	Comparator   Comparator
	Planner      ViewPlanner
	Dialect      Dialect
	Executor     Executor
}

// Manager reconciles one database with target schemas, keeping what it
// learns in an ExecutionContext.
type Manager struct {
	ec           *ExecutionContext
	identity     database.Identity
	introspector Introspector
	comparator   Comparator
	planner      ViewPlanner
	dialect      Dialect
	executor     Executor
	opts         Options
	observer     Observer
	logger       *zap.Logger
}

// NewManager creates a manager for the database with the given identity. The
// context is rebound to identity at the start of every operation, so a context
// reused across databases never serves stale entries.
func NewManager(ec *ExecutionContext, identity database.Identity, deps Dependencies, opts Options, logger *zap.Logger) (*Manager, error) {
	if ec == nil {
		return nil, errors.New("execution context is required")
	}
	if deps.Introspector == nil || deps.Dialect == nil || deps.Executor == nil {
		return nil, errors.New("introspector, dialect and executor are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("database", identity.String()))

	m := &Manager{
		ec:           ec,
		identity:     identity,
		introspector: deps.Introspector,
		comparator:   deps.Comparator,
		planner:      deps.Planner,
		dialect:      deps.Dialect,
		executor:     deps.Executor,
		opts:         opts,
		observer:     opts.Observer,
		logger:       logger,
	}
	if m.comparator == nil {
		m.comparator = schema.NewHomology(ec.Names(), func(msg string) {
			logger.Debug("Table differs", zap.String("difference", msg))
		}, "existing", "required")
	}
	if m.planner == nil {
		m.planner = schema.NewViewPlanner(ec.Names())
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	return m, nil
}

// Context returns the execution context the manager works on.
func (m *Manager) Context() *ExecutionContext {
	return m.ec
}

// MutateToSupportSchema brings the database to a state where every table and
// view of target exists with the declared structure and every table is empty.
// Only the operations needed are executed.
//
// Any failure after validation invalidates the execution context, so the next
// call reloads the database state.
func (m *Manager) MutateToSupportSchema(ctx context.Context, target schema.Schema, behavior TruncationBehavior) (result *Result, err error) {
	if err := target.Validate(m.ec.Names()); err != nil {
		return nil, err
	}

	m.bind()
	scope := m.openScope(ctx)
	defer scope.close()
	defer func() {
		if err != nil {
			m.invalidate("mutation failed", err)
			result = nil
		}
		m.observer.ObserveMutation(result, err)
	}()

	result = newResult()

	if err := m.ensureTables(ctx, scope); err != nil {
		return nil, err
	}

	var tableStatements []string
	for _, required := range target.Tables {
		required = m.dialect.Normalize(required)
		m.checkTableName(required.Name)
		tableStatements = append(tableStatements, m.applyTablePlan(m.decideTable(required, behavior), result)...)
	}
	if len(tableStatements) > 0 {
		// Views may select from a table that is about to change.
		m.ec.forgetDeployedViews()
	}

	if err := m.ensureViews(ctx, scope); err != nil {
		return nil, err
	}

	var drops []schema.View
	for _, v := range m.ec.cachedViews() {
		if !m.ec.isDeployed(v.Name) {
			drops = append(drops, v)
		}
	}
	var deploys []schema.View
	for _, v := range target.Views {
		if !m.ec.isDeployed(v.Name) {
			deploys = append(deploys, v)
		}
	}

	changes, err := m.planner.Plan(target.Views, drops, deploys)
	if err != nil {
		return nil, fmt.Errorf("plan views: %w", err)
	}

	var script []string
	for _, v := range changes.Drop {
		script = append(script, m.dialect.DropViewStatements(v)...)
		m.ec.removeView(v.Name)
		result.ViewsDropped = append(result.ViewsDropped, v.Name)
	}
	for _, v := range changes.Deploy {
		if existing, ok := m.ec.table(v.Name); ok {
			script = append(script, m.dialect.DropTableStatements(existing)...)
			m.ec.removeTable(existing.Name)
			result.TablesDropped = append(result.TablesDropped, existing.Name)
		}
	}
	script = append(script, tableStatements...)
	for _, v := range changes.Deploy {
		script = append(script, m.dialect.ViewDeploymentStatements(v)...)
		m.ec.putView(v)
		m.ec.markDeployed(v.Name)
		result.ViewsDeployed = append(result.ViewsDeployed, v.Name)
	}

	// The script runs on its own connection; release the pinned one first.
	scope.close()
	if err := m.execute(ctx, script); err != nil {
		return nil, err
	}
	result.Statements = append(result.Statements, script...)

	m.logger.Debug("Schema supported",
		zap.Int("statements", len(script)),
		zap.Int("tables_deployed", len(result.TablesDeployed)),
		zap.Int("tables_truncated", len(result.TablesTruncated)),
		zap.Int("views_deployed", len(result.ViewsDeployed)),
	)
	return result, nil
}

// DropTableIfPresent drops the named table if this context knows it exists.
func (m *Manager) DropTableIfPresent(ctx context.Context, name string) error {
	return m.DropTablesIfPresent(ctx, []string{name})
}

// DropTablesIfPresent drops each named table that exists, in one script.
// Names that are not present are ignored.
func (m *Manager) DropTablesIfPresent(ctx context.Context, names []string) (err error) {
	m.bind()
	scope := m.openScope(ctx)
	defer scope.close()

	var dropped int
	defer func() {
		if err != nil {
			m.invalidate("drop tables failed", err)
		}
		m.observer.ObserveDrop("table", dropped, err)
	}()

	if err := m.ensureTables(ctx, scope); err != nil {
		return err
	}

	var script []string
	for _, name := range names {
		existing, ok := m.ec.table(name)
		if !ok {
			continue
		}
		script = append(script, m.dialect.DropTableStatements(existing)...)
		m.ec.removeTable(existing.Name)
		dropped++
	}
	if len(script) > 0 {
		m.ec.forgetDeployedViews()
	}

	scope.close()
	return m.execute(ctx, script)
}

// DropAllTables drops every table the database currently holds, whether or
// not this context has seen it.
func (m *Manager) DropAllTables(ctx context.Context) (err error) {
	m.bind()
	scope := m.openScope(ctx)
	defer scope.close()

	var dropped int
	defer func() {
		if err != nil {
			m.invalidate("drop all tables failed", err)
		}
		m.observer.ObserveDrop("table", dropped, err)
	}()

	h, err := scope.handle()
	if err != nil {
		return err
	}
	tables, err := h.Tables(ctx)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	m.observer.ObserveIntrospection("table")

	var script []string
	for _, t := range tables {
		script = append(script, m.dialect.DropTableStatements(t)...)
	}
	scope.close()
	if err := m.execute(ctx, script); err != nil {
		return err
	}

	dropped = len(tables)
	m.ec.loadTables(nil)
	m.ec.forgetDeployedViews()
	return nil
}

// DropAllViews drops every view the database currently holds.
func (m *Manager) DropAllViews(ctx context.Context) (err error) {
	m.bind()
	scope := m.openScope(ctx)
	defer scope.close()

	var dropped int
	defer func() {
		if err != nil {
			m.invalidate("drop all views failed", err)
		}
		m.observer.ObserveDrop("view", dropped, err)
	}()

	h, err := scope.handle()
	if err != nil {
		return err
	}
	views, err := h.Views(ctx)
	if err != nil {
		return fmt.Errorf("load views: %w", err)
	}
	m.observer.ObserveIntrospection("view")

	var script []string
	for _, v := range views {
		script = append(script, m.dialect.DropViewStatements(v)...)
	}
	scope.close()
	if err := m.execute(ctx, script); err != nil {
		return err
	}

	dropped = len(views)
	m.ec.loadViews(nil)
	return nil
}

// InvalidateCache discards everything the context knows. Safe to call at any time.
func (m *Manager) InvalidateCache() {
	m.invalidate("requested", nil)
}

func (m *Manager) bind() {
	if m.ec.Bind(m.identity) {
		m.logger.Debug("Execution context bound")
	}
}

func (m *Manager) invalidate(reason string, cause error) {
	m.ec.Invalidate()
	m.observer.ObserveInvalidation(reason)
	if cause != nil {
		m.logger.Debug("Schema cache invalidated", zap.String("reason", reason), zap.Error(cause))
		return
	}
	m.logger.Debug("Schema cache invalidated", zap.String("reason", reason))
}

// ensureTables loads the table cache through the scope if it is not loaded yet.
func (m *Manager) ensureTables(ctx context.Context, scope *handleScope) error {
	if m.ec.tablesLoaded {
		return nil
	}
	h, err := scope.handle()
	if err != nil {
		return err
	}
	tables, err := h.Tables(ctx)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	m.ec.loadTables(tables)
	m.observer.ObserveIntrospection("table")
	m.logger.Debug("Tables loaded", zap.Int("count", len(tables)))
	return nil
}

// ensureViews loads the view cache through the scope if it is not loaded yet.
func (m *Manager) ensureViews(ctx context.Context, scope *handleScope) error {
	if m.ec.viewsLoaded {
		return nil
	}
	h, err := scope.handle()
	if err != nil {
		return err
	}
	views, err := h.Views(ctx)
	if err != nil {
		return fmt.Errorf("load views: %w", err)
	}
	m.ec.loadViews(views)
	m.observer.ObserveIntrospection("view")
	m.logger.Debug("Views loaded", zap.Int("count", len(views)))
	return nil
}

// execute submits a non-empty script.
func (m *Manager) execute(ctx context.Context, script []string) error {
	if len(script) == 0 {
		return nil
	}
	for _, s := range script {
		m.logger.Debug("Statement", zap.String("sql", s))
	}
	return m.executor.Execute(ctx, script)
}

// handleScope acquires an introspector handle on first use and releases it
// when the operation that created the scope returns.
type handleScope struct {
	ctx     context.Context
	m       *Manager
	current Handle
}

func (m *Manager) openScope(ctx context.Context) *handleScope {
	return &handleScope{ctx: ctx, m: m}
}

func (s *handleScope) handle() (Handle, error) {
	if s.current != nil {
		return s.current, nil
	}
	h, err := s.m.introspector.Open(s.ctx, s.m.identity)
	if err != nil {
		return nil, fmt.Errorf("open introspector: %w", err)
	}
	s.current = h
	return h, nil
}

func (s *handleScope) close() {
	if s.current == nil {
		return
	}
	if err := s.current.Close(); err != nil {
		s.m.logger.Warn("Failed to release introspector handle", zap.Error(err))
	}
	s.current = nil
}
