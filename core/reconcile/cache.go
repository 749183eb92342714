package reconcile

import (
	"sort"

	"schema-manager/core/database"
	"schema-manager/core/schema"
)

// ExecutionContext is the schema cache of one worker. It remembers what this
// worker has observed and done in the database it is bound to.
//
// An ExecutionContext is not safe for concurrent use; each worker (test
// process, provisioning session) owns its own.
type ExecutionContext struct {
	names schema.NamePolicy

	identity database.Identity
	bound    bool

	tables         map[string]schema.Table
	views          map[string]schema.View
	confirmedEmpty map[string]struct{}
	deployedViews  map[string]struct{}
	tablesLoaded   bool
	viewsLoaded    bool
}

// NewExecutionContext returns an unbound, empty context. A nil policy means schema.UpperCase.
func NewExecutionContext(names schema.NamePolicy) *ExecutionContext {
	if names == nil {
		names = schema.UpperCase
	}
	ec := &ExecutionContext{names: names}
	ec.wipe()
	return ec
}

// Bind associates the context with a database. Binding to a different
// database, or binding for the first time, wipes the cache. It reports
// whether a wipe happened.
func (ec *ExecutionContext) Bind(identity database.Identity) bool {
	if ec.bound && ec.identity == identity {
		return false
	}
	ec.wipe()
	ec.identity = identity
	ec.bound = true
	return true
}

// Identity returns the bound identity and whether the context is bound.
func (ec *ExecutionContext) Identity() (database.Identity, bool) {
	return ec.identity, ec.bound
}

// Invalidate discards everything cached. The binding is kept.
func (ec *ExecutionContext) Invalidate() {
	ec.wipe()
}

// Names returns the name policy keys are normalized with.
func (ec *ExecutionContext) Names() schema.NamePolicy {
	return ec.names
}

func (ec *ExecutionContext) wipe() {
	ec.tables = make(map[string]schema.Table)
	ec.views = make(map[string]schema.View)
	ec.confirmedEmpty = make(map[string]struct{})
	ec.deployedViews = make(map[string]struct{})
	ec.tablesLoaded = false
	ec.viewsLoaded = false
}

func (ec *ExecutionContext) key(name string) string {
	return ec.names.Normalize(name)
}

func (ec *ExecutionContext) loadTables(tables []schema.Table) {
	ec.tables = make(map[string]schema.Table, len(tables))
	ec.confirmedEmpty = make(map[string]struct{})
	for _, t := range tables {
		ec.tables[ec.key(t.Name)] = t.Copy()
	}
	ec.tablesLoaded = true
}

func (ec *ExecutionContext) loadViews(views []schema.View) {
	ec.views = make(map[string]schema.View, len(views))
	ec.deployedViews = make(map[string]struct{})
	for _, v := range views {
		ec.views[ec.key(v.Name)] = v.Copy()
	}
	ec.viewsLoaded = true
}

func (ec *ExecutionContext) table(name string) (schema.Table, bool) {
	t, ok := ec.tables[ec.key(name)]
	if !ok {
		return schema.Table{}, false
	}
	return t.Copy(), true
}

func (ec *ExecutionContext) putTable(t schema.Table) {
	ec.tables[ec.key(t.Name)] = t.Copy()
}

func (ec *ExecutionContext) removeTable(name string) {
	k := ec.key(name)
	delete(ec.tables, k)
	delete(ec.confirmedEmpty, k)
}

func (ec *ExecutionContext) markEmpty(name string) {
	k := ec.key(name)
	if _, ok := ec.tables[k]; ok {
		ec.confirmedEmpty[k] = struct{}{}
	}
}

func (ec *ExecutionContext) isEmpty(name string) bool {
	_, ok := ec.confirmedEmpty[ec.key(name)]
	return ok
}

func (ec *ExecutionContext) putView(v schema.View) {
	ec.views[ec.key(v.Name)] = v.Copy()
}

func (ec *ExecutionContext) removeView(name string) {
	k := ec.key(name)
	delete(ec.views, k)
	delete(ec.deployedViews, k)
}

func (ec *ExecutionContext) markDeployed(name string) {
	k := ec.key(name)
	if _, ok := ec.views[k]; ok {
		ec.deployedViews[k] = struct{}{}
	}
}

func (ec *ExecutionContext) isDeployed(name string) bool {
	_, ok := ec.deployedViews[ec.key(name)]
	return ok
}

func (ec *ExecutionContext) forgetDeployedViews() {
	ec.deployedViews = make(map[string]struct{})
}

// cachedViews returns copies of every cached view ordered by key.
func (ec *ExecutionContext) cachedViews() []schema.View {
	keys := sortedKeys(ec.views)
	out := make([]schema.View, 0, len(keys))
	for _, k := range keys {
		out = append(out, ec.views[k].Copy())
	}
	return out
}

// Snapshot is a read-only summary of an ExecutionContext, keyed by normalized name.
type Snapshot struct {
	Identity       database.Identity `json:"-"`
	Bound          bool              `json:"bound"`
	Tables         []string          `json:"tables"`
	Views          []string          `json:"views"`
	ConfirmedEmpty []string          `json:"confirmed_empty"`
	DeployedViews  []string          `json:"deployed_views"`
	TablesLoaded   bool              `json:"tables_loaded"`
	ViewsLoaded    bool              `json:"views_loaded"`
}

// Snapshot returns the current cache state.
func (ec *ExecutionContext) Snapshot() Snapshot {
	return Snapshot{
		Identity:       ec.identity,
		Bound:          ec.bound,
		Tables:         sortedKeys(ec.tables),
		Views:          sortedKeys(ec.views),
		ConfirmedEmpty: sortedKeys(ec.confirmedEmpty),
		DeployedViews:  sortedKeys(ec.deployedViews),
		TablesLoaded:   ec.tablesLoaded,
		ViewsLoaded:    ec.viewsLoaded,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
