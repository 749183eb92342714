package reconcile

import (
	"context"

	"schema-manager/core/database"
	"schema-manager/core/schema"
)

// Introspector opens handles that read the live structure of one database.
type Introspector interface {
	// Open acquires a handle on the database with the given identity.
	// Implementations must refuse an identity other than the one they serve.
	Open(ctx context.Context, identity database.Identity) (Handle, error)
}

// Handle reads the current tables and views through one acquired connection.
// It is released with Close once the operation that opened it finishes.
type Handle interface {
	Tables(ctx context.Context) ([]schema.Table, error)
	Views(ctx context.Context) ([]schema.View, error)
	Close() error
}

// Comparator decides structural equality of two tables.
type Comparator interface {
	TablesMatch(existing, required schema.Table) bool
}

// ViewPlanner orders view drops and deployments so that no view is created
// before a view it selects from, and no view is dropped after one that selects from it.
type ViewPlanner interface {
	Plan(all, drops, deploys []schema.View) (schema.ViewChanges, error)
}

// Dialect renders operations into statements. core/dialect provides implementations.
type Dialect interface {
	DropTableStatements(table schema.Table) []string
	DropViewStatements(view schema.View) []string
	TableDeploymentStatements(table schema.Table) []string
	ViewDeploymentStatements(view schema.View) []string
	DeleteAllFromTableStatements(table schema.Table) []string
	// Normalize returns the table as the product would read it back.
	Normalize(table schema.Table) schema.Table
}

// Executor runs a script as one unit.
type Executor interface {
	Execute(ctx context.Context, script []string) error
}

// Observer receives operational events; core/metrics implements it with prometheus.
type Observer interface {
	ObserveMutation(result *Result, err error)
	ObserveDrop(kind string, count int, err error)
	ObserveIntrospection(kind string)
	ObserveInvalidation(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveMutation(*Result, error) {}
func (nopObserver) ObserveDrop(string, int, error) {}
func (nopObserver) ObserveIntrospection(string)    {}
func (nopObserver) ObserveInvalidation(string)     {}
