// Package reconcile brings a test database's schema into conformance with a
// declared target schema using the fewest operations it can prove sufficient.
//
// # Architecture
//
// The package consists of three parts:
//
// 1. ExecutionContext: the cache of one worker. It holds the tables and views
// observed in the bound database, the tables this worker has confirmed empty
// and the views it has deployed itself. Binding to another database wipes it.
//
// 2. Manager: the engine. For every required table it decides between deploy,
// drop and redeploy, truncate or nothing; it then orders view drops and
// deployments around the table changes and submits a single script.
//
// 3. Ports: Introspector, Comparator, ViewPlanner, Dialect and Executor. The
// engine only talks to collaborators through these interfaces; core/introspect,
// core/schema, core/dialect and core/executor provide implementations.
//
// # Failure Policy
//
// When anything fails after the cache starts changing, the whole context is
// invalidated before the error is returned. The engine never retries; callers
// that want to retry transient faults ask the dialect to classify them.
//
// # Usage Example
//
//	ec := reconcile.NewExecutionContext(schema.UpperCase)
//	mgr, err := reconcile.NewManager(ec, cfg.Database.Identity(), reconcile.Dependencies{
//	    Introspector: introspect.New(db, identity, d, logger),
//	    Dialect:      d,
//	    Executor:     executor.New(db, logger),
//	}, reconcile.Options{MaxTableNameLength: 27}, logger)
//
//	result, err := mgr.MutateToSupportSchema(ctx, target, reconcile.TruncateOnlyOnTableChange)
package reconcile
