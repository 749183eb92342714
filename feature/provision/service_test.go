package provision

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"schema-manager/core/dialect"
	"schema-manager/core/reconcile"
	"schema-manager/core/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingObserver struct {
	opened, closed int
	mutations      int
}

func (o *countingObserver) ObserveMutation(*reconcile.Result, error) { o.mutations++ }
func (o *countingObserver) ObserveDrop(string, int, error)           {}
func (o *countingObserver) ObserveIntrospection(string)              {}
func (o *countingObserver) ObserveInvalidation(string)               {}
func (o *countingObserver) SessionOpened()                           { o.opened++ }
func (o *countingObserver) SessionClosed()                           { o.closed++ }

func newTestService(t *testing.T, name string, observer Observer) *Service {
	t.Helper()
	registry := NewRegistry(sqliteConfig(name), zap.NewNop())
	t.Cleanup(func() { _ = registry.Close() })
	cfg := reconcile.Config{MaxTableNameLength: 27, DefaultTruncation: "only_on_table_change", TransientRetries: 1}
	return NewService(registry, cfg, nil, observer, zap.NewNop())
}

func peopleSchema() schema.Schema {
	return schema.Schema{
		Tables: []schema.Table{{
			Name: "people",
			Columns: []schema.Column{
				{Name: "id", Type: schema.Integer, PrimaryKey: true},
				{Name: "name", Type: schema.String, Width: 40, Nullable: true},
			},
		}},
		Views: []schema.View{{Name: "people_names", Select: `SELECT "name" FROM "people"`}},
	}
}

func TestService_SessionLifecycle(t *testing.T) {
	obs := &countingObserver{}
	svc := newTestService(t, "provision_lifecycle", obs)

	sess, err := svc.Open(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Contains(t, sess.Database, "sqlite:")

	got, err := svc.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Len(t, svc.List(), 1)

	require.NoError(t, svc.Close(sess.ID))
	assert.ErrorIs(t, svc.Close(sess.ID), ErrSessionNotFound)
	_, err = svc.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, obs.opened)
	assert.Equal(t, 1, obs.closed)
}

func TestService_Mutate(t *testing.T) {
	obs := &countingObserver{}
	svc := newTestService(t, "provision_mutate", obs)
	ctx := context.Background()

	sess, err := svc.Open(ctx, "")
	require.NoError(t, err)

	result, err := svc.Mutate(ctx, sess.ID, peopleSchema(), reconcile.TruncateOnlyOnTableChange)
	require.NoError(t, err)
	assert.Equal(t, []string{"people"}, result.TablesDeployed)
	assert.Equal(t, []string{"people_names"}, result.ViewsDeployed)

	result, err = svc.Mutate(ctx, sess.ID, peopleSchema(), reconcile.TruncateOnlyOnTableChange)
	require.NoError(t, err)
	assert.False(t, result.Changed())

	snap := sess.Snapshot()
	assert.Equal(t, []string{"PEOPLE"}, snap.ConfirmedEmpty)
	assert.Equal(t, []string{"PEOPLE_NAMES"}, snap.DeployedViews)

	require.NoError(t, svc.Invalidate(sess.ID))
	assert.False(t, sess.Snapshot().TablesLoaded)

	require.NoError(t, svc.DropAllViews(ctx, sess.ID))
	require.NoError(t, svc.DropTables(ctx, sess.ID, []string{"people", "missing"}))
	require.NoError(t, svc.DropAllTables(ctx, sess.ID))
	assert.Equal(t, 2, obs.mutations)
}

func TestService_UnknownSession(t *testing.T) {
	svc := newTestService(t, "provision_unknown", nil)

	_, err := svc.Mutate(context.Background(), "nope", peopleSchema(), reconcile.TruncateAlways)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Invalidate("nope"), ErrSessionNotFound)
}

func TestService_Truncation(t *testing.T) {
	svc := newTestService(t, "provision_truncation", nil)

	b, err := svc.Truncation("")
	require.NoError(t, err)
	assert.Equal(t, reconcile.TruncateOnlyOnTableChange, b)

	b, err = svc.Truncation("always")
	require.NoError(t, err)
	assert.Equal(t, reconcile.TruncateAlways, b)

	_, err = svc.Truncation("sometimes")
	assert.Error(t, err)
}

func TestService_RetriesTransientFaults(t *testing.T) {
	svc := newTestService(t, "provision_retry", nil)
	svc.sessions["s"] = &Session{ID: "s", dialect: dialect.SQLite()}

	t.Run("Transient Then Success", func(t *testing.T) {
		calls := 0
		err := svc.run(context.Background(), "s", "test", func(*reconcile.Manager) error {
			calls++
			if calls == 1 {
				return fmt.Errorf("exec: %w", driver.ErrBadConn)
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("Retries Exhausted", func(t *testing.T) {
		calls := 0
		err := svc.run(context.Background(), "s", "test", func(*reconcile.Manager) error {
			calls++
			return driver.ErrBadConn
		})
		assert.ErrorIs(t, err, driver.ErrBadConn)
		assert.ErrorContains(t, err, "after 2 attempts")
		assert.Equal(t, 2, calls)
	})

	t.Run("Permanent Fault", func(t *testing.T) {
		calls := 0
		err := svc.run(context.Background(), "s", "test", func(*reconcile.Manager) error {
			calls++
			return errors.New("syntax error")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
