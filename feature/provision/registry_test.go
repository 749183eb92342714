package provision

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"schema-manager/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func sqliteConfig(name string) database.Config {
	return database.Config{Driver: database.DriverSQLite, Name: "file:" + name + "?mode=memory&cache=shared"}
}

func TestRegistry_SharesConnection(t *testing.T) {
	r := NewRegistry(sqliteConfig("registry_base"), zap.NewNop())
	t.Cleanup(func() { _ = r.Close() })

	var calls int32
	r.connect = func(cfg database.Config) (*gorm.DB, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return database.Connect(cfg)
	}

	var wg sync.WaitGroup
	dbs := make([]*gorm.DB, 8)
	for i := range dbs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, _, err := r.Get("")
			assert.NoError(t, err)
			dbs[i] = db
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, db := range dbs {
		assert.Same(t, dbs[0], db)
	}
}

func TestRegistry_PerName(t *testing.T) {
	r := NewRegistry(sqliteConfig("registry_a"), zap.NewNop())
	t.Cleanup(func() { _ = r.Close() })

	a, cfgA, err := r.Get("")
	require.NoError(t, err)
	b, cfgB, err := r.Get("file:registry_b?mode=memory&cache=shared")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.NotEqual(t, cfgA.Identity(), cfgB.Identity())
	assert.Equal(t, database.DriverSQLite, cfgB.Driver)
}

func TestRegistry_ConnectFailure(t *testing.T) {
	r := NewRegistry(sqliteConfig("registry_fail"), nil)
	r.connect = func(database.Config) (*gorm.DB, error) {
		return nil, errors.New("refused")
	}

	_, _, err := r.Get("")
	assert.ErrorContains(t, err, "refused")

	// Failures are not cached.
	r.connect = database.Connect
	_, _, err = r.Get("")
	assert.NoError(t, err)
	assert.NoError(t, r.Close())
}
