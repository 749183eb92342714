package reconcile

import (
	"testing"

	"schema-manager/core/database"
	"schema-manager/core/schema"

	"github.com/stretchr/testify/assert"
)

func TestExecutionContext_Bind(t *testing.T) {
	ec := NewExecutionContext(nil)

	_, bound := ec.Identity()
	assert.False(t, bound)

	assert.True(t, ec.Bind(testIdentity), "first bind wipes")
	ec.loadTables([]schema.Table{tableT()})
	ec.markEmpty("T")

	assert.False(t, ec.Bind(testIdentity), "same identity keeps the cache")
	assert.Equal(t, []string{"T"}, ec.Snapshot().Tables)

	assert.True(t, ec.Bind(database.Identity{Driver: "mysql", Host: "db", Port: 3306, Name: "other"}))
	snap := ec.Snapshot()
	assert.Empty(t, snap.Tables)
	assert.Empty(t, snap.ConfirmedEmpty)
	assert.False(t, snap.TablesLoaded)
}

func TestExecutionContext_Invalidate(t *testing.T) {
	ec := NewExecutionContext(nil)
	ec.Invalidate()

	ec.Bind(testIdentity)
	ec.loadTables([]schema.Table{tableT()})
	ec.loadViews([]schema.View{{Name: "V", Select: "SELECT 1"}})
	ec.markDeployed("V")
	ec.Invalidate()

	snap := ec.Snapshot()
	assert.True(t, snap.Bound)
	assert.Empty(t, snap.Tables)
	assert.Empty(t, snap.Views)
	assert.Empty(t, snap.DeployedViews)
	assert.False(t, snap.TablesLoaded)
	assert.False(t, snap.ViewsLoaded)
}

func TestExecutionContext_CopiesAtBoundary(t *testing.T) {
	ec := NewExecutionContext(nil)
	ec.Bind(testIdentity)

	in := tableT()
	ec.putTable(in)
	in.Columns[0].Name = "mutated"

	out, ok := ec.table("t")
	assert.True(t, ok)
	assert.Equal(t, "id", out.Columns[0].Name)

	out.Columns[1].Width = 999
	again, _ := ec.table("T")
	assert.Equal(t, 40, again.Columns[1].Width)

	view := schema.View{Name: "V", DependsOn: []string{"A"}}
	ec.putView(view)
	view.DependsOn[0] = "B"
	assert.Equal(t, []string{"A"}, ec.cachedViews()[0].DependsOn)
}

func TestExecutionContext_FlagsFollowEntries(t *testing.T) {
	ec := NewExecutionContext(nil)
	ec.Bind(testIdentity)

	// Flags are only set for cached entries.
	ec.markEmpty("ghost")
	ec.markDeployed("ghost")
	assert.Empty(t, ec.Snapshot().ConfirmedEmpty)
	assert.Empty(t, ec.Snapshot().DeployedViews)

	ec.putTable(tableT())
	ec.markEmpty("T")
	assert.True(t, ec.isEmpty("t"))
	ec.removeTable("t")
	assert.False(t, ec.isEmpty("T"))

	ec.putView(schema.View{Name: "V"})
	ec.markDeployed("v")
	assert.True(t, ec.isDeployed("V"))
	ec.removeView("V")
	assert.False(t, ec.isDeployed("V"))
}

func TestExecutionContext_CaseSensitivePolicy(t *testing.T) {
	ec := NewExecutionContext(schema.CaseSensitive)
	ec.Bind(testIdentity)

	ec.putTable(tableT())
	_, ok := ec.table("t")
	assert.False(t, ok)
	_, ok = ec.table("T")
	assert.True(t, ok)
}

func TestParseTruncationBehavior(t *testing.T) {
	tests := []struct {
		in      string
		want    TruncationBehavior
		wantErr bool
	}{
		{"", TruncateOnlyOnTableChange, false},
		{"only_on_table_change", TruncateOnlyOnTableChange, false},
		{"ALWAYS", TruncateAlways, false},
		{" always ", TruncateAlways, false},
		{"sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTruncationBehavior(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var b TruncationBehavior
	assert.NoError(t, b.UnmarshalText([]byte("always")))
	assert.Equal(t, "always", b.String())
	text, _ := TruncateOnlyOnTableChange.MarshalText()
	assert.Equal(t, "only_on_table_change", string(text))
}
