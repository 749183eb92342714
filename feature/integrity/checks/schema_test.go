package checks

import (
	"context"
	"errors"
	"testing"

	"schema-manager/core/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandle struct {
	tables   []schema.Table
	views    []schema.View
	tableErr error
}

func (h *stubHandle) Tables(context.Context) ([]schema.Table, error) { return h.tables, h.tableErr }
func (h *stubHandle) Views(context.Context) ([]schema.View, error)   { return h.views, nil }
func (h *stubHandle) Close() error                                   { return nil }

func usersTable() schema.Table {
	return schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Integer, PrimaryKey: true},
			{Name: "name", Type: schema.String, Width: 40},
		},
	}
}

func TestCheckSchema_NilHandle(t *testing.T) {
	report, err := CheckSchema(context.Background(), nil, nil, schema.Schema{})
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckSchema_Matched(t *testing.T) {
	h := &stubHandle{
		tables: []schema.Table{usersTable()},
		views:  []schema.View{{Name: "USER_NAMES", Select: "SELECT name FROM users"}},
	}
	target := schema.Schema{
		Tables: []schema.Table{usersTable()},
		Views:  []schema.View{{Name: "user_names", Select: "SELECT name FROM users"}},
	}

	report, err := CheckSchema(context.Background(), h, schema.UpperCase, target)
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Equal(t, StatusOK, report.Tables["users"].Status)
	assert.Empty(t, report.MissingViews)
	assert.Empty(t, report.ExtraTables)
}

func TestCheckSchema_Differences(t *testing.T) {
	changed := usersTable()
	changed.Columns[1].Width = 80
	h := &stubHandle{
		tables: []schema.Table{changed, {Name: "legacy", Columns: []schema.Column{{Name: "id", Type: schema.Integer}}}},
		views:  []schema.View{{Name: "old_view", Select: "SELECT 1"}},
	}
	target := schema.Schema{
		Tables: []schema.Table{usersTable(), {Name: "orders", Columns: []schema.Column{{Name: "id", Type: schema.Integer}}}},
		Views:  []schema.View{{Name: "user_names", Select: "SELECT name FROM users"}},
	}

	report, err := CheckSchema(context.Background(), h, schema.UpperCase, target)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Equal(t, StatusMismatch, report.Tables["users"].Status)
	assert.NotEmpty(t, report.Tables["users"].Differences)
	assert.Equal(t, StatusMissing, report.Tables["orders"].Status)
	assert.Equal(t, []string{"legacy"}, report.ExtraTables)
	assert.Equal(t, []string{"user_names"}, report.MissingViews)
	assert.Equal(t, []string{"old_view"}, report.ExtraViews)
}

func TestCheckSchema_CaseSensitive(t *testing.T) {
	h := &stubHandle{tables: []schema.Table{{Name: "USERS", Columns: usersTable().Columns}}}
	target := schema.Schema{Tables: []schema.Table{usersTable()}}

	report, err := CheckSchema(context.Background(), h, schema.CaseSensitive, target)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Equal(t, StatusMissing, report.Tables["users"].Status)
	assert.Equal(t, []string{"USERS"}, report.ExtraTables)
}

func TestCheckSchema_ReadFailure(t *testing.T) {
	h := &stubHandle{tableErr: errors.New("boom")}
	_, err := CheckSchema(context.Background(), h, schema.UpperCase, schema.Schema{})
	assert.ErrorContains(t, err, "failed to read tables")
}
