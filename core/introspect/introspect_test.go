package introspect

import (
	"context"
	"testing"

	"schema-manager/core/database"
	"schema-manager/core/dialect"
	"schema-manager/core/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSQLite(t *testing.T, name string) (*gorm.DB, database.Identity) {
	t.Helper()
	cfg := database.Config{Driver: database.DriverSQLite, Name: "file:" + name + "?mode=memory&cache=shared"}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db, cfg.Identity()
}

func TestOpen_RejectsOtherIdentity(t *testing.T) {
	db, identity := setupSQLite(t, "introspect_identity")
	i := New(db, identity, dialect.SQLite(), nil)

	_, err := i.Open(context.Background(), database.Identity{Driver: "sqlite", Name: "elsewhere"})
	assert.Error(t, err)

	h, err := i.Open(context.Background(), identity)
	require.NoError(t, err)
	assert.NoError(t, h.Close())
}

func TestHandle_TablesAndViews(t *testing.T) {
	ctx := context.Background()
	db, identity := setupSQLite(t, "introspect_tables")

	require.NoError(t, db.Exec(`CREATE TABLE "Customer" ("id" INTEGER NOT NULL, "name" VARCHAR(60), CONSTRAINT "Customer_PK" PRIMARY KEY ("id"))`).Error)
	require.NoError(t, db.Exec(`CREATE INDEX "Customer_1" ON "Customer" ("name")`).Error)
	require.NoError(t, db.Exec(`CREATE VIEW "Names" AS SELECT name FROM Customer`).Error)

	h, err := New(db, identity, dialect.SQLite(), nil).Open(ctx, identity)
	require.NoError(t, err)
	defer h.Close()

	tables, err := h.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1, "views are not reported as tables")
	assert.Equal(t, "Customer", tables[0].Name)
	require.Len(t, tables[0].Columns, 2)
	assert.Equal(t, "id", tables[0].Columns[0].Name)
	assert.Equal(t, schema.Integer, tables[0].Columns[0].Type)
	assert.True(t, tables[0].Columns[0].PrimaryKey)
	assert.Equal(t, "name", tables[0].Columns[1].Name)
	assert.Equal(t, 60, tables[0].Columns[1].Width)

	var indexNames []string
	for _, idx := range tables[0].Indexes {
		indexNames = append(indexNames, idx.Name)
	}
	assert.Contains(t, indexNames, "Customer_1")

	views, err := h.Views(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Names", views[0].Name)
	assert.Equal(t, "SELECT name FROM Customer", views[0].Select)
	assert.Empty(t, views[0].DependsOn)
}

func TestHandle_SQLiteColumns(t *testing.T) {
	ctx := context.Background()
	db, identity := setupSQLite(t, "introspect_columns")

	require.NoError(t, db.Exec(`CREATE TABLE "Account" (`+
		`"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT, `+
		`"balance" DECIMAL(12,2) NOT NULL DEFAULT 0, `+
		`"owner" VARCHAR(30) DEFAULT 'O''Neil', `+
		`"opened" DATE)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE "Pair" ("a" BIGINT NOT NULL, "b" INTEGER NOT NULL, CONSTRAINT "Pair_PK" PRIMARY KEY ("a", "b"))`).Error)
	// The first insert creates sqlite_sequence.
	require.NoError(t, db.Exec(`INSERT INTO "Account" ("balance") VALUES (1)`).Error)

	h, err := New(db, identity, dialect.SQLite(), nil).Open(ctx, identity)
	require.NoError(t, err)
	defer h.Close()

	tables, err := h.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2, "internal tables are not reported")
	assert.Equal(t, "Account", tables[0].Name)
	assert.Equal(t, "Pair", tables[1].Name)

	assert.Equal(t, []schema.Column{
		{Name: "id", Type: schema.Integer, PrimaryKey: true, AutoNumber: true},
		{Name: "balance", Type: schema.Decimal, Width: 12, Scale: 2, Default: "0"},
		{Name: "owner", Type: schema.String, Width: 30, Nullable: true, Default: "O'Neil"},
		{Name: "opened", Type: schema.Date, Nullable: true},
	}, tables[0].Columns)
	assert.Empty(t, tables[0].Indexes)

	assert.Equal(t, []schema.Column{
		{Name: "a", Type: schema.BigInteger, PrimaryKey: true},
		{Name: "b", Type: schema.Integer, PrimaryKey: true},
	}, tables[1].Columns)
	assert.Empty(t, tables[1].Indexes, "the key's autoindex is not a secondary index")
}

func TestUnquoteDefault(t *testing.T) {
	tests := map[string]string{
		"'O''Neil'":              "O'Neil",
		"'x'::character varying": "x",
		"0":                      "0",
		"NULL":                   "",
		" 'padded' ":             "padded",
		"CURRENT_TIMESTAMP":      "CURRENT_TIMESTAMP",
	}
	for in, want := range tests {
		assert.Equal(t, want, unquoteDefault(in), in)
	}
}
