package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"schema-manager/core/database"
	"schema-manager/core/dialect"
	"schema-manager/core/reconcile"
	"schema-manager/core/schema"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormIntrospector reads live table and view metadata through gorm's Migrator
// and the dialect's view catalog query.
type GormIntrospector struct {
	db       *gorm.DB
	identity database.Identity
	dialect  dialect.Dialect
	logger   *zap.Logger
}

// New creates an introspector for the database db is connected to, known by identity.
func New(db *gorm.DB, identity database.Identity, d dialect.Dialect, logger *zap.Logger) *GormIntrospector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormIntrospector{db: db, identity: identity, dialect: d, logger: logger}
}

// Open pins one pooled connection for the lifetime of the handle.
func (i *GormIntrospector) Open(ctx context.Context, identity database.Identity) (reconcile.Handle, error) {
	if identity != i.identity {
		return nil, fmt.Errorf("introspector serves %s, not %s", i.identity, identity)
	}

	sqlDB, err := i.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	tx := i.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	tx.Statement.ConnPool = conn

	return &handle{tx: tx, conn: conn, dialect: i.dialect, logger: i.logger}, nil
}

type handle struct {
	tx      *gorm.DB
	conn    *sql.Conn
	dialect dialect.Dialect
	logger  *zap.Logger
}

func (h *handle) Close() error {
	return h.conn.Close()
}

// Views returns every view in the current schema. Dependencies between views
// are not recovered from the catalog.
func (h *handle) Views(ctx context.Context) ([]schema.View, error) {
	rows, err := h.tx.WithContext(ctx).Raw(h.dialect.ViewsQuery()).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var views []schema.View
	for rows.Next() {
		var name string
		var definition sql.NullString
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan view: %w", err)
		}
		views = append(views, schema.View{Name: name, Select: h.dialect.ViewSelect(definition.String)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	return views, nil
}

// Tables returns every base table with its columns and secondary indexes.
func (h *handle) Tables(ctx context.Context) ([]schema.Table, error) {
	tx := h.tx.WithContext(ctx)

	var names []string
	if err := tx.Raw(h.dialect.TablesQuery()).Scan(&names).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	migrator := tx.Migrator()
	tables := make([]schema.Table, 0, len(names))
	for _, name := range names {
		table, err := h.table(tx, migrator, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (h *handle) table(tx *gorm.DB, migrator gorm.Migrator, name string) (schema.Table, error) {
	table := schema.Table{Name: name}

	if h.dialect.Name() == dialect.DriverSQLite {
		columns, err := h.sqliteColumns(tx, name)
		if err != nil {
			return schema.Table{}, err
		}
		table.Columns = columns
	} else {
		columnTypes, err := migrator.ColumnTypes(name)
		if err != nil {
			return schema.Table{}, fmt.Errorf("failed to read columns of %s: %w", name, err)
		}
		for _, ct := range columnTypes {
			table.Columns = append(table.Columns, h.column(name, ct))
		}
	}

	indexes, err := migrator.GetIndexes(name)
	if err != nil {
		return schema.Table{}, fmt.Errorf("failed to read indexes of %s: %w", name, err)
	}
	for _, idx := range indexes {
		if isPrimaryIndex(idx) {
			continue
		}
		unique, _ := idx.Unique()
		table.Indexes = append(table.Indexes, schema.Index{
			Name:    idx.Name(),
			Columns: idx.Columns(),
			Unique:  unique,
		})
	}
	return table, nil
}

// sqliteColumn is one row of PRAGMA table_info.
type sqliteColumn struct {
	Cid       int
	Name      string
	Type      string
	NotNull   int     `gorm:"column:notnull"`
	DfltValue *string `gorm:"column:dflt_value"`
	Pk        int
}

// sqliteAutoIncrement matches the AUTOINCREMENT keyword of a CREATE TABLE statement.
var sqliteAutoIncrement = regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`)

// sqliteColumns reads columns from PRAGMA table_info, which reports table
// level primary keys and the declared type with its precision and scale.
// gorm's DDL parser sees neither.
func (h *handle) sqliteColumns(tx *gorm.DB, table string) ([]schema.Column, error) {
	var rows []sqliteColumn
	if err := tx.Raw("SELECT * FROM pragma_table_info(?)", table).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	var ddl string
	if err := tx.Raw("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&ddl).Error; err != nil {
		return nil, fmt.Errorf("failed to read definition of %s: %w", table, err)
	}

	keys := 0
	for _, r := range rows {
		if r.Pk > 0 {
			keys++
		}
	}
	// SQLite allows AUTOINCREMENT only on a sole INTEGER PRIMARY KEY.
	autoKey := keys == 1 && sqliteAutoIncrement.MatchString(ddl)

	columns := make([]schema.Column, 0, len(rows))
	for _, r := range rows {
		dt, width, scale, ok := h.dialect.ParseColumnType(r.Type)
		if !ok {
			h.logger.Debug("Unmapped column type",
				zap.String("table", table),
				zap.String("column", r.Name),
				zap.String("type", r.Type),
			)
			dt = schema.DataType(strings.ToUpper(r.Type))
		}

		col := schema.Column{
			Name:       r.Name,
			Type:       dt,
			Width:      width,
			Scale:      scale,
			Nullable:   r.NotNull == 0 && r.Pk == 0,
			PrimaryKey: r.Pk > 0,
			AutoNumber: r.Pk > 0 && autoKey,
		}
		if r.DfltValue != nil {
			col.Default = unquoteDefault(*r.DfltValue)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func (h *handle) column(table string, ct gorm.ColumnType) schema.Column {
	native := ct.DatabaseTypeName()
	if full, ok := ct.ColumnType(); ok && full != "" {
		native = full
	}

	dt, width, scale, ok := h.dialect.ParseColumnType(native)
	if !ok {
		h.logger.Debug("Unmapped column type",
			zap.String("table", table),
			zap.String("column", ct.Name()),
			zap.String("type", native),
		)
		dt = schema.DataType(strings.ToUpper(native))
	}
	if dt.HasWidth() && width == 0 {
		if length, ok := ct.Length(); ok && dt == schema.String {
			width = int(length)
		}
		if precision, s, ok := ct.DecimalSize(); ok && dt == schema.Decimal {
			width, scale = int(precision), int(s)
		}
	}

	col := schema.Column{Name: ct.Name(), Type: dt, Width: width, Scale: scale}
	if nullable, ok := ct.Nullable(); ok {
		col.Nullable = nullable
	}
	if pk, ok := ct.PrimaryKey(); ok {
		col.PrimaryKey = pk
	}
	if auto, ok := ct.AutoIncrement(); ok {
		col.AutoNumber = auto
	}
	if def, ok := ct.DefaultValue(); ok {
		col.Default = unquoteDefault(def)
	}
	if col.PrimaryKey {
		col.Nullable = false
	}
	return col
}

func isPrimaryIndex(idx gorm.Index) bool {
	if pk, ok := idx.PrimaryKey(); ok && pk {
		return true
	}
	name := strings.ToUpper(idx.Name())
	return name == "PRIMARY" || strings.HasSuffix(name, "_PK") || strings.HasPrefix(name, "SQLITE_AUTOINDEX_")
}

// unquoteDefault turns a catalog default such as 'O''Neil' or 'x'::character varying
// into the bare literal.
func unquoteDefault(def string) string {
	def = strings.TrimSpace(def)
	if strings.EqualFold(def, "NULL") {
		return ""
	}
	if i := strings.LastIndex(def, "'::"); i > 0 {
		def = def[:i+1]
	}
	if len(def) >= 2 && def[0] == '\'' && def[len(def)-1] == '\'' {
		return strings.ReplaceAll(def[1:len(def)-1], "''", "'")
	}
	return def
}
