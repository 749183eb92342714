package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"schema-manager/core/schema"
)

// Driver names accepted by For.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Dialect renders schema operations into statements for one database product.
type Dialect interface {
	// Name returns the driver name (mysql, postgres, sqlite).
	Name() string

	DropTableStatements(table schema.Table) []string
	DropViewStatements(view schema.View) []string
	TableDeploymentStatements(table schema.Table) []string
	ViewDeploymentStatements(view schema.View) []string
	DeleteAllFromTableStatements(table schema.Table) []string

	// Normalize returns table as the product stores it. Attributes the product
	// cannot express are cleared, so a deployed table reads back equal.
	Normalize(table schema.Table) schema.Table

	// TablesQuery returns a query yielding the name of every base table in the current schema.
	TablesQuery() string
	// ViewsQuery returns a query yielding (name, definition) for every view in the current schema.
	ViewsQuery() string
	// ViewSelect extracts the defining query from a definition returned by ViewsQuery.
	ViewSelect(definition string) string
	// ParseColumnType maps a native type name such as "varchar(60)" to a logical type.
	ParseColumnType(native string) (dt schema.DataType, width, scale int, ok bool)
	// MaxIdentifierLength is the product's identifier limit, 0 when unbounded.
	MaxIdentifierLength() int

	// IsTransient reports whether err is worth retrying (deadlock, lock timeout, busy).
	IsTransient(err error) bool
}

// For returns the dialect for the given driver name.
func For(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case DriverMySQL:
		return MySQL(), nil
	case DriverPostgres, "postgresql":
		return PostgreSQL(), nil
	case DriverSQLite, "sqlite3":
		return SQLite(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// sqlDialect carries the parts that differ between products; statement
// shapes are shared.
type sqlDialect struct {
	name        string
	quote       func(string) string
	typeNames   map[schema.DataType]string
	nativeType  map[string]schema.DataType
	autoNumber  string
	tablesQuery string
	viewsQuery  string
	viewSelect  func(string) string
	maxIdent    int
	transient   func(error) bool

	// rowidKey marks products where only a sole INTEGER primary key can be
	// an auto number, declared inline on the column.
	rowidKey bool
}

func (d *sqlDialect) Name() string             { return d.name }
func (d *sqlDialect) TablesQuery() string      { return d.tablesQuery }
func (d *sqlDialect) ViewsQuery() string       { return d.viewsQuery }
func (d *sqlDialect) MaxIdentifierLength() int { return d.maxIdent }

func (d *sqlDialect) ViewSelect(definition string) string {
	if d.viewSelect == nil {
		return strings.TrimSpace(definition)
	}
	return d.viewSelect(definition)
}

func (d *sqlDialect) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if isBadConn(err) {
		return true
	}
	return d.transient != nil && d.transient(err)
}

func (d *sqlDialect) DropTableStatements(table schema.Table) []string {
	return []string{"DROP TABLE " + d.quote(table.Name)}
}

func (d *sqlDialect) DropViewStatements(view schema.View) []string {
	return []string{"DROP VIEW IF EXISTS " + d.quote(view.Name)}
}

func (d *sqlDialect) ViewDeploymentStatements(view schema.View) []string {
	return []string{"CREATE VIEW " + d.quote(view.Name) + " AS " + strings.TrimSpace(view.Select)}
}

// DeleteAllFromTableStatements empties the table with DELETE, which stays inside
// the script transaction on every product.
func (d *sqlDialect) DeleteAllFromTableStatements(table schema.Table) []string {
	return []string{"DELETE FROM " + d.quote(table.Name)}
}

func (d *sqlDialect) Normalize(table schema.Table) schema.Table {
	t := table.Copy()
	if !d.rowidKey {
		return t
	}
	key := d.inlineKey(t)
	for i := range t.Columns {
		if t.Columns[i].AutoNumber && t.Columns[i].Name != key {
			t.Columns[i].AutoNumber = false
		}
	}
	return t
}

// inlineKey returns the column declared as an inline auto number primary key,
// or "" when the table has none.
func (d *sqlDialect) inlineKey(table schema.Table) string {
	if !d.rowidKey {
		return ""
	}
	pk := table.PrimaryKey()
	if len(pk) != 1 {
		return ""
	}
	for _, col := range table.Columns {
		if col.Name == pk[0] && col.AutoNumber && col.Type == schema.Integer {
			return col.Name
		}
	}
	return ""
}

func (d *sqlDialect) TableDeploymentStatements(table schema.Table) []string {
	key := d.inlineKey(table)
	defs := make([]string, 0, len(table.Columns)+1)
	for _, col := range table.Columns {
		def := d.columnDefinition(col)
		if col.Name == key {
			def += " PRIMARY KEY AUTOINCREMENT"
		}
		defs = append(defs, def)
	}
	if pk := table.PrimaryKey(); len(pk) > 0 && key == "" {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", d.quote(table.Name+"_PK"), d.quoteList(pk)))
	}

	statements := []string{fmt.Sprintf("CREATE TABLE %s (%s)", d.quote(table.Name), strings.Join(defs, ", "))}
	for _, idx := range table.Indexes {
		create := "CREATE INDEX "
		if idx.Unique {
			create = "CREATE UNIQUE INDEX "
		}
		statements = append(statements, fmt.Sprintf("%s%s ON %s (%s)", create, d.quote(idx.Name), d.quote(table.Name), d.quoteList(idx.Columns)))
	}
	return statements
}

func (d *sqlDialect) columnDefinition(col schema.Column) string {
	var b strings.Builder
	b.WriteString(d.quote(col.Name))
	b.WriteString(" ")
	b.WriteString(d.typeDefinition(col))
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(d.literal(col))
	}
	if col.AutoNumber && d.autoNumber != "" {
		b.WriteString(" ")
		b.WriteString(d.autoNumber)
	}
	return b.String()
}

func (d *sqlDialect) typeDefinition(col schema.Column) string {
	name := d.typeNames[col.Type]
	switch col.Type {
	case schema.String:
		return fmt.Sprintf("%s(%d)", name, col.Width)
	case schema.Decimal:
		return fmt.Sprintf("%s(%d,%d)", name, col.Width, col.Scale)
	default:
		return name
	}
}

func (d *sqlDialect) literal(col schema.Column) string {
	switch col.Type {
	case schema.String, schema.Clob, schema.Date:
		return "'" + strings.ReplaceAll(col.Default, "'", "''") + "'"
	default:
		return col.Default
	}
}

func (d *sqlDialect) quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.quote(n)
	}
	return strings.Join(quoted, ", ")
}

func (d *sqlDialect) ParseColumnType(native string) (schema.DataType, int, int, bool) {
	base, args := splitTypeSpec(native)
	dt, ok := d.nativeType[base]
	if !ok {
		return "", 0, 0, false
	}
	var width, scale int
	if dt.HasWidth() {
		if len(args) > 0 {
			width = args[0]
		}
		if len(args) > 1 {
			scale = args[1]
		}
	}
	return dt, width, scale, true
}

// splitTypeSpec turns "DECIMAL(10, 2) unsigned" into ("decimal", [10 2]).
func splitTypeSpec(native string) (string, []int) {
	s := strings.ToLower(strings.TrimSpace(native))
	s = strings.TrimSpace(strings.TrimSuffix(s, "unsigned"))

	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, nil
	}
	base := strings.TrimSpace(s[:open])
	end := strings.IndexByte(s[open:], ')')
	if end < 0 {
		return base, nil
	}

	var args []int
	for _, part := range strings.Split(s[open+1:open+end], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return base, nil
		}
		args = append(args, n)
	}
	return base, args
}

func quoteWith(left, right string) func(string) string {
	return func(name string) string {
		return left + strings.ReplaceAll(name, right, right+right) + right
	}
}
