package dialect

import (
	"regexp"
	"strings"

	"schema-manager/core/schema"
)

// MySQL returns the MySQL / MariaDB dialect.
func MySQL() Dialect {
	return &sqlDialect{
		name:  DriverMySQL,
		quote: quoteWith("`", "`"),
		typeNames: map[schema.DataType]string{
			schema.String:     "VARCHAR",
			schema.Integer:    "INTEGER",
			schema.BigInteger: "BIGINT",
			schema.Decimal:    "DECIMAL",
			schema.Boolean:    "TINYINT(1)",
			schema.Date:       "DATE",
			schema.Clob:       "LONGTEXT",
			schema.Blob:       "LONGBLOB",
		},
		nativeType: map[string]schema.DataType{
			"varchar":    schema.String,
			"char":       schema.String,
			"int":        schema.Integer,
			"integer":    schema.Integer,
			"mediumint":  schema.Integer,
			"smallint":   schema.Integer,
			"bigint":     schema.BigInteger,
			"decimal":    schema.Decimal,
			"numeric":    schema.Decimal,
			"tinyint":    schema.Boolean,
			"bit":        schema.Boolean,
			"bool":       schema.Boolean,
			"boolean":    schema.Boolean,
			"date":       schema.Date,
			"text":       schema.Clob,
			"mediumtext": schema.Clob,
			"longtext":   schema.Clob,
			"blob":       schema.Blob,
			"mediumblob": schema.Blob,
			"longblob":   schema.Blob,
		},
		autoNumber:  "AUTO_INCREMENT",
		tablesQuery: `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`,
		viewsQuery:  `SELECT table_name, view_definition FROM information_schema.views WHERE table_schema = DATABASE() ORDER BY table_name`,
		maxIdent:    64,
		transient:   mysqlTransient,
	}
}

// PostgreSQL returns the PostgreSQL dialect.
func PostgreSQL() Dialect {
	return &sqlDialect{
		name:  DriverPostgres,
		quote: quoteWith(`"`, `"`),
		typeNames: map[schema.DataType]string{
			schema.String:     "VARCHAR",
			schema.Integer:    "INTEGER",
			schema.BigInteger: "BIGINT",
			schema.Decimal:    "NUMERIC",
			schema.Boolean:    "BOOLEAN",
			schema.Date:       "DATE",
			schema.Clob:       "TEXT",
			schema.Blob:       "BYTEA",
		},
		nativeType: map[string]schema.DataType{
			"varchar":           schema.String,
			"character varying": schema.String,
			"bpchar":            schema.String,
			"int4":              schema.Integer,
			"integer":           schema.Integer,
			"int2":              schema.Integer,
			"smallint":          schema.Integer,
			"int8":              schema.BigInteger,
			"bigint":            schema.BigInteger,
			"numeric":           schema.Decimal,
			"decimal":           schema.Decimal,
			"bool":              schema.Boolean,
			"boolean":           schema.Boolean,
			"date":              schema.Date,
			"text":              schema.Clob,
			"bytea":             schema.Blob,
		},
		autoNumber:  "GENERATED BY DEFAULT AS IDENTITY",
		tablesQuery: `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`,
		viewsQuery:  `SELECT table_name, view_definition FROM information_schema.views WHERE table_schema = current_schema() ORDER BY table_name`,
		maxIdent:    63,
		transient:   postgresTransient,
	}
}

// sqliteViewPrefix matches the "CREATE VIEW name AS" head of a stored view definition.
var sqliteViewPrefix = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:TEMP\s+|TEMPORARY\s+)?VIEW\s+(?:IF\s+NOT\s+EXISTS\s+)?\S+\s+AS\s+`)

// SQLite returns the SQLite dialect.
func SQLite() Dialect {
	return &sqlDialect{
		name:  DriverSQLite,
		quote: quoteWith(`"`, `"`),
		typeNames: map[schema.DataType]string{
			schema.String:     "VARCHAR",
			schema.Integer:    "INTEGER",
			schema.BigInteger: "BIGINT",
			schema.Decimal:    "DECIMAL",
			schema.Boolean:    "BOOLEAN",
			schema.Date:       "DATE",
			schema.Clob:       "TEXT",
			schema.Blob:       "BLOB",
		},
		nativeType: map[string]schema.DataType{
			"varchar": schema.String,
			"char":    schema.String,
			"integer": schema.Integer,
			"int":     schema.Integer,
			"bigint":  schema.BigInteger,
			"decimal": schema.Decimal,
			"numeric": schema.Decimal,
			"boolean": schema.Boolean,
			"date":    schema.Date,
			"text":    schema.Clob,
			"clob":    schema.Clob,
			"blob":    schema.Blob,
		},
		rowidKey:    true,
		tablesQuery: `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY name`,
		viewsQuery:  `SELECT name, sql FROM sqlite_master WHERE type = 'view' ORDER BY name`,
		viewSelect: func(definition string) string {
			return strings.TrimSpace(sqliteViewPrefix.ReplaceAllString(definition, ""))
		},
		transient: sqliteTransient,
	}
}
