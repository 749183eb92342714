// Package introspect reads the live structure of a database.
//
// GormIntrospector lists base tables and views with the dialect's catalog
// queries. Columns come from gorm's Migrator.ColumnTypes, except on SQLite,
// where PRAGMA table_info is the only source of table level primary keys and
// declared precision. Indexes come from Migrator.GetIndexes. Native column types
// are mapped to logical ones through the dialect. Each handle pins one
// pooled connection until it is closed, so every read of one reconciliation
// sees the same session.
package introspect
