// Package dialect turns schema descriptors into SQL statements for a specific
// database product and classifies product errors.
//
// Three products are supported: MySQL, PostgreSQL and SQLite. All of them share
// the same statement shapes and differ in identifier quoting, type names,
// auto-numbering syntax, the catalog queries used to list tables and views, and
// which native errors count as transient:
//
//   - MySQL: deadlock (1213) and lock wait timeout (1205).
//   - PostgreSQL: serialization failure, deadlock, lock not available.
//   - SQLite: SQLITE_BUSY and SQLITE_LOCKED.
//
// A broken connection (driver.ErrBadConn) is transient for every product.
//
// SQLite can only auto-number a sole INTEGER primary key. Normalize clears the
// flag elsewhere, so a table reads back equal to what was deployed.
//
// # Usage
//
//	d, err := dialect.For(cfg.Database.Driver)
//	script := d.TableDeploymentStatements(table)
package dialect
