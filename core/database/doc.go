// Package database handles database connections.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to configure
// MySQL, PostgreSQL and SQLite connections from the application's configuration.
//
// # Connect
//
// Connect opens a pool for the configured driver and verifies it with a ping
// bounded by the configured timeout.
//
// # Identity
//
// Identity names the physical database a Config reaches (driver, host, port,
// database name and user; never the password). Schema caches are bound to an
// Identity and wiped when it changes.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//	id := cfg.Database.Identity()
package database
