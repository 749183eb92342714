// Package executor runs schema scripts and optionally archives them.
//
// GormExecutor executes a script statement by statement inside a transaction
// and reports the failing statement as a *ScriptError. ArchivingExecutor wraps
// any Executor and uploads each successful script to object storage through
// core/storage, so the DDL applied to a test database can be audited later.
//
// # Usage
//
//	exec := executor.New(db, logger)
//	archive := executor.NewArchive(client, cfg.Storage.Bucket, cfg.Storage.Prefix)
//	archived := executor.NewArchivingExecutor(exec, archive, identity, logger)
package executor
