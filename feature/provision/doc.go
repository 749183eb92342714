// Package provision serves schema reconciliation over HTTP.
//
// A client opens a session per test worker. Every session owns one execution
// context bound to one database, so workers never share cached knowledge.
// Connection pools are shared per database through the Registry.
//
// # HTTP Endpoints
//
//   - GET /sessions : Lists open sessions.
//   - POST /sessions : Opens a session ({"database": "name"} is optional).
//   - GET /sessions/:id : Returns the session and its cache state.
//   - DELETE /sessions/:id : Closes a session.
//   - POST /sessions/:id/mutate : Supports a schema ({"schema": ..., "truncation": "always"}).
//   - POST /sessions/:id/drop-tables : Drops the listed tables ({"tables": [...]}).
//   - DELETE /sessions/:id/tables : Drops every table.
//   - DELETE /sessions/:id/views : Drops every view.
//   - POST /sessions/:id/invalidate : Discards the session's cache.
//
// Faults the dialect classifies as transient are retried up to
// manager.transient_retries times.
package provision
