// Package integrity reports how far a live database has drifted from a target
// schema, without changing anything.
//
// # Checks Provided
//
//   - Schema: every required table is compared column by column and index by
//     index; tables and views that are missing or unexpected are listed.
//   - Archive: the bucket holding executed scripts exists (supports ?fix=true).
//
// # HTTP Endpoints
//
//   - POST /integrity : Runs the schema check against the schema in the body.
//   - GET /integrity/archive : Runs the archive check.
package integrity
