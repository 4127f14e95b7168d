// Package database provides SQLite-based storage for audit run history.
//
// This package implements the AuditDB, which stores one row per audit run:
// the full report as JSON plus summary columns (page count, template
// count, finding counts) so listings never parse the stored reports.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// History storage is append-only. Runs are never diffed or updated; the
// history subcommand only lists and retrieves them.
package database
