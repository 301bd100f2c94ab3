// Package database stores runs and their discovered values in SQLite.
//
// The ResultDB keeps:
//   - one row per run with its roots, workers, status and summary counts
//   - one row per accepted value, in acceptance order, with depth and origin
//
// Stored runs back the "runs" and "compare" commands. The database is a
// single file opened with modernc.org/sqlite, so no CGO is needed.
package database
