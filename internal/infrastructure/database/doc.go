// Package database provides SQLite database connectivity for the irrigation
// controller.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations embedded into the binary
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the top-level migrations/ directory and follow
// the YYYYMMDD_HHMMSS_description.{up,down}.sql naming convention. They are
// registered via the migrations package's init function, which sets
// MigrationsFS.
//
// Note that the actuation job queue is deliberately NOT persisted here: a
// process restart loses all queued and in-flight jobs by design (see the
// engine package). Only configuration entities live in the database.
package database
