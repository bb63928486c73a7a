// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements several store interfaces over a single database connection:
//
//   - HeadlineStore: append-only headline records keyed by content hash
//   - RunStore: pipeline runs with their clusters, summaries and model state
//   - SummaryCache: generated text keyed by input hash, with optional TTL
//   - SchedulerStore: scheduled task state and execution history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files
// and records its own version in schema_migrations.
//
// A run is written in one transaction, so readers see either the previous
// state or the whole run.
//
// # Data Location
//
// By default, the database is stored at ~/.newsdigest/data/newsdigest.db
package sqlite
