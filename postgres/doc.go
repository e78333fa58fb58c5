// Package postgres provides the PostgreSQL-backed implementation of the
// eqsql interfaces (Pusher, Puller, Observer, Cleaner).
//
// # Overview
//
// The Postgres backend provides:
//
//   - durable persistence of tasks across eq_tasks, emews_queue_out and
//     emews_queue_in
//   - atomic claim transitions via SELECT ... FOR UPDATE SKIP LOCKED
//   - a split-transaction ReportTask that records a terminal result even
//     if the process crashes between updating eq_tasks and inserting into
//     emews_queue_in
//
// Unlike the SQL backend this package was adapted from, it targets
// PostgreSQL exclusively: EQ-SQL's schema relies on PostgreSQL's row
// locking semantics (FOR UPDATE SKIP LOCKED) and is not intended to be
// portable across dialects.
//
// # Concurrency Model
//
// ClaimTask selects the highest-priority eligible row with
// SELECT ... FOR UPDATE SKIP LOCKED, then deletes
// it from emews_queue_out and marks the corresponding eq_tasks row
// Running, all within one transaction. Concurrent claimers never observe
// or claim the same task twice. ClaimTasks generalizes this to a batch:
// the same SELECT ... LIMIT n pattern, claiming up to n rows per round
// trip for callers maintaining their own in-flight accounting
// (batch_size/threshold bookkeeping across repeated calls).
//
// CancelTasks uses the same row-locking trick in reverse: it deletes from
// emews_queue_out with RETURNING and treats only the returned ids as
// canceled, so a task a concurrent ClaimTask has already removed from
// that table can never also be canceled.
//
// # Schema
//
// Migrate (also called by InitTaskQueue) applies the embedded
// golang-migrate migration set,
// which creates:
//
//   - the emews_id_generator sequence backing task ids
//   - eq_tasks, eq_exp_id_tasks, eq_task_tags
//   - emews_queue_out, emews_queue_in
//   - the indexes required for efficient claim and purge operations
//
// Migrations are versioned and idempotent; re-running Migrate against an
// already-migrated database is a no-op.
//
// # Database Lifecycle
//
// This package does not manage connection pooling beyond what database/sql
// provides through lib/pq. The caller is responsible for connection limits
// and for calling Migrate before first use.
//
// # Summary
//
// Package postgres is the sole shipped durable-storage implementation of
// eqsql: a pragmatic, PostgreSQL-specific backend built on uptrace/bun and
// lib/pq, bootstrapped with golang-migrate.
package postgres
