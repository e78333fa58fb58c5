// Package eqsql provides a PostgreSQL-backed task-brokering substrate that
// connects a Management Engine (ME) to one or more Worker Pools through a
// transactional queue.
//
// # Overview
//
// eqsql models a durable task queue with explicit, server-owned state
// transitions. It separates the caller-supplied payload
// (submission.Submission) from delivery state (task.Task) and defines a set
// of interfaces for submitting, claiming, observing and purging tasks.
//
// PostgreSQL is the sole durable medium: this package declares the
// interfaces and the client-facing Future/polling protocol; the postgres
// submodule provides the only shipped implementation.
//
// # Delivery Semantics
//
// A task is claimed by exactly one worker pool at a time via
// SELECT ... FOR UPDATE SKIP LOCKED, ordered by priority then task id
// (FIFO within a priority band). Claimed tasks transition Queued -> Running.
// A worker pool reports a result with ReportTask, transitioning
// Running -> Complete. There is no visibility timeout or automatic
// redelivery: once claimed, a task stays Running until it is explicitly
// reported, canceled, or requeued by a worker-pool controller.
//
// # State Machine
//
// Tasks follow this lifecycle:
//
//	Queued   -> Running
//	Running  -> Complete
//	Running  -> Requeued   (in-flight cancellation)
//	Requeued -> Queued     (a fresh task is submitted to replace it)
//	Queued   -> Canceled   (explicit cancellation of a queued task)
//	Complete -> Canceled   (ClearQueues, only while the result is unread)
//
// Complete and Canceled are terminal and are never claimed again.
//
// # Future and Polling
//
// Submitting a task yields a task id. Future wraps that id with the
// caching and polling behavior callers need to retrieve a result without
// re-querying storage once a terminal status has been observed.
// AsCompleted and PopCompleted provide long-poll iteration over a set of
// Futures, backing off linearly between empty rounds.
//
// # Interfaces
//
// eqsql defines the following primary interfaces:
//
//	Pusher   — submit tasks
//	Puller   — claim, report, cancel and requeue tasks
//	Observer — inspect task and queue state
//	Cleaner  — remove terminal tasks and clear queues
//
// These interfaces let the Postgres backend (or any future backend) be
// exercised without coupling queue logic to the driver.
//
// # Concurrency Model
//
// Claiming is a single round trip per attempt; long-poll waiting for a
// result happens client-side via linear backoff, not by blocking inside the
// database. Worker-pool lifecycle management (controller package) uses a
// bounded internal worker pool to fan out in-flight requeue work.
//
// # Storage Expectations
//
// Implementations of Puller must ensure atomic claim transitions, durable
// persistence, and correct priority/FIFO ordering. eqsql assumes storage
// provides serializable-enough write semantics for SELECT ... FOR UPDATE
// SKIP LOCKED to behave as specified; behavior under concurrent claimers
// depends on the chosen isolation level.
//
// # Summary
//
// eqsql provides the storage-agnostic core of EQ-SQL: explicit task
// lifecycle, a Future/polling client protocol, and the interfaces a
// PostgreSQL backend and an HTTP RPC gateway build on.
package eqsql
