// Package submission defines the transport-level payload a Management
// Engine hands to the queue engine.
//
// Submission represents the caller-supplied fields of a task before it
// receives queue-assigned identity and lifecycle metadata (those concerns
// live in task.Task). It is intentionally minimal.
//
// A Submission is designed to be:
//   - storage-agnostic
//   - lightweight
//   - safe to pass across the optional RPC gateway
//
// The Payload field contains the opaque serialized body of the task (the
// worker pool interprets it; EQ-SQL never inspects it). Tag is an optional
// grouping label used to re-submit requeued tasks under the same identity
// class.
package submission
