// Package controller manages the lifecycle of Worker Pools: launching them,
// tracking their running/terminal status, and requeuing any tasks left
// in flight when a pool is canceled.
//
// controller does not run task handlers itself — that is the in-pool
// dispatcher's job, external to this module. It only starts, stops, and
// monitors the pool process or scheduler job, and talks back to the queue
// engine (via eqsql.Puller) to requeue work a canceled pool never finished.
package controller
