// Package metrics exposes Prometheus counters and gauges for the queue
// engine, worker-pool controller, and gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the queue engine's Prometheus metrics.
type Collector struct {
	tasksSubmitted  prometheus.Counter
	tasksClaimed    prometheus.Counter
	tasksReported   prometheus.Counter
	tasksCanceled   prometheus.Counter
	tasksRequeued   prometheus.Counter
	claimEmptyTotal prometheus.Counter

	queueDepth   *prometheus.GaugeVec
	poolsRunning prometheus.Gauge

	gatewayRequests *prometheus.CounterVec
}

// NewCollector creates and registers a Collector against reg. Passing
// prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps tests free of cross-test registration collisions.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eqsql_tasks_submitted_total",
			Help: "Total number of tasks submitted.",
		}),
		tasksClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eqsql_tasks_claimed_total",
			Help: "Total number of tasks claimed by a worker pool.",
		}),
		tasksReported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eqsql_tasks_reported_total",
			Help: "Total number of tasks completed with a reported result.",
		}),
		tasksCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eqsql_tasks_canceled_total",
			Help: "Total number of tasks canceled.",
		}),
		tasksRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eqsql_tasks_requeued_total",
			Help: "Total number of tasks requeued after their worker pool was canceled.",
		}),
		claimEmptyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eqsql_claim_empty_total",
			Help: "Total number of ClaimTask calls that found no eligible task.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eqsql_queue_depth",
			Help: "Current number of tasks eligible for claim, by task type.",
		}, []string{"task_type"}),
		poolsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eqsql_pools_running",
			Help: "Current number of worker pools being monitored.",
		}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eqsql_gateway_requests_total",
			Help: "Total number of gateway HTTP requests, by route and status class.",
		}, []string{"route", "status_class"}),
	}

	reg.MustRegister(
		c.tasksSubmitted,
		c.tasksClaimed,
		c.tasksReported,
		c.tasksCanceled,
		c.tasksRequeued,
		c.claimEmptyTotal,
		c.queueDepth,
		c.poolsRunning,
		c.gatewayRequests,
	)
	return c
}

func (c *Collector) RecordSubmitted(n int) { c.tasksSubmitted.Add(float64(n)) }
func (c *Collector) RecordClaimed()        { c.tasksClaimed.Inc() }
func (c *Collector) RecordClaimEmpty()     { c.claimEmptyTotal.Inc() }
func (c *Collector) RecordReported()       { c.tasksReported.Inc() }
func (c *Collector) RecordCanceled(n int)  { c.tasksCanceled.Add(float64(n)) }
func (c *Collector) RecordRequeued()       { c.tasksRequeued.Inc() }


func (c *Collector) SetQueueDepth(taskType string, depth int) {
	c.queueDepth.WithLabelValues(taskType).Set(float64(depth))
}

func (c *Collector) SetPoolsRunning(n int) {
	c.poolsRunning.Set(float64(n))
}

func (c *Collector) RecordGatewayRequest(route, statusClass string) {
	c.gatewayRequests.WithLabelValues(route, statusClass).Inc()
}

// Handler returns the /metrics HTTP handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
