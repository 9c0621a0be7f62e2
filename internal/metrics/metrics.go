// Package metrics exposes Prometheus instruments for the settlement workflow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "settleup"

// Plan outcomes recorded by ObservePlan.
const (
	ResultPlanned      = "planned"
	ResultSettled      = "settled"
	ResultInconsistent = "inconsistent"
	ResultDangling     = "dangling_reference"
	ResultError        = "error"
)

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	PlansTotal           *prometheus.CounterVec
	PlanTransfers        prometheus.Histogram
	PlanDuration         prometheus.Histogram
	SettlementsCompleted prometheus.Counter
	ExpensesCreated      prometheus.Counter
}

// New creates and registers the collectors, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PlansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Settlement plans computed, by result.",
		}, []string{"result"}),
		PlanTransfers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_transfers",
			Help:      "Number of transfers in each persisted plan.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Time spent loading a group and computing its plan.",
			Buckets:   prometheus.DefBuckets,
		}),
		SettlementsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_completed_total",
			Help:      "Settlements confirmed as paid.",
		}),
		ExpensesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_created_total",
			Help:      "Expenses recorded.",
		}),
	}

	reg.MustRegister(
		m.PlansTotal,
		m.PlanTransfers,
		m.PlanDuration,
		m.SettlementsCompleted,
		m.ExpensesCreated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePlan records one planning run that started at start.
func (m *Metrics) ObservePlan(result string, transfers int, start time.Time) {
	m.PlansTotal.WithLabelValues(result).Inc()
	m.PlanDuration.Observe(time.Since(start).Seconds())
	if result == ResultPlanned || result == ResultSettled {
		m.PlanTransfers.Observe(float64(transfers))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
