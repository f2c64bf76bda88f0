// Package jobmetrics instruments asynq task handlers.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeRetry   = "retry"
	OutcomeDropped = "dropped"
)

// Metrics holds the worker collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs      *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	pushes    *prometheus.CounterVec
	reminders *prometheus.CounterVec
}

var (
	processOnce    sync.Once
	processMetrics *Metrics
)

// NewMetrics registers the collectors on reg. A nil reg shares one instance
// registered on the process-wide default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg != nil {
		return register(reg)
	}
	processOnce.Do(func() { processMetrics = register(prometheus.DefaultRegisterer) })
	return processMetrics
}

func register(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_job_runs_total",
			Help: "Task executions by task type and outcome (ok, retry, dropped).",
		}, []string{"task", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leaddesk_job_run_seconds",
			Help:    "Task handler latency.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"task"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_push_deliveries_total",
			Help: "Push gateway calls by notification kind and result.",
		}, []string{"kind", "result"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_followup_reminders_total",
			Help: "Follow-up reminders enqueued, by recipient designation.",
		}, []string{"designation"}),
	}
	reg.MustRegister(m.runs, m.latency, m.pushes, m.reminders)
	return m
}

// Outcome classifies a handler error the way asynq will treat it.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeDropped
	default:
		return OutcomeRetry
	}
}

// Run times one task execution.
type Run struct {
	m       *Metrics
	task    string
	started time.Time
}

// Start begins timing task.
func (m *Metrics) Start(task string) Run {
	return Run{m: m, task: task, started: time.Now()}
}

// Finish records the outcome of the run and hands err back unchanged, so
// handlers can write `defer func() { err = run.Finish(err) }()`.
func (r Run) Finish(err error) error {
	if r.m == nil {
		return err
	}
	r.m.runs.WithLabelValues(r.task, Outcome(err)).Inc()
	r.m.latency.WithLabelValues(r.task).Observe(time.Since(r.started).Seconds())
	return err
}

// Push counts one push gateway call.
func (m *Metrics) Push(kind string, err error) {
	if m == nil {
		return
	}
	result := "delivered"
	if err != nil {
		result = "failed"
	}
	m.pushes.WithLabelValues(kind, result).Inc()
}

// Reminders counts reminders enqueued for recipients of one designation.
func (m *Metrics) Reminders(designation string, n int) {
	if m == nil || n <= 0 {
		return
	}
	if designation == "" {
		designation = "unknown"
	}
	m.reminders.WithLabelValues(designation).Add(float64(n))
}
