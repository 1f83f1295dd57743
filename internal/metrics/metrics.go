package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"clinic_app_echo/internal/models"
)

// ClinicMetrics exposes counters/histograms for billing and reporting.
// It satisfies billing.Observer.
type ClinicMetrics struct {
	recordsCreated   *prometheus.CounterVec
	trialsConsumed   prometheus.Counter
	trialGuardMisses prometheus.Counter
	dashboardLatency prometheus.Histogram
	tasksRun         *prometheus.CounterVec
}

func NewClinicMetrics(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		recordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "billing",
			Name:      "records_created_total",
			Help:      "Total records created by billing status",
		}, []string{"status"}),
		trialsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "billing",
			Name:      "trials_consumed_total",
			Help:      "Total free trials consumed",
		}),
		trialGuardMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "billing",
			Name:      "trial_guard_misses_total",
			Help:      "Bookings that expected a free trial but found none left at decrement time",
		}),
		dashboardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "reporting",
			Name:      "dashboard_build_seconds",
			Help:      "Latency of building the dashboard report",
			Buckets:   prometheus.DefBuckets,
		}),
		tasksRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "worker",
			Name:      "tasks_run_total",
			Help:      "Scheduled task executions by task and outcome",
		}, []string{"task", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.recordsCreated, m.trialsConsumed, m.trialGuardMisses, m.dashboardLatency, m.tasksRun)
	return m
}

func (m *ClinicMetrics) RecordCreated(status models.RecordStatus) {
	if m == nil {
		return
	}
	m.recordsCreated.WithLabelValues(string(status)).Inc()
}

func (m *ClinicMetrics) TrialConsumed() {
	if m == nil {
		return
	}
	m.trialsConsumed.Inc()
}

func (m *ClinicMetrics) TrialGuardMissed() {
	if m == nil {
		return
	}
	m.trialGuardMisses.Inc()
}

func (m *ClinicMetrics) ObserveDashboard(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dashboardLatency.Observe(elapsed.Seconds())
}

func (m *ClinicMetrics) ObserveTask(task, status string) {
	if m == nil {
		return
	}
	m.tasksRun.WithLabelValues(task, status).Inc()
}
