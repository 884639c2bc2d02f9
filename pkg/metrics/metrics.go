package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the simulator's distributed
// scenario-sweep subsystem. Using promauto for automatic registration
// with the default registry. The simulation core itself
// (internal/scheduler and friends) never imports this package — these
// metrics are about runs as units of distributed work, never about
// individual scheduling ticks inside one run.
var (
	// --- Run Metrics ---

	// RunsTotal counts total runs by status.
	RunsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ftmgedf",
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of runs by status",
		},
		[]string{"status"},
	)

	// SimulationsTotal counts completed simulations by outcome.
	SimulationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "simulations",
			Name:      "total",
			Help:      "Total number of simulated runs by status and feasibility",
		},
		[]string{"status", "feasible"},
	)

	// SimulationDuration tracks wall-clock time spent simulating a run.
	SimulationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ftmgedf",
			Subsystem: "simulations",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of simulating a run",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"status"},
	)

	// TicksSimulated counts discrete scheduler ticks executed across all runs.
	TicksSimulated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "simulations",
			Name:      "ticks_total",
			Help:      "Total number of discrete scheduler ticks simulated",
		},
	)

	// DeadlineMissesTotal counts missed-deadline jobs observed across all runs.
	DeadlineMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "simulations",
			Name:      "deadline_misses_total",
			Help:      "Total number of missed-deadline jobs observed",
		},
	)

	// FaultInjectionsTotal counts fault-generator transitions by kind.
	FaultInjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "simulations",
			Name:      "fault_injections_total",
			Help:      "Total number of fault-generator transitions by kind",
		},
		[]string{"kind"}, // transient, permanent
	)

	// --- Sweep Daemon Metrics ---

	// SweepCycles counts schedulability-sweep cron cycles.
	SweepCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "sweep",
			Name:      "cycles_total",
			Help:      "Total number of schedulability-sweep cycles run",
		},
	)

	// ScenariosGenerated counts synthetic scenarios dispatched per sweep cycle.
	ScenariosGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "sweep",
			Name:      "scenarios_generated_total",
			Help:      "Total number of synthetic scenarios generated and dispatched",
		},
	)

	// OrphansReaped counts orphaned runs cleaned up by the reconcile loop.
	OrphansReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "sweep",
			Name:      "orphans_reaped_total",
			Help:      "Total number of orphaned runs cleaned up",
		},
	)

	// RetriesTotal counts run retries.
	RetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "sweep",
			Name:      "retries_total",
			Help:      "Total number of run retries",
		},
	)

	// --- Worker / Cluster Metrics ---

	// ActiveNodes tracks number of active worker nodes.
	ActiveNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ftmgedf",
			Subsystem: "cluster",
			Name:      "active_nodes",
			Help:      "Number of active worker nodes",
		},
	)

	// WorkerRunsInFlight tracks concurrent runs being simulated on this worker.
	WorkerRunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ftmgedf",
			Subsystem: "worker",
			Name:      "runs_in_flight",
			Help:      "Number of runs currently being simulated on this worker",
		},
	)

	// HeartbeatsSent counts heartbeats sent by a worker.
	HeartbeatsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "worker",
			Name:      "heartbeats_total",
			Help:      "Total heartbeats sent",
		},
	)

	// ForecastCallsTotal counts forecast sidecar calls by outcome.
	ForecastCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftmgedf",
			Subsystem: "worker",
			Name:      "forecast_calls_total",
			Help:      "Total number of fault-risk forecast calls by outcome",
		},
		[]string{"outcome"}, // ok, error, circuit_open
	)

	// --- Queue Metrics ---

	// QueueDepth tracks pending scenarios in the sweep queue.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ftmgedf",
			Subsystem: "queue",
			Name:      "pending_scenarios",
			Help:      "Number of scenarios pending in the sweep queue",
		},
	)
)

// RecordSimulation records metrics for one completed run.
func RecordSimulation(status string, feasible bool, durationSeconds float64, ticks int64, missedJobs int) {
	SimulationsTotal.WithLabelValues(status, boolLabel(feasible)).Inc()
	SimulationDuration.WithLabelValues(status).Observe(durationSeconds)
	TicksSimulated.Add(float64(ticks))
	DeadlineMissesTotal.Add(float64(missedJobs))
}

// RecordFaultInjection records a fault-generator transition.
func RecordFaultInjection(kind string) {
	FaultInjectionsTotal.WithLabelValues(kind).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
