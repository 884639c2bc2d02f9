// Package worker is the scenario-consuming side of the distributed
// scenario-sweep subsystem: it pops ScenarioRequests off the queue,
// simulates each with internal/scheduler, and persists the resulting
// feasibility verdict. It owns no scheduling logic of its own — the
// simulation core never imports this package, and this package never
// alters a scheduling decision based on anything it learns from the
// forecast sidecar.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/mem"
	"go.opentelemetry.io/otel/attribute"

	config "ftmgedf/configs"
	"ftmgedf/internal/core"
	"ftmgedf/internal/fault"
	"ftmgedf/internal/loader"
	"ftmgedf/internal/schedule"
	"ftmgedf/internal/scheduler"
	"ftmgedf/pkg/coordination"
	"ftmgedf/pkg/forecast"
	"ftmgedf/pkg/metrics"
	"ftmgedf/pkg/models"
	tracing "ftmgedf/pkg/observability"
	"ftmgedf/pkg/resilience"
	"ftmgedf/pkg/storage"
	"ftmgedf/pkg/storage/archive"
)

const consumerGroup = "ftmgedf-workers"

// Worker simulates scenarios popped from the queue and reports results.
type Worker struct {
	ID       string
	Hostname string

	// Resources
	TotalCPU int
	TotalMem uint64 // In MB

	coordinator coordination.Coordinator
	queue       storage.Queue
	runStore    storage.RunStore
	archiver    archive.Store
	forecaster  *forecast.Client
	breaker     *resilience.CircuitBreaker
	tracer      *tracing.Provider

	archiveThreshold int64
	interval         time.Duration
}

func NewWorker(cfg *config.Config, coord coordination.Coordinator, queue storage.Queue, runStore storage.RunStore, archiver archive.Store, forecaster *forecast.Client, tracer *tracing.Provider) *Worker {
	hostname, _ := os.Hostname()
	id := fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])

	return &Worker{
		ID:               id,
		Hostname:         hostname,
		TotalCPU:         runtime.NumCPU(),
		TotalMem:         detectTotalMemory(),
		coordinator:      coord,
		queue:            queue,
		runStore:         runStore,
		archiver:         archiver,
		forecaster:       forecaster,
		breaker:          resilience.NewCircuitBreaker("forecast", resilience.DefaultCircuitBreakerConfig()),
		tracer:           tracer,
		archiveThreshold: cfg.ArchiveThresholdBytes,
		interval:         5 * time.Second,
	}
}

func detectTotalMemory() uint64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("[Worker] Warning: Failed to detect memory: %v. Defaulting to 1GB.", err)
		return 1024
	}
	return v.Total / 1024 / 1024
}

// Start begins the worker's heartbeat and simulation loops.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("[Worker %s] Starting up using %d CPUs...", w.ID, w.TotalCPU)

	if err := w.queue.EnsureGroup(ctx, consumerGroup); err != nil {
		log.Printf("[Worker] Warning: Failed to ensure consumer group: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.RegisterHeartbeat(ctx); err != nil {
					log.Printf("[Worker] Heartbeat failed: %v", err)
				}
			}
		}
	}()

	log.Printf("[Worker] Waiting for scenarios... (Concurrency: %d)", w.TotalCPU)

	sem := make(chan struct{}, w.TotalCPU)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			sem <- struct{}{}
			go func() {
				defer func() { <-sem }()
				w.consumeOne(ctx)
			}()
		}
	}
}

func (w *Worker) consumeOne(ctx context.Context) {
	msgID, req, err := w.queue.Pop(ctx, consumerGroup, w.ID)
	if err != nil {
		log.Printf("[Worker] Error popping scenario: %v", err)
		time.Sleep(1 * time.Second)
		return
	}
	if req == nil {
		time.Sleep(1 * time.Second)
		return
	}

	if run, err := w.runStore.GetRun(ctx, req.RunID); err == nil && run.Status == models.RunCancelled {
		log.Printf("[Worker] Run %s was cancelled; skipping", req.RunID)
		_ = w.queue.Ack(ctx, consumerGroup, msgID)
		return
	}

	metrics.WorkerRunsInFlight.Inc()
	defer metrics.WorkerRunsInFlight.Dec()

	log.Printf("[Worker] Simulating run %s (attempt %d)", req.RunID, req.Attempt)

	if err := w.runStore.UpdateRunState(ctx, req.RunID, w.ID, time.Now()); err != nil {
		log.Printf("[Worker] Failed to report run state: %v", err)
	}

	spanCtx, span := w.tracer.StartSpan(ctx, "worker.simulate")
	span.SetAttributes(
		attribute.String("run_id", req.RunID.String()),
		attribute.Int("attempt", req.Attempt),
	)

	start := time.Now()
	rec, simErr := w.simulate(req)
	duration := time.Since(start)

	if simErr != nil {
		span.RecordError(simErr)
	}
	span.End()
	ctx = spanCtx

	if simErr != nil {
		log.Printf("[Worker] Run %s failed to simulate: %v", req.RunID, simErr)
		metrics.RecordSimulation(string(models.RunFailed), false, duration.Seconds(), 0, 0)
		if err := w.runStore.UpdateResult(ctx, req.RunID, models.RunFailed, false, 0, 0, ""); err != nil {
			log.Printf("[Worker] Failed to report failure: %v", err)
		}
		_ = w.queue.Ack(ctx, consumerGroup, msgID)
		return
	}

	feasible := rec.Feasible()
	missed := len(rec.MissedJobs)
	unresolved := len(rec.UnresolvedTuples)
	ticks := rec.EndTime - rec.StartTime

	log.Printf("[Worker] Run %s simulated: feasible=%v missed=%d unresolved=%d duration=%s",
		req.RunID, feasible, missed, unresolved, duration)

	w.recordFaultInjections(rec)

	scheduleURI := w.archiveSchedule(ctx, req.RunID.String(), rec)
	w.forecastCoreRisk(ctx, req)

	metrics.RecordSimulation(string(models.RunSuccess), feasible, duration.Seconds(), ticks, missed)

	if err := w.runStore.UpdateResult(ctx, req.RunID, models.RunSuccess, feasible, missed, unresolved, scheduleURI); err != nil {
		log.Printf("[Worker] Failed to report result: %v", err)
	}

	if err := w.queue.Ack(ctx, consumerGroup, msgID); err != nil {
		log.Printf("[Worker] Failed to ack scenario: %v", err)
	}
}

// simulate builds the task/core sets from the request and runs the G-EDF
// tick loop to completion. It is the only place pkg/worker touches
// internal/*; everything after this is persistence and telemetry.
func (w *Worker) simulate(req *models.ScenarioRequest) (*schedule.Record, error) {
	doc, err := loader.Parse(bytes.NewReader(req.TaskSetJSON))
	if err != nil {
		return nil, fmt.Errorf("parse task set: %w", err)
	}

	taskSet, err := loader.Build(doc, req.Config.ActiveBackups)
	if err != nil {
		return nil, fmt.Errorf("build task set: %w", err)
	}

	cores := core.NewSet(req.Config.NumCores, req.Config.NumFaulty)
	faultParams := fault.Params{
		BurstyChance:      req.Config.BurstyChance,
		FaultPeriodScaler: req.Config.FaultPeriodScaler,
		LambdaC:           req.Config.LambdaC,
		LambdaB:           req.Config.LambdaB,
		LambdaR:           req.Config.LambdaR,
	}
	rng := fault.NewRNG(req.Config.Seed)

	s := scheduler.New(taskSet, cores, faultParams, rng)
	return s.Run(req.StartTime, req.EndTime), nil
}

// recordFaultInjections approximates a per-kind fault-injection count from
// the completed schedule: one "transient" count per FAIL interval logged.
// It is telemetry only, derived after the fact; the fault generator itself
// never reports through pkg/metrics.
func (w *Worker) recordFaultInjections(rec *schedule.Record) {
	for _, iv := range rec.Intervals {
		if iv.Kind == schedule.KindFail {
			metrics.RecordFaultInjection("transient")
		}
	}
}

// archiveSchedule persists the full schedule document to the archive store
// when its marshaled size reaches the archive threshold, returning the
// stored reference. Below the threshold, without an archiver, or on error it
// returns an empty string and the schedule document is not persisted; the
// run record keeps only the summary counts.
func (w *Worker) archiveSchedule(ctx context.Context, runID string, rec *schedule.Record) string {
	doc, err := rec.MarshalJSON()
	if err != nil {
		log.Printf("[Worker] Failed to marshal schedule for run %s: %v", runID, err)
		return ""
	}
	if int64(len(doc)) < w.archiveThreshold || w.archiver == nil {
		return ""
	}
	uri, err := w.archiver.Save(ctx, runID, doc)
	if err != nil {
		log.Printf("[Worker] Failed to archive schedule for run %s: %v", runID, err)
		return ""
	}
	return uri
}

// forecastCoreRisk is a best-effort, fail-open call to the forecast
// sidecar, guarded by a circuit breaker. Its result is logged and counted
// only; nothing here feeds back into the simulation.
func (w *Worker) forecastCoreRisk(ctx context.Context, req *models.ScenarioRequest) {
	if w.forecaster == nil {
		return
	}
	features := map[string]interface{}{
		"numFaulty":    req.Config.NumFaulty,
		"lambdaC":      req.Config.LambdaC,
		"burstyChance": req.Config.BurstyChance,
	}
	err := w.breaker.Execute(ctx, func() error {
		_, ferr := w.forecaster.ForecastCoreRisk(req.Config.NumFaulty, features)
		return ferr
	})
	switch {
	case err == resilience.ErrCircuitOpen:
		metrics.ForecastCallsTotal.WithLabelValues("circuit_open").Inc()
	case err != nil:
		metrics.ForecastCallsTotal.WithLabelValues("error").Inc()
		log.Printf("[Worker] forecast call failed (ignored): %v", err)
	default:
		metrics.ForecastCallsTotal.WithLabelValues("ok").Inc()
	}
}

// RegisterHeartbeat updates the node's membership lease in Etcd.
func (w *Worker) RegisterHeartbeat(ctx context.Context) error {
	if err := w.coordinator.RegisterNode(ctx, w.ID, 10); err != nil {
		return fmt.Errorf("failed to register node: %w", err)
	}
	metrics.HeartbeatsSent.Inc()
	return nil
}
