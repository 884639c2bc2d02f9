// Package sweep is the leader-elected daemon side of the distributed
// scenario-sweep subsystem: on a cron schedule it synthesizes fresh random
// task sets across a spread of utilization/period presets, packages each as
// a ScenarioRequest, and dispatches it to the worker queue. It also runs
// the reconcile loop that reaps runs orphaned by a dead worker and retries
// runs that failed to simulate.
package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	config "ftmgedf/configs"
	"ftmgedf/internal/fault"
	"ftmgedf/internal/loader"
	"ftmgedf/internal/schedulability"
	"ftmgedf/pkg/coordination"
	"ftmgedf/pkg/metrics"
	"ftmgedf/pkg/models"
	tracing "ftmgedf/pkg/observability"
	"ftmgedf/pkg/storage"
)

// preset pairs a utilization distribution with a period distribution; every
// preset below is swept each cycle. The three presets are drawn from the
// original synthesizer's light/medium-light/medium x short/long grid.
type preset struct {
	name   string
	util   schedulability.UtilFunc
	period schedulability.PeriodFunc
}

var presets = []preset{
	{"light-short", schedulability.LightUtil, schedulability.ShortPeriod},
	{"medium-light-short", schedulability.MediumLightUtil, schedulability.ShortPeriod},
	{"medium-long", schedulability.MediumUtil, schedulability.LongPeriod},
}

// Daemon owns the cron schedule, the default core config applied to swept
// scenarios, and the reconcile/retry bookkeeping.
type Daemon struct {
	runStore    storage.RunStore
	queue       storage.Queue
	coordinator coordination.Coordinator

	schedule       cron.Schedule
	defaultCfg     models.CoreConfig
	horizon        int64
	targetUtilFrac float64
	tracer         *tracing.Provider

	reconcileInterval time.Duration
	pollInterval      time.Duration
}

// NewDaemon parses the configured sweep cron expression and constructs a
// daemon ready to run, using the teacher's cron.Parser/schedule.Next
// pattern verbatim.
func NewDaemon(cfg *config.Config, runStore storage.RunStore, queue storage.Queue, coord coordination.Coordinator, tracer *tracing.Provider) (*Daemon, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cfg.SweepCron)
	if err != nil {
		return nil, fmt.Errorf("sweep: invalid cron expression %q: %w", cfg.SweepCron, err)
	}

	return &Daemon{
		runStore:    runStore,
		queue:       queue,
		coordinator: coord,
		schedule:    schedule,
		defaultCfg: models.CoreConfig{
			NumCores:          cfg.NumCores,
			NumFaulty:         cfg.NumFaulty,
			ActiveBackups:     cfg.ActiveBackups,
			LambdaC:           cfg.LambdaC,
			LambdaB:           cfg.LambdaB,
			LambdaR:           cfg.LambdaR,
			BurstyChance:      cfg.BurstyChance,
			FaultPeriodScaler: cfg.FaultPeriodScaler,
		},
		horizon:           cfg.SweepHorizon,
		targetUtilFrac:    cfg.SweepTargetUtilFraction,
		tracer:            tracer,
		reconcileInterval: 30 * time.Second,
		pollInterval:      10 * time.Second,
	}, nil
}

// Run drives the sweep-generation and reconcile loops. It blocks until ctx
// is cancelled.
func (d *Daemon) Run(ctx context.Context, election coordination.Election) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	reconcileTicker := time.NewTicker(d.reconcileInterval)
	defer reconcileTicker.Stop()

	nextRun := d.schedule.Next(time.Now())
	log.Printf("[Sweep] First generation cycle scheduled for %s", nextRun)

	for {
		select {
		case <-ctx.Done():
			log.Println("[Sweep] Shutting down...")
			return

		case <-ticker.C:
			// Note: strict check should match our ID, simplifying for the MVP.
			leader, err := election.Leader(ctx)
			if err != nil {
				log.Printf("[Sweep] Error checking leadership: %v", err)
				continue
			}
			_ = leader

			now := time.Now()
			if now.Before(nextRun) {
				continue
			}
			if err := d.GenerateAndDispatch(ctx); err != nil {
				log.Printf("[Sweep] Error generating scenarios: %v", err)
			}
			nextRun = d.schedule.Next(now)
			log.Printf("[Sweep] Next generation cycle scheduled for %s", nextRun)

		case <-reconcileTicker.C:
			leader, err := election.Leader(ctx)
			if err != nil {
				continue
			}
			_ = leader

			if err := d.Reconcile(ctx); err != nil {
				log.Printf("[Sweep] Error in reconcile loop: %v", err)
			}
		}
	}
}

// GenerateAndDispatch synthesizes one scenario per preset in the sweep
// grid, persists each as a PENDING run, and pushes it to the queue.
func (d *Daemon) GenerateAndDispatch(ctx context.Context) error {
	ctx, span := d.tracer.StartSpan(ctx, "sweep.generate_and_dispatch")
	defer span.End()

	metrics.SweepCycles.Inc()

	for _, p := range presets {
		span.AddEvent("dispatch_preset", trace.WithAttributes(attribute.String("preset", p.name)))
		seed := rand.Uint64()
		rng := fault.NewRNG(seed)

		targetUtil := float64(d.defaultCfg.NumCores) * d.targetUtilFrac
		generated := schedulability.GenerateRandomTaskSet(rng, targetUtil, p.util, p.period)

		taskSetJSON, err := marshalTaskSet(generated, d.horizon)
		if err != nil {
			log.Printf("[Sweep] Failed to marshal %s scenario: %v", p.name, err)
			continue
		}

		cfg := d.defaultCfg
		cfg.Seed = rand.Uint64()

		runID := uuid.New()
		run := &models.Run{
			ID:          runID,
			TaskSetJSON: taskSetJSON,
			Config:      cfg,
			StartTime:   0,
			EndTime:     d.horizon,
			Status:      models.RunPending,
			ScheduledAt: time.Now(),
		}

		if err := d.runStore.CreateRun(ctx, run); err != nil {
			log.Printf("[Sweep] Failed to persist %s scenario: %v", p.name, err)
			continue
		}

		req := &models.ScenarioRequest{
			RunID:       runID,
			TaskSetJSON: taskSetJSON,
			Config:      cfg,
			StartTime:   0,
			EndTime:     d.horizon,
			Attempt:     0,
		}
		if err := d.queue.Push(ctx, req); err != nil {
			log.Printf("[Sweep] Failed to push %s scenario: %v", p.name, err)
			continue
		}

		metrics.ScenariosGenerated.Inc()
		log.Printf("[Sweep] Dispatched %s scenario as run %s (%d tasks)", p.name, runID, len(generated))
	}

	return nil
}

// marshalTaskSet renders generated tasks as a loader.Document, the same
// wire shape internal/loader parses for an externally submitted task set.
func marshalTaskSet(tasks []schedulability.GeneratedTask, horizon int64) (json.RawMessage, error) {
	doc := loader.Document{StartTime: 0, EndTime: float64(horizon)}
	for _, t := range tasks {
		doc.TaskSet = append(doc.TaskSet, loader.TaskSpec{
			TaskID: t.TaskID,
			Period: float64(t.Period),
			WCET:   float64(t.WCET),
		})
	}
	return json.Marshal(doc)
}

// Reconcile reaps runs orphaned by a dead worker node and retries recent
// simulation failures.
func (d *Daemon) Reconcile(ctx context.Context) error {
	nodes, err := d.coordinator.GetActiveNodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to get active nodes: %w", err)
	}

	count, err := d.runStore.MarkOrphansAsFailed(ctx, nodes)
	if err != nil {
		return fmt.Errorf("failed to reap orphans: %w", err)
	}
	if count > 0 {
		log.Printf("[Sweep] Reaped %d orphaned runs from dead nodes", count)
		metrics.OrphansReaped.Add(float64(count))
	}

	if err := d.RetryFailures(ctx); err != nil {
		log.Printf("[Sweep] Error retrying failures: %v", err)
	}

	return nil
}

const maxRetries = 3

// RetryFailures finds recently failed runs and resubmits them immediately
// as attempt 1. The jittered exponential backoff for that attempt is
// computed and logged only: the push is not delayed, and no attempt count is
// read from the run record.
func (d *Daemon) RetryFailures(ctx context.Context) error {
	since := time.Now().Add(-2 * time.Minute)
	failures, err := d.runStore.ListRecentFailures(ctx, since, 20)
	if err != nil {
		return err
	}

	for _, failure := range failures {
		// No "retried" flag on the run record yet, so a fast-enough
		// reconcile loop could in principle resubmit the same failure
		// twice; acceptable for this MVP, same caveat the original
		// poll loop carried for job retries.
		attempt := 1
		if attempt > maxRetries {
			continue
		}

		backoff := calculateBackoff(attempt)

		req := &models.ScenarioRequest{
			RunID:       failure.ID,
			TaskSetJSON: failure.TaskSetJSON,
			Config:      failure.Config,
			StartTime:   failure.StartTime,
			EndTime:     failure.EndTime,
			Attempt:     attempt,
		}

		if err := d.queue.Push(ctx, req); err != nil {
			log.Printf("[Sweep] Failed to push retry for run %s: %v", failure.ID, err)
			continue
		}

		metrics.RetriesTotal.Inc()
		log.Printf("[Sweep] Resubmitted retry %d/%d for run %s (computed backoff %s, not applied)", attempt, maxRetries, failure.ID, backoff)
	}
	return nil
}

// calculateBackoff computes exponential backoff with +/-20% jitter for a
// retry attempt, the same shape the teacher's scheduler applied to failed
// shell jobs.
func calculateBackoff(attempt int) time.Duration {
	initial := 5 * time.Second
	maxInterval := 5 * time.Minute

	backoff := float64(initial) * math.Pow(2, float64(attempt))
	if backoff > float64(maxInterval) {
		backoff = float64(maxInterval)
	}

	jitter := (rand.Float64() - 0.5) * 0.4 * backoff
	backoff += jitter

	return time.Duration(backoff)
}
