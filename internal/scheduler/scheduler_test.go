package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftmgedf/internal/core"
	"ftmgedf/internal/fault"
	"ftmgedf/internal/schedule"
	"ftmgedf/internal/scheduler"
	"ftmgedf/internal/task"
)

// zeroRNG never draws a fault: Uniform always returns 1 (never below any
// lambda threshold), and Geometric returns a very long sojourn so no
// faulty core's regime ever matters in a stable-cores-only scenario.
type zeroRNG struct{}

func (zeroRNG) Uniform() float64         { return 1 }
func (zeroRNG) Geometric(p float64) int64 { return 1 << 30 }

// alwaysRNG always draws a fault: Uniform returns 0, below any positive
// lambda threshold.
type alwaysRNG struct{}

func (alwaysRNG) Uniform() float64         { return 0 }
func (alwaysRNG) Geometric(p float64) int64 { return 1 }

func noFaultParams() fault.Params {
	return fault.Params{BurstyChance: 0.5, FaultPeriodScaler: 1}
}

func buildSet(t *testing.T, activeBackups int, specs ...[5]int64) *task.Set {
	t.Helper()
	set := task.NewSet(activeBackups)
	for _, s := range specs {
		id, offset, period, wcet, deadline := s[0], s[1], s[2], s[3], s[4]
		tsk, err := task.New(int(id), offset, period, wcet, deadline)
		require.NoError(t, err)
		require.NoError(t, set.AddTask(tsk))
	}
	return set
}

func release(t *testing.T, set *task.Set, taskID int, times ...int64) {
	t.Helper()
	for _, r := range times {
		_, err := set.Release(taskID, r)
		require.NoError(t, err)
	}
}

// S1: 1 stable core, one task T=3,C=1,D=3,offset=0, horizon [0,6): EXEC
// intervals [0,1) and [3,4) on core 0, all deadlines met.
func TestS1SingleStableCoreSingleTask(t *testing.T) {
	set := buildSet(t, 0, [5]int64{1, 0, 3, 1, 3})
	release(t, set, 1, 0, 3)

	cores := core.NewSet(1, 0)
	s := scheduler.New(set, cores, noFaultParams(), zeroRNG{})
	rec := s.Run(0, 6)

	require.True(t, rec.Feasible())

	var execs []schedule.Interval
	for _, iv := range rec.Intervals {
		if iv.Kind == schedule.KindExec {
			execs = append(execs, iv)
		}
	}
	require.Len(t, execs, 2)
	assert.Equal(t, int64(0), execs[0].Start)
	assert.Equal(t, int64(1), execs[0].End)
	assert.Equal(t, int64(3), execs[1].Start)
	assert.Equal(t, int64(4), execs[1].End)
	assert.Equal(t, 0, execs[0].CoreID)
}

// S4: single faulty core with lambdaC=1 (always permanent failure), no
// stable cores: after tick 0 the core is inactive forever, queue is
// non-empty at horizon end, infeasible.
func TestS4PermanentFailureNoStableCores(t *testing.T) {
	set := buildSet(t, 0, [5]int64{1, 0, 5, 2, 5})
	release(t, set, 1, 0)

	cores := core.NewSet(1, 1)
	params := fault.Params{BurstyChance: 0.5, FaultPeriodScaler: 1, LambdaC: 1.0}
	s := scheduler.New(set, cores, params, alwaysRNG{})
	rec := s.Run(0, 10)

	assert.False(t, rec.Feasible())
	assert.NotEmpty(t, rec.UnresolvedTuples)
}

// Invariant 7: stable cores (IsFaulty == false) never emit a FAIL interval.
func TestStableCoresNeverFail(t *testing.T) {
	set := buildSet(t, 0, [5]int64{1, 0, 4, 2, 4})
	release(t, set, 1, 0, 4, 8)

	cores := core.NewSet(2, 1) // core 0 faulty, core 1 stable
	params := fault.Params{BurstyChance: 0.9, FaultPeriodScaler: 1, LambdaC: 0.3, LambdaB: 0.9, LambdaR: 0.9}
	s := scheduler.New(set, cores, params, fault.NewRNG(42))
	rec := s.Run(0, 12)

	for _, iv := range rec.Intervals {
		if iv.Kind == schedule.KindFail {
			assert.Equal(t, 0, iv.CoreID, "only the faulty core may fail")
		}
	}
}

// Open question #1: on a transient fault, the victim's tuple is dropped
// (not re-queued) and reappears via passive release exactly one tick
// later as a fresh replica.
func TestTransientFaultResurrectsViaPassiveRelease(t *testing.T) {
	set := buildSet(t, 0, [5]int64{1, 0, -1, 2, 10})
	// The second release keeps the queue non-empty so the tick loop is
	// still running when the victim's replica is resurrected.
	release(t, set, 1, 0, 8)

	cores := core.NewSet(1, 1)
	params := fault.Params{BurstyChance: 1.0, FaultPeriodScaler: 1, LambdaB: 0.5, LambdaR: 0.5}

	// onceFailingRNG{skip: 1}: the tick-0 draw keeps the core active so the
	// primary runs one tick; the tick-1 draw lands in the "transient fault"
	// band (below LambdaB) and drops it; every later draw clears so the
	// resurrected replica can complete.
	s := scheduler.New(set, cores, params, &onceFailingRNG{skip: 1})
	rec := s.Run(0, 10)

	var fails, execs int
	resurrectedAt := int64(-1)
	for _, iv := range rec.Intervals {
		switch iv.Kind {
		case schedule.KindFail:
			fails++
		case schedule.KindExec:
			execs++
			if iv.TaskID == 1 && iv.JobID == 0 && iv.BackupID == 1 && resurrectedAt < 0 {
				resurrectedAt = iv.Start
			}
		}
	}
	assert.Equal(t, 1, fails, "exactly one lost tick to the transient fault")
	assert.Positive(t, execs)
	assert.Equal(t, int64(2), resurrectedAt, "passive replica runs the tick after the fault at t=1")
	assert.True(t, rec.Feasible())
}

// onceFailingRNG returns a faulting draw on call skip+1 only.
type onceFailingRNG struct{ skip, calls int }

func (r *onceFailingRNG) Uniform() float64 {
	r.calls++
	if r.calls == r.skip+1 {
		return 0.1 // below LambdaB: forces the transient-fault branch
	}
	return 0.9 // above LambdaB/LambdaR: stays active otherwise
}
func (r *onceFailingRNG) Geometric(p float64) int64 { return 1 << 30 }

// Post-processing is idempotent: running it twice yields the same result.
func TestPostProcessIdempotent(t *testing.T) {
	set := buildSet(t, 0, [5]int64{1, 0, 3, 1, 3}, [5]int64{2, 0, 2, 1, 2})
	release(t, set, 1, 0, 3)
	release(t, set, 2, 0, 2, 4)

	cores := core.NewSet(1, 0)
	s := scheduler.New(set, cores, noFaultParams(), zeroRNG{})
	rec := s.Run(0, 6)

	once := schedule.PostProcess(rec.Intervals, rec.EndTime)
	twice := schedule.PostProcess(once, rec.EndTime)
	assert.Equal(t, once, twice)
}

// Conservation: every completed replica's EXEC ticks sum to exactly its
// task's WCET.
func TestConservationOfExecutionTime(t *testing.T) {
	set := buildSet(t, 0, [5]int64{1, 0, 5, 3, 5})
	release(t, set, 1, 0)

	cores := core.NewSet(1, 0)
	s := scheduler.New(set, cores, noFaultParams(), zeroRNG{})
	rec := s.Run(0, 10)

	total := int64(0)
	for _, iv := range rec.Intervals {
		if iv.Kind == schedule.KindExec && iv.TaskID == 1 && iv.JobID == 0 {
			total += iv.End - iv.Start
		}
	}
	assert.Equal(t, int64(3), total)
}

// Regression: a faulty core that never draws a fault must accumulate
// execution progress across ticks exactly like a stable core. Activate()
// used to unconditionally clear an already-active core's job every tick
// the fault generator's "no fault" branch fired, so a healthy faulty core
// could never make more than one tick of progress on a job: the job kept
// getting wiped and resynthesized from a fresh, full-WCET passive replica.
func TestFaultyCoreHealthyMakesMultiTickProgress(t *testing.T) {
	set := buildSet(t, 0, [5]int64{1, 0, -1, 3, 10})
	release(t, set, 1, 0)

	cores := core.NewSet(1, 1) // the one core is faulty, but zeroRNG never faults it
	s := scheduler.New(set, cores, noFaultParams(), zeroRNG{})
	rec := s.Run(0, 10)

	require.True(t, rec.Feasible())
	require.Empty(t, rec.UnresolvedTuples)

	total := int64(0)
	completions := 0
	for _, iv := range rec.Intervals {
		if iv.Kind == schedule.KindExec && iv.TaskID == 1 && iv.JobID == 0 {
			total += iv.End - iv.Start
			if iv.Completed {
				completions++
			}
		}
	}
	assert.Equal(t, int64(3), total, "the job's 3 WCET ticks must be its own progress, not 3 fresh one-tick replicas")
	assert.Equal(t, 1, completions)
}

// S2: 2 stable cores, 3 tasks released together with staggered deadlines
// (3, 5, 7) and WCET 2 each: G-EDF must place the two most urgent jobs on
// the two cores immediately, hold the third queued until a core frees, and
// never preempt a running job for a less urgent one.
func TestS2MultiCoreEDFPlacement(t *testing.T) {
	set := buildSet(t, 0,
		[5]int64{1, 0, -1, 2, 3},
		[5]int64{2, 0, -1, 2, 5},
		[5]int64{3, 0, -1, 2, 7},
	)
	release(t, set, 1, 0)
	release(t, set, 2, 0)
	release(t, set, 3, 0)

	cores := core.NewSet(2, 0)
	s := scheduler.New(set, cores, noFaultParams(), zeroRNG{})
	rec := s.Run(0, 8)

	require.True(t, rec.Feasible())

	finish := make(map[int]int64)
	for _, iv := range rec.Intervals {
		if iv.Kind == schedule.KindExec && iv.Completed {
			finish[iv.TaskID] = iv.End
		}
	}
	require.Len(t, finish, 3)
	assert.LessOrEqual(t, finish[1], int64(3), "deadline-3 task must finish by its deadline")
	assert.LessOrEqual(t, finish[2], int64(5), "deadline-5 task must finish by its deadline")
	assert.LessOrEqual(t, finish[3], int64(7), "deadline-7 task must finish by its deadline")
	assert.LessOrEqual(t, finish[1], finish[2], "more urgent task finishes no later than the next")
	assert.LessOrEqual(t, finish[2], finish[3])
}

// S3: one stable core beside an always-permanently-failing faulty core,
// with one active backup configured. The faulty core must fail on its
// first tick (never dispatching), and the primary replica — not the
// active backup — must be the one the stable core runs to completion: a
// tie in priority resolves to whichever replica was admitted first.
func TestS3ActiveBackupBesideAlwaysFailingFaultyCore(t *testing.T) {
	set := buildSet(t, 1, [5]int64{1, 0, -1, 2, 5})
	release(t, set, 1, 0)

	cores := core.NewSet(2, 1) // core 0 faulty, core 1 stable
	params := fault.Params{BurstyChance: 0.5, FaultPeriodScaler: 1, LambdaC: 1.0}
	s := scheduler.New(set, cores, params, alwaysRNG{})
	rec := s.Run(0, 8)

	require.True(t, rec.Feasible())

	for _, iv := range rec.Intervals {
		if iv.Kind == schedule.KindFail {
			assert.Equal(t, 0, iv.CoreID, "only the faulty core may fail")
		}
		if iv.Kind == schedule.KindExec {
			assert.Equal(t, 1, iv.CoreID, "the stable core is the only one ever dispatched to")
		}
	}

	completed := 0
	for _, iv := range rec.Intervals {
		if iv.Kind == schedule.KindExec && iv.Completed {
			completed++
			assert.Equal(t, 0, iv.BackupID, "the primary replica completes the tuple, not the active backup")
		}
	}
	assert.Equal(t, 1, completed, "exactly one replica completes the tuple")
}

// S5: overload on a single stable core — two equal-WCET, equal-deadline
// tasks released together can't both finish in time. The lower-id task
// wins the tie and meets its deadline; the other is reported as a missed
// job even though it does eventually complete (feasibility still fails).
func TestS5OverloadReportsMissedDeadline(t *testing.T) {
	set := buildSet(t, 0,
		[5]int64{1, 0, -1, 3, 3},
		[5]int64{2, 0, -1, 3, 3},
	)
	release(t, set, 1, 0)
	release(t, set, 2, 0)

	cores := core.NewSet(1, 0)
	s := scheduler.New(set, cores, noFaultParams(), zeroRNG{})
	rec := s.Run(0, 10)

	assert.False(t, rec.Feasible())
	require.Len(t, rec.MissedJobs, 1)
	assert.Equal(t, 2, rec.MissedJobs[0].TaskID)
	assert.Empty(t, rec.UnresolvedTuples, "the missed job still eventually completes")
}

// S6: passive backup on a single faulty core, two jobs of the same task
// released five ticks apart (the minimum period separation given this
// WCET/deadline). Invariant 1: at most one replica per (taskId, jobId) is
// ever admitted, so no BackupID beyond the original primary should ever
// appear, and each tuple completes exactly once.
func TestS6PassiveBackupUniqueness(t *testing.T) {
	set := buildSet(t, 0, [5]int64{1, 0, 5, 2, 5})
	release(t, set, 1, 0, 5)

	cores := core.NewSet(1, 1)
	params := fault.Params{BurstyChance: 1.0, FaultPeriodScaler: 1, LambdaB: 0.5, LambdaR: 0.5}
	s := scheduler.New(set, cores, params, &onceFailingRNG{})
	rec := s.Run(0, 12)

	require.True(t, rec.Feasible())

	completions := map[int]int{}
	for _, iv := range rec.Intervals {
		assert.Equal(t, 0, iv.BackupID, "no passive backup should ever be needed here")
		if iv.Kind == schedule.KindExec && iv.Completed {
			completions[iv.JobID]++
		}
	}
	assert.Equal(t, 1, completions[0], "job 0's tuple completes exactly once")
	assert.Equal(t, 1, completions[1], "job 1's tuple completes exactly once")
}
