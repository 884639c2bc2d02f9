// Package schedulability implements the random task-set synthesizer and
// the classic Liu & Layland RM utilization-bound test, supplementing the
// scheduling core per the original project's schedulability.py: three
// per-task utilization presets (light/medium-light/medium), implicit
// deadlines, and a utilization-sum bound check.
package schedulability

import (
	"math"

	"ftmgedf/internal/fault"
	"ftmgedf/internal/task"
)

// UtilFunc draws one task's target utilization from a distribution.
type UtilFunc func(rng fault.Source) float64

// PeriodFunc draws one task's period.
type PeriodFunc func(rng fault.Source) float64

func uniform(rng fault.Source, a, b float64) float64 {
	return a + rng.Uniform()*(b-a)
}

// LightUtil, MediumLightUtil, and MediumUtil mirror the three presets from
// the original synthesizer's per-task utilization distributions.
func LightUtil(rng fault.Source) float64       { return uniform(rng, 0.001, 0.01) }
func MediumLightUtil(rng fault.Source) float64 { return uniform(rng, 0.01, 0.1) }
func MediumUtil(rng fault.Source) float64      { return uniform(rng, 0.1, 0.4) }

// ShortPeriod and LongPeriod mirror the original synthesizer's period
// distributions (in simulator ticks rather than milliseconds).
func ShortPeriod(rng fault.Source) float64 { return uniform(rng, 3, 33) }
func LongPeriod(rng fault.Source) float64  { return uniform(rng, 50, 250) }

// GeneratedTask is one synthesized task, implicit-deadline (D == T).
type GeneratedTask struct {
	TaskID int
	Period int64
	WCET   int64
}

// GenerateRandomTaskSet synthesizes tasks until their summed utilization
// reaches targetUtil, clamping the final task's utilization to hit the
// target exactly rather than overshoot it.
func GenerateRandomTaskSet(rng fault.Source, targetUtil float64, utilFn UtilFunc, periodFn PeriodFunc) []GeneratedTask {
	var tasks []GeneratedTask
	utilSum := 0.0
	taskID := 1
	for utilSum < targetUtil {
		remaining := targetUtil - utilSum
		util := utilFn(rng)
		if util > remaining {
			util = remaining
		}
		utilSum += util

		period := periodFn(rng)
		wcet := period * util

		tasks = append(tasks, GeneratedTask{
			TaskID: taskID,
			Period: int64(math.Round(period)),
			WCET:   maxInt64(1, int64(math.Round(wcet))),
		})
		taskID++
	}
	return tasks
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Build converts generated tasks into an internal/task.Set with implicit
// deadlines and zero offsets, configured for activeBackups active backups
// per release. No jobs are released.
func Build(tasks []GeneratedTask, activeBackups int) (*task.Set, error) {
	set := task.NewSet(activeBackups)
	for _, gt := range tasks {
		t, err := task.New(gt.TaskID, 0, gt.Period, gt.WCET, gt.Period)
		if err != nil {
			return nil, err
		}
		if err := set.AddTask(t); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// RMUtilizationBound is the Liu & Layland least-upper-bound: n*(2^(1/n)-1)
// for n tasks.
func RMUtilizationBound(numTasks int) float64 {
	if numTasks == 0 {
		return 0
	}
	n := float64(numTasks)
	return n * (math.Pow(2, 1/n) - 1)
}

// RMSchedulable runs the simple utilization-sum RM test: schedulable iff
// the running utilization sum never exceeds the Liu & Layland bound.
func RMSchedulable(tasks []GeneratedTask) bool {
	bound := RMUtilizationBound(len(tasks))
	sum := 0.0
	for _, t := range tasks {
		sum += float64(t.WCET) / float64(t.Period)
		if sum > bound {
			return false
		}
	}
	return true
}
