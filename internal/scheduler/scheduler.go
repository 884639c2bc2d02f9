// Package scheduler implements the G-EDF dispatch loop: the fault step,
// the per-tick lowest-priority-core dispatch with passive-backup release,
// and the drain/feasibility accounting at the end of a run.
package scheduler

import (
	"sort"

	"ftmgedf/internal/core"
	"ftmgedf/internal/fault"
	"ftmgedf/internal/queue"
	"ftmgedf/internal/schedule"
	"ftmgedf/internal/task"
)

// Scheduler owns the queue, core set, task set, and fault generator for a
// single simulation run. It is single-use: construct one per run.
type Scheduler struct {
	tasks    *task.Set
	cores    *core.Set
	queue    *queue.Queue
	faultGen *fault.Generator

	completed map[[2]int]bool
}

// New constructs a scheduler over the given task set and core set, admits
// every pre-materialized replica (primaries + active backups) into the
// queue, and readies the fault generator.
func New(tasks *task.Set, cores *core.Set, faultParams fault.Params, rng fault.Source) *Scheduler {
	q := queue.New()
	for _, j := range tasks.Jobs {
		q.Add(j)
	}
	completed := make(map[[2]int]bool)
	for _, tuple := range tasks.PrimaryTuples() {
		completed[tuple] = false
	}
	return &Scheduler{
		tasks:     tasks,
		cores:     cores,
		queue:     q,
		faultGen:  fault.NewGenerator(faultParams, rng, cores),
		completed: completed,
	}
}

// Run executes the tick loop from startTime until the queue empties or
// endTime is reached, drains any cores still holding partial jobs, and
// post-processes the resulting schedule. endTime is a floor on the reported
// horizon end; the scheduler extends it to the final tick reached by the
// drain if that is later. Deadlines beyond that tick do not extend it.
func (s *Scheduler) Run(startTime, endTime int64) *schedule.Record {
	rec := schedule.New(startTime, endTime)
	t := startTime

	// The horizon end is the hard stop: an infeasible run (e.g. every core
	// permanently failed with work still queued) must still terminate,
	// leaving a non-empty queue as the feasibility signal.
	for t < endTime && !s.queue.IsEmpty() {
		s.tick(t, rec)
		t++
	}

	finalTime := s.drain(t, rec)

	horizonEnd := endTime
	if finalTime > horizonEnd {
		horizonEnd = finalTime
	}

	rec.EndTime = horizonEnd
	rec.Intervals = schedule.PostProcess(rec.Intervals, horizonEnd)
	s.finalizeFeasibility(rec)
	return rec
}

func (s *Scheduler) tick(t int64, rec *schedule.Record) {
	s.faultGen.Step(t, s.cores)

	remaining := append([]int(nil), s.cores.AllIDs()...)
	for len(remaining) > 0 {
		c, _ := s.cores.LowestPriorityCore(remaining)
		remaining = removeID(remaining, c.ID)

		if !c.IsActive() {
			rec.Append(schedule.Interval{
				Start: t, End: t + 1, CoreID: c.ID,
				TaskID: schedule.FailTaskID, Kind: schedule.KindFail,
			})
			continue
		}

		s.releasePassiveBackups(t)

		previous := c.Job()
		newJob, preempted := s.queue.PopJob(t, previous)
		if preempted && previous != nil {
			s.queue.Add(previous)
		}

		if newJob == nil {
			c.SetJob(nil)
			rec.Append(schedule.Interval{
				Start: t, End: t + 1, CoreID: c.ID,
				TaskID: schedule.IdleTaskID, Kind: schedule.KindIdle,
			})
			continue
		}

		completedNow := false
		if newJob.WillFinish() {
			key := [2]int{newJob.Task.ID, newJob.JobID}
			if t >= newJob.Deadline && !s.completed[key] {
				rec.RecordMiss(schedule.MissedJob{
					TaskID: newJob.Task.ID, JobID: newJob.JobID, BackupID: newJob.BackupID,
					Deadline: newJob.Deadline, FinishTime: t + 1,
				})
			}
			newJob.Finish()
			s.completed[key] = true
			s.queue.RemoveTuple(key[0], key[1])
			completedNow = true
		} else {
			newJob.Execute()
		}

		// A completed job is cleared from the core rather than left
		// attached: otherwise it would keep winning priority comparisons
		// against an empty or not-yet-due queue on every subsequent tick,
		// generating zombie EXEC intervals for work that is already done.
		if completedNow {
			c.SetJob(nil)
		} else {
			c.SetJob(newJob)
		}
		rec.Append(schedule.Interval{
			Start: t, End: t + 1, CoreID: c.ID,
			TaskID: newJob.Task.ID, JobID: newJob.JobID, BackupID: newJob.BackupID,
			Preempted: preempted, Completed: completedNow, Kind: schedule.KindExec,
		})
	}
}

// releasePassiveBackups synthesizes a fresh passive replica for every
// tracked tuple that is currently neither in the queue nor assigned to any
// core, keyed off the live state of every core (including cores already
// reassigned earlier in this same tick's dispatch pass).
func (s *Scheduler) releasePassiveBackups(t int64) {
	for _, tuple := range s.tasks.PrimaryTuples() {
		taskID, jobID := tuple[0], tuple[1]
		if s.completed[tuple] {
			continue
		}
		if s.queue.Contains(taskID, jobID) || s.anyCoreRunning(taskID, jobID) {
			continue
		}
		tsk := s.tasks.Tasks[taskID]
		replica, err := tsk.CopyReplica(jobID)
		if err != nil {
			continue
		}
		s.queue.Add(replica)
	}
}

func (s *Scheduler) anyCoreRunning(taskID, jobID int) bool {
	for _, c := range s.cores.All() {
		if j := c.Job(); j != nil && j.Task.ID == taskID && j.JobID == jobID {
			return true
		}
	}
	return false
}

// drain runs after the tick loop stops (queue empty or horizon reached):
// cores holding a partially executed job finish it one tick at a time (no
// preemption is performed), in ascending core id order, then every core gets one final IDLE
// interval to anchor the timeline. It returns the final tick reached.
func (s *Scheduler) drain(t int64, rec *schedule.Record) int64 {
	ids := append([]int(nil), s.cores.AllIDs()...)
	sort.Ints(ids)

	finalTime := t
	for _, id := range ids {
		c := s.cores.ByID(id)
		cur := t
		for c.Job() != nil {
			j := c.Job()
			completedNow := false
			if j.WillFinish() {
				key := [2]int{j.Task.ID, j.JobID}
				if cur >= j.Deadline && !s.completed[key] {
					rec.RecordMiss(schedule.MissedJob{
						TaskID: j.Task.ID, JobID: j.JobID, BackupID: j.BackupID,
						Deadline: j.Deadline, FinishTime: cur + 1,
					})
				}
				j.Finish()
				s.completed[key] = true
				completedNow = true
			} else {
				j.Execute()
			}
			rec.Append(schedule.Interval{
				Start: cur, End: cur + 1, CoreID: id,
				TaskID: j.Task.ID, JobID: j.JobID, BackupID: j.BackupID,
				Completed: completedNow, Kind: schedule.KindExec,
			})
			cur++
			if completedNow {
				c.SetJob(nil)
			}
		}
		rec.Append(schedule.Interval{
			Start: cur, End: cur + 1, CoreID: id,
			TaskID: schedule.IdleTaskID, Kind: schedule.KindIdle,
		})
		if cur+1 > finalTime {
			finalTime = cur + 1
		}
	}
	return finalTime
}

func (s *Scheduler) finalizeFeasibility(rec *schedule.Record) {
	for _, tuple := range s.tasks.PrimaryTuples() {
		if !s.completed[tuple] {
			rec.UnresolvedTuples = append(rec.UnresolvedTuples, tuple)
		}
	}
}

func removeID(ids []int, target int) []int {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
