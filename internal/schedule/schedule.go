// Package schedule is the append-only interval log a simulation run
// produces, plus its single-pass post-processing (merge, sort, end-time
// fixup) and feasibility accounting.
package schedule

import "sort"

// Kind tags what a ScheduleInterval represents.
type Kind int

const (
	KindExec Kind = iota
	KindIdle
	KindFail
)

// Idle and fail intervals carry these sentinel task/job ids, per the wire
// format's encoding.
const (
	IdleTaskID = 0
	FailTaskID = -1
)

// Interval is one [Start, End) record on one core.
type Interval struct {
	Start, End int64
	CoreID     int
	TaskID     int
	JobID      int
	BackupID   int
	Preempted  bool
	Completed  bool
	Kind       Kind
}

// MissedJob records a replica that completed at or after its deadline
// while its tuple was still unresolved.
type MissedJob struct {
	TaskID, JobID, BackupID int
	Deadline, FinishTime    int64
}

// Record is the full schedule produced by a run: the raw (unprocessed)
// interval log plus the horizon bounds and feasibility bookkeeping the
// scheduler accumulates as it ticks.
type Record struct {
	StartTime, EndTime int64
	Intervals          []Interval
	MissedJobs         []MissedJob
	// UnresolvedTuples lists primary (taskId, jobId) tuples for which no
	// replica ever completed by the end of the run (e.g. abandoned after a
	// permanent core loss with no surviving sibling).
	UnresolvedTuples [][2]int
}

// New constructs an empty record over [startTime, endTime).
func New(startTime, endTime int64) *Record {
	return &Record{StartTime: startTime, EndTime: endTime}
}

// Append adds one raw interval to the log.
func (r *Record) Append(iv Interval) {
	r.Intervals = append(r.Intervals, iv)
}

// RecordMiss records a deadline miss.
func (r *Record) RecordMiss(m MissedJob) {
	r.MissedJobs = append(r.MissedJobs, m)
}

// Feasible reports whether every primary tuple had at least one replica
// complete on or before its deadline: no tuple was left permanently
// unresolved, and no tuple's first completing replica arrived late (the
// scheduler only calls RecordMiss once per tuple, the first time a replica
// of it completes after the deadline — which can only happen if every
// replica of that tuple completes late, since completion resolves the
// tuple and suppresses any further miss check).
func (r *Record) Feasible() bool { return len(r.MissedJobs) == 0 && len(r.UnresolvedTuples) == 0 }

// PostProcess merges contiguous same-(coreId, taskId, jobId, backupId)
// intervals, sorts the result by (coreId, startTime), and fixes each
// interval's End to the start of the next interval on the same core (or to
// endTime for the last interval on a core). It is a pure function of its
// inputs: running it twice on its own output is a no-op, since no two
// adjacent post-processed intervals on the same core ever share a
// (taskId, jobId, backupId) tuple.
func PostProcess(intervals []Interval, endTime int64) []Interval {
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CoreID != sorted[j].CoreID {
			return sorted[i].CoreID < sorted[j].CoreID
		}
		return sorted[i].Start < sorted[j].Start
	})

	var merged []Interval
	for _, iv := range sorted {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.CoreID == iv.CoreID && last.TaskID == iv.TaskID &&
				last.JobID == iv.JobID && last.BackupID == iv.BackupID &&
				last.Kind == iv.Kind {
				last.Preempted = iv.Preempted
				last.Completed = iv.Completed
				continue
			}
		}
		merged = append(merged, iv)
	}

	for i := range merged {
		if i+1 < len(merged) && merged[i+1].CoreID == merged[i].CoreID {
			merged[i].End = merged[i+1].Start
		} else {
			merged[i].End = endTime
		}
	}
	return merged
}
