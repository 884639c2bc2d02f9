// Package task models the sporadic/periodic real-time task graph: tasks,
// their spawned jobs, and the active-replica bookkeeping a task owns across
// the lifetime of a simulation run.
package task

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWCET        = errors.New("task: wcet must be positive")
	ErrInvalidDeadline    = errors.New("task: relative deadline must be >= wcet")
	ErrAperiodicNoDeadline = errors.New("task: aperiodic task requires an explicit relative deadline")
	ErrNonMonotonicRelease = errors.New("task: release time precedes the last release")
	ErrSubPeriodRelease    = errors.New("task: release time violates the task's period separation")
	ErrUnknownJob          = errors.New("task: no primary job with that id")
)

// Task is a periodic (Period > 0) or sporadic/aperiodic (Period < 0) real-time
// task. A Task owns the monotonically increasing JobID sequence and the
// per-job backup-id counters for every job it has ever spawned.
type Task struct {
	ID               int
	Offset           int64
	Period           int64 // < 0 means aperiodic; releases are driven externally
	WCET             int64
	RelativeDeadline int64

	jobs          []*Job
	nextJobID     int
	lastBackupID  map[int]int
	hasReleased   bool
	lastRelease   int64
}

// New validates and constructs a Task. Period < 0 marks an aperiodic task,
// in which case RelativeDeadline must be supplied explicitly (there is no
// period to default it from).
func New(id int, offset, period, wcet, relativeDeadline int64) (*Task, error) {
	if wcet <= 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrInvalidWCET)
	}
	if period < 0 && relativeDeadline < 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrAperiodicNoDeadline)
	}
	if relativeDeadline < wcet {
		return nil, fmt.Errorf("task %d: %w", id, ErrInvalidDeadline)
	}
	return &Task{
		ID:               id,
		Offset:           offset,
		Period:           period,
		WCET:             wcet,
		RelativeDeadline: relativeDeadline,
		lastBackupID:     make(map[int]int),
	}, nil
}

// Jobs returns every job this task has ever spawned (primaries, active
// backups, and passive replicas), in spawn order.
func (t *Task) Jobs() []*Job { return t.jobs }

// SpawnJob releases a new primary job at releaseTime. Releases must be
// monotonic, and for periodic tasks must respect the task's period.
func (t *Task) SpawnJob(releaseTime int64) (*Job, error) {
	if t.hasReleased {
		if releaseTime < t.lastRelease {
			return nil, fmt.Errorf("task %d: %w", t.ID, ErrNonMonotonicRelease)
		}
		if t.Period >= 0 && releaseTime < t.lastRelease+t.Period {
			return nil, fmt.Errorf("task %d: %w", t.ID, ErrSubPeriodRelease)
		}
	}
	t.hasReleased = true
	t.lastRelease = releaseTime

	jobID := t.nextJobID
	t.nextJobID++

	j := &Job{
		Task:          t,
		JobID:         jobID,
		BackupID:      0,
		ReleaseTime:   releaseTime,
		Deadline:      releaseTime + t.RelativeDeadline,
		RemainingTime: t.WCET,
	}
	t.jobs = append(t.jobs, j)
	t.lastBackupID[jobID] = 0
	return j, nil
}

// SpawnActiveBackups materializes k additional replicas of primary, sharing
// its release time and deadline, with fresh remaining time. These are
// "active" backups: they contend in the queue immediately, alongside the
// primary, rather than waiting for a fault to be synthesized.
func (t *Task) SpawnActiveBackups(primary *Job, k int) ([]*Job, error) {
	backups := make([]*Job, 0, k)
	for i := 0; i < k; i++ {
		b, err := t.CopyReplica(primary.JobID)
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, nil
}

// CopyReplica synthesizes a fresh replica of the primary job identified by
// jobID: same release time and deadline, remaining time reset to the task's
// WCET, with the next unused backup id for that (taskId, jobId) tuple. Used
// both at load time (active backups) and at runtime by the scheduler
// (passive backups).
func (t *Task) CopyReplica(jobID int) (*Job, error) {
	var primary *Job
	for _, j := range t.jobs {
		if j.JobID == jobID && j.BackupID == 0 {
			primary = j
			break
		}
	}
	if primary == nil {
		return nil, fmt.Errorf("task %d, job %d: %w", t.ID, jobID, ErrUnknownJob)
	}
	t.lastBackupID[jobID]++
	replica := &Job{
		Task:          t,
		JobID:         jobID,
		BackupID:      t.lastBackupID[jobID],
		ReleaseTime:   primary.ReleaseTime,
		Deadline:      primary.Deadline,
		RemainingTime: t.WCET,
	}
	t.jobs = append(t.jobs, replica)
	return replica, nil
}
