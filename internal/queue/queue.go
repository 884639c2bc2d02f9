// Package queue implements the EDF-ordered ready queue the scheduler pops
// dispatch candidates from: strictly ordered by (deadline, taskId, jobId),
// filtered at pop time by release time.
package queue

import (
	"sort"

	"ftmgedf/internal/task"
)

// Queue holds every replica that has been admitted (active backups at load
// time, passive backups at runtime) but not yet completed or superseded.
// Jobs not yet due (ReleaseTime > t) may sit in the queue unpopped; contains
// and popJob account for this.
type Queue struct {
	jobs []*task.Job
}

// New constructs an empty queue.
func New() *Queue { return &Queue{} }

// IsEmpty reports whether the queue holds no jobs at all (due or not).
func (q *Queue) IsEmpty() bool { return len(q.jobs) == 0 }

// Add admits a job into the queue.
func (q *Queue) Add(j *task.Job) {
	q.jobs = append(q.jobs, j)
}

// Contains reports whether any queued replica matches (taskID, jobID),
// ignoring backupID.
func (q *Queue) Contains(taskID, jobID int) bool {
	for _, j := range q.jobs {
		if j.Task.ID == taskID && j.JobID == jobID {
			return true
		}
	}
	return false
}

// RemoveTuple evicts every queued replica matching (taskID, jobID): used
// once a tuple is resolved, so a still-queued sibling does not later
// consume core time on an already-satisfied job.
func (q *Queue) RemoveTuple(taskID, jobID int) {
	kept := q.jobs[:0]
	for _, j := range q.jobs {
		if j.Task.ID == taskID && j.JobID == jobID {
			continue
		}
		kept = append(kept, j)
	}
	q.jobs = kept
}

// higherPriority reports whether a has strictly higher G-EDF priority than
// b: (deadline, taskId, jobId) ordered ascending.
func higherPriority(a, b *task.Job) bool {
	if a.Deadline != b.Deadline {
		return a.Deadline < b.Deadline
	}
	if a.Task.ID != b.Task.ID {
		return a.Task.ID < b.Task.ID
	}
	return a.JobID < b.JobID
}

// PopJob considers every queued replica with ReleaseTime <= t. If none are
// due, it returns (previousJob, false) unchanged. Otherwise it finds the
// highest-priority due candidate h: if previousJob exists and its
// (deadline, taskId) is lexicographically <= h's, previousJob is kept
// (returned unchanged, no pop). Otherwise h is popped from the queue and
// returned; the second return value reports whether a running job was
// thereby preempted.
func (q *Queue) PopJob(t int64, previousJob *task.Job) (*task.Job, bool) {
	var h *task.Job
	hIdx := -1
	for i, j := range q.jobs {
		if j.ReleaseTime > t {
			continue
		}
		if h == nil || higherPriority(j, h) {
			h = j
			hIdx = i
		}
	}
	if h == nil {
		return previousJob, false
	}
	if previousJob != nil {
		if previousJob.Deadline < h.Deadline ||
			(previousJob.Deadline == h.Deadline && previousJob.Task.ID <= h.Task.ID) {
			return previousJob, false
		}
	}
	q.jobs = append(q.jobs[:hIdx], q.jobs[hIdx+1:]...)
	return h, previousJob != nil
}

// sortedView returns the queue's contents ordered for inspection/testing;
// it does not mutate internal storage order.
func (q *Queue) sortedView() []*task.Job {
	out := make([]*task.Job, len(q.jobs))
	copy(out, q.jobs)
	sort.Slice(out, func(i, k int) bool { return higherPriority(out[i], out[k]) })
	return out
}

// Len reports the number of admitted (due or not) replicas.
func (q *Queue) Len() int { return len(q.jobs) }
