package task

// Job is one replica — primary (BackupID == 0) or backup (BackupID > 0) —
// of a task's release. Replicas sharing (Task.ID, JobID) are the same
// logical job; at most one of them needs to complete for the job to meet
// its deadline.
type Job struct {
	Task          *Task
	JobID         int
	BackupID      int
	ReleaseTime   int64
	Deadline      int64
	RemainingTime int64
}

// IsPrimary reports whether this replica is the task's primary release
// rather than an active or passive backup.
func (j *Job) IsPrimary() bool { return j.BackupID == 0 }

// Key identifies the logical job this replica belongs to, independent of
// which replica (primary/backup) it is.
func (j *Job) Key() (taskID, jobID int) { return j.Task.ID, j.JobID }

// Finish marks the job as having consumed its final tick of execution.
func (j *Job) Finish() { j.RemainingTime = 0 }

// Execute consumes one tick of execution time.
func (j *Job) Execute() { j.RemainingTime-- }

// WillFinish reports whether a single additional tick of execution
// completes the job.
func (j *Job) WillFinish() bool { return j.RemainingTime <= 1 }
