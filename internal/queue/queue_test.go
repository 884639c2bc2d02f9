package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftmgedf/internal/queue"
	"ftmgedf/internal/task"
)

func mustJob(t *testing.T, taskID int, release, deadline int64) *task.Job {
	t.Helper()
	tsk, err := task.New(taskID, 0, 100, 1, deadline-release)
	require.NoError(t, err)
	j, err := tsk.SpawnJob(release)
	require.NoError(t, err)
	return j
}

func TestPopJobIgnoresNotYetDue(t *testing.T) {
	q := queue.New()
	q.Add(mustJob(t, 1, 5, 10))

	job, preempted := q.PopJob(0, nil)
	assert.Nil(t, job)
	assert.False(t, preempted)
	assert.True(t, q.Contains(1, 0))
}

func TestPopJobKeepsHigherPriorityPrevious(t *testing.T) {
	q := queue.New()
	previous := mustJob(t, 1, 0, 3) // earlier deadline
	q.Add(mustJob(t, 2, 0, 10))     // later deadline, lower priority

	job, preempted := q.PopJob(0, previous)
	assert.Same(t, previous, job)
	assert.False(t, preempted)
}

func TestPopJobPreemptsLowerPriorityPrevious(t *testing.T) {
	q := queue.New()
	previous := mustJob(t, 2, 0, 10)
	urgent := mustJob(t, 1, 0, 3)
	q.Add(urgent)

	job, preempted := q.PopJob(0, previous)
	assert.Same(t, urgent, job)
	assert.True(t, preempted)
}

func TestPopJobNoPreemptionWhenNoPrevious(t *testing.T) {
	q := queue.New()
	j := mustJob(t, 1, 0, 3)
	q.Add(j)

	job, preempted := q.PopJob(0, nil)
	assert.Same(t, j, job)
	assert.False(t, preempted)
}

func TestRemoveTupleEvictsAllMatchingReplicas(t *testing.T) {
	q := queue.New()
	q.Add(mustJob(t, 1, 0, 5))
	tsk, err := task.New(1, 0, 100, 1, 5)
	require.NoError(t, err)
	primary, err := tsk.SpawnJob(0)
	require.NoError(t, err)
	backup, err := tsk.CopyReplica(primary.JobID)
	require.NoError(t, err)
	q.Add(backup)

	require.True(t, q.Contains(1, 0))
	q.RemoveTuple(1, 0)
	assert.False(t, q.Contains(1, 0))
}
