package task

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDuplicateTaskID = errors.New("taskset: duplicate task id")

// Set is the full collection of tasks participating in a simulation run,
// plus every job (primary and active-backup) spawned for them before the
// scheduler starts ticking.
type Set struct {
	Tasks         map[int]*Task
	Jobs          []*Job
	ActiveBackups int
}

// NewSet builds an empty task set configured with the given number of
// active backups (0 means purely passive replication).
func NewSet(activeBackups int) *Set {
	return &Set{
		Tasks:         make(map[int]*Task),
		ActiveBackups: activeBackups,
	}
}

// AddTask registers a task, rejecting duplicate ids.
func (s *Set) AddTask(t *Task) error {
	if _, exists := s.Tasks[t.ID]; exists {
		return fmt.Errorf("task %d: %w", t.ID, ErrDuplicateTaskID)
	}
	s.Tasks[t.ID] = t
	return nil
}

// Release spawns a primary job for task taskID at releaseTime, plus the
// configured number of active backups, and records all of them in s.Jobs.
func (s *Set) Release(taskID int, releaseTime int64) (*Job, error) {
	t, ok := s.Tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("taskset: unknown task %d", taskID)
	}
	primary, err := t.SpawnJob(releaseTime)
	if err != nil {
		return nil, err
	}
	s.Jobs = append(s.Jobs, primary)

	if s.ActiveBackups > 0 {
		backups, err := t.SpawnActiveBackups(primary, s.ActiveBackups)
		if err != nil {
			return nil, err
		}
		s.Jobs = append(s.Jobs, backups...)
	}
	return primary, nil
}

// PrimaryTuples returns the distinct (taskID, jobID) tuples that must each
// see at least one completed replica for the run to be feasible, sorted by
// (taskID, jobID) for deterministic iteration.
func (s *Set) PrimaryTuples() [][2]int {
	seen := make(map[[2]int]bool)
	var tuples [][2]int
	for _, j := range s.Jobs {
		k := [2]int{j.Task.ID, j.JobID}
		if !seen[k] {
			seen[k] = true
			tuples = append(tuples, k)
		}
	}
	sort.Slice(tuples, func(i, k int) bool {
		if tuples[i][0] != tuples[k][0] {
			return tuples[i][0] < tuples[k][0]
		}
		return tuples[i][1] < tuples[k][1]
	})
	return tuples
}

// TaskIDs returns every task id, ascending.
func (s *Set) TaskIDs() []int {
	ids := make([]int, 0, len(s.Tasks))
	for id := range s.Tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
