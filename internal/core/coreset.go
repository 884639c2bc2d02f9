package core

import "ftmgedf/internal/task"

// Set is the ordered collection of cores a schedule is built over. Cores
// are indexed by id; faulty cores are conventionally assigned the lowest
// ids (ids [0, numFaulty) are faulty, the remainder stable).
type Set struct {
	cores []*Core
}

// NewSet constructs m cores, the first numFaulty of which are faulty.
func NewSet(m, numFaulty int) *Set {
	cs := &Set{cores: make([]*Core, m)}
	for i := 0; i < m; i++ {
		cs.cores[i] = New(i, i < numFaulty)
	}
	return cs
}

// Len returns the number of cores.
func (cs *Set) Len() int { return len(cs.cores) }

// ByID returns the core with the given id, or nil if out of range.
func (cs *Set) ByID(id int) *Core {
	if id < 0 || id >= len(cs.cores) {
		return nil
	}
	return cs.cores[id]
}

// All returns every core, ascending by id. Callers must not mutate the
// slice itself (core pointers may be mutated through their own methods).
func (cs *Set) All() []*Core { return cs.cores }

// AllIDs returns every core id, ascending.
func (cs *Set) AllIDs() []int {
	ids := make([]int, len(cs.cores))
	for i, c := range cs.cores {
		ids[i] = c.ID
	}
	return ids
}

// LowestPriorityCore scans remaining (a slice of not-yet-decided core ids,
// in ascending order) and returns the core that should be considered next
// for (re)assignment: the first idle or failed core encountered, or — if
// every remaining core is executing — the executing core whose job has the
// lowest G-EDF priority (latest deadline; ties broken by the larger task
// id; further ties, by construction of the ascending scan, resolve to the
// smallest core id). The second return value reports whether the returned
// core is currently executing a job.
func (cs *Set) LowestPriorityCore(remaining []int) (*Core, bool) {
	first := cs.ByID(remaining[0])
	if !first.IsExecuting() {
		return first, false
	}
	lowest := first
	for _, id := range remaining[1:] {
		c := cs.ByID(id)
		if !c.IsExecuting() {
			return c, false
		}
		if lowerPriority(c.Job(), lowest.Job()) {
			lowest = c
		}
	}
	return lowest, true
}

// lowerPriority reports whether job a has strictly lower G-EDF priority
// than job b: a later deadline, or an equal deadline and a larger task id.
func lowerPriority(a, b *task.Job) bool {
	if a.Deadline != b.Deadline {
		return a.Deadline > b.Deadline
	}
	return a.Task.ID > b.Task.ID
}
