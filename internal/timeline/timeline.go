// Package timeline renders a completed schedule as a textual per-core
// Gantt chart, satisfying the visualization contract from spec.md §6
// (release arrows, deadline arrows, completion hats, execution bars) for a
// CLI consumer rather than the original pygame-based renderer.
package timeline

import (
	"fmt"
	"io"
	"sort"

	"ftmgedf/internal/schedule"
	"ftmgedf/internal/task"
)

// eventKind is the kind of marker rendered at a specific tick on a task's
// row: release ('^'), deadline ('v'), or completion ('#').
type eventKind int

const (
	eventRelease eventKind = iota
	eventDeadline
	eventCompletion
)

type event struct {
	tick int64
	kind eventKind
}

// RenderByCore writes one row per core, showing 'X' for executed ticks,
// '.' for idle, and '!' for fail, across [rec.StartTime, rec.EndTime).
func RenderByCore(w io.Writer, rec *schedule.Record, numCores int) {
	width := int(rec.EndTime - rec.StartTime)
	rows := make([][]byte, numCores)
	for i := range rows {
		rows[i] = bytes(width, '.')
	}
	for _, iv := range rec.Intervals {
		ch := byte('X')
		switch iv.Kind {
		case schedule.KindIdle:
			ch = '.'
		case schedule.KindFail:
			ch = '!'
		}
		for tick := iv.Start; tick < iv.End; tick++ {
			idx := int(tick - rec.StartTime)
			if idx >= 0 && idx < width {
				rows[iv.CoreID][idx] = ch
			}
		}
	}
	for id, row := range rows {
		fmt.Fprintf(w, "core %2d |%s|\n", id, string(row))
	}
}

// RenderByTask writes two lines per task: a marker line with release ('^'),
// deadline ('v'), and completion ('#') markers, and below it the execution
// bar ('X') / idle ('.') background for that task's replicas. When several
// markers fall on the same tick, only one of them is shown.
func RenderByTask(w io.Writer, rec *schedule.Record, taskSet *task.Set) {
	width := int(rec.EndTime - rec.StartTime)
	ids := taskSet.TaskIDs()

	for _, id := range ids {
		row := bytes(width, '.')
		var events []event
		for _, j := range taskSet.Tasks[id].Jobs() {
			events = append(events, event{tick: j.ReleaseTime, kind: eventRelease})
			events = append(events, event{tick: j.Deadline, kind: eventDeadline})
		}

		for _, iv := range rec.Intervals {
			if iv.TaskID != id || iv.Kind != schedule.KindExec {
				continue
			}
			for tick := iv.Start; tick < iv.End; tick++ {
				idx := int(tick - rec.StartTime)
				if idx >= 0 && idx < width {
					row[idx] = 'X'
				}
			}
			if iv.Completed {
				events = append(events, event{tick: iv.End - 1, kind: eventCompletion})
			}
		}

		sort.Slice(events, func(i, k int) bool { return events[i].tick < events[k].tick })
		marks := bytes(width, ' ')
		for _, e := range events {
			idx := int(e.tick - rec.StartTime)
			if idx < 0 || idx >= width {
				continue
			}
			switch e.kind {
			case eventRelease:
				marks[idx] = '^'
			case eventDeadline:
				marks[idx] = 'v'
			case eventCompletion:
				marks[idx] = '#'
			}
		}

		fmt.Fprintf(w, "task %2d  %s\n", id, string(marks))
		fmt.Fprintf(w, "        |%s|\n", string(row))
	}
}

// Summary writes a one-line feasibility verdict plus any missed jobs.
func Summary(w io.Writer, rec *schedule.Record) {
	if rec.Feasible() {
		fmt.Fprintf(w, "feasible: all deadlines met over [%d, %d)\n", rec.StartTime, rec.EndTime)
		return
	}
	fmt.Fprintf(w, "infeasible: %d deadline miss(es), %d unresolved job(s)\n",
		len(rec.MissedJobs), len(rec.UnresolvedTuples))
	for _, m := range rec.MissedJobs {
		fmt.Fprintf(w, "  missed: task %d job %d backup %d, deadline %d, finished %d\n",
			m.TaskID, m.JobID, m.BackupID, m.Deadline, m.FinishTime)
	}
	for _, u := range rec.UnresolvedTuples {
		fmt.Fprintf(w, "  unresolved: task %d job %d\n", u[0], u[1])
	}
}

func bytes(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}
