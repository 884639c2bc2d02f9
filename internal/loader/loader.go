// Package loader parses the task-set JSON input format into an
// internal/task.Set and drives job release (periodic or sporadic) up
// front, before the scheduler starts ticking.
package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"ftmgedf/internal/task"
)

// TaskSpec is one entry of the "taskset" array in the input document.
type TaskSpec struct {
	TaskID   int      `json:"taskId"`
	Period   float64  `json:"period"`
	WCET     float64  `json:"wcet"`
	Deadline *float64 `json:"deadline,omitempty"`
	Offset   *float64 `json:"offset,omitempty"`
}

// ReleaseSpec is one entry of the optional "releaseTimes" array, used for
// sporadic-mode simulations.
type ReleaseSpec struct {
	TaskID       int     `json:"taskId"`
	TimeInstant  float64 `json:"timeInstant"`
}

// Document is the parsed task-set input document.
type Document struct {
	TaskSet      []TaskSpec    `json:"taskset"`
	StartTime    float64       `json:"startTime"`
	EndTime      float64       `json:"endTime"`
	ReleaseTimes []ReleaseSpec `json:"releaseTimes,omitempty"`
}

// Parse decodes a task-set document from r.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("loader: decode task-set document: %w", err)
	}
	return &doc, nil
}

// ParseFile opens and parses a task-set document from path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Build validates the document and constructs a fully populated task.Set,
// releasing every job (periodic, within [startTime, endTime), or at the
// explicit sporadic instants) up front. activeBackups configures how many
// active-replica copies accompany every primary release.
func Build(doc *Document, activeBackups int) (*task.Set, error) {
	set := task.NewSet(activeBackups)

	for _, spec := range doc.TaskSet {
		offset := int64(0)
		if spec.Offset != nil {
			offset = int64(*spec.Offset)
		}
		deadline := int64(spec.Period)
		if spec.Deadline != nil {
			deadline = int64(*spec.Deadline)
		}
		t, err := task.New(spec.TaskID, offset, int64(spec.Period), int64(spec.WCET), deadline)
		if err != nil {
			return nil, fmt.Errorf("loader: invalid task set: %w", err)
		}
		if err := set.AddTask(t); err != nil {
			return nil, fmt.Errorf("loader: invalid task set: %w", err)
		}
	}

	start, end := int64(doc.StartTime), int64(doc.EndTime)

	if len(doc.ReleaseTimes) > 0 {
		releases := append([]ReleaseSpec(nil), doc.ReleaseTimes...)
		sort.SliceStable(releases, func(i, j int) bool {
			if releases[i].TaskID != releases[j].TaskID {
				return releases[i].TaskID < releases[j].TaskID
			}
			return releases[i].TimeInstant < releases[j].TimeInstant
		})
		for _, rel := range releases {
			if _, err := set.Release(rel.TaskID, int64(rel.TimeInstant)); err != nil {
				return nil, fmt.Errorf("loader: invalid release schedule: %w", err)
			}
		}
		return set, nil
	}

	for _, id := range set.TaskIDs() {
		t := set.Tasks[id]
		for r := start + t.Offset; r < end; r += t.Period {
			if _, err := set.Release(id, r); err != nil {
				return nil, fmt.Errorf("loader: invalid release schedule: %w", err)
			}
			if t.Period <= 0 {
				break // aperiodic: exactly one release
			}
		}
	}
	return set, nil
}
