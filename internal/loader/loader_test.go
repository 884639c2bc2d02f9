package loader_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftmgedf/internal/loader"
)

const sampleDoc = `{
  "taskset": [
    {"taskId": 1, "period": 3, "wcet": 1, "deadline": 3},
    {"taskId": 2, "period": 5, "wcet": 2}
  ],
  "startTime": 0,
  "endTime": 10
}`

func TestBuildPeriodicReleases(t *testing.T) {
	doc, err := loader.Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	set, err := loader.Build(doc, 0)
	require.NoError(t, err)

	require.Len(t, set.Tasks, 2)
	assert.Equal(t, int64(5), set.Tasks[2].RelativeDeadline, "deadline defaults to period when absent")

	var task1Releases int
	for _, j := range set.Jobs {
		if j.Task.ID == 1 {
			task1Releases++
		}
	}
	assert.Equal(t, 4, task1Releases, "releases at 0,3,6,9 within [0,10)")
}

func TestBuildSporadicReleases(t *testing.T) {
	doc := &loader.Document{
		TaskSet:   []loader.TaskSpec{{TaskID: 1, Period: -1, WCET: 2, Deadline: floatPtr(8)}},
		StartTime: 0,
		EndTime:   20,
		ReleaseTimes: []loader.ReleaseSpec{
			{TaskID: 1, TimeInstant: 0},
			{TaskID: 1, TimeInstant: 9},
		},
	}
	set, err := loader.Build(doc, 0)
	require.NoError(t, err)
	assert.Len(t, set.Jobs, 2)
}

func TestBuildRejectsDuplicateTaskIDs(t *testing.T) {
	doc := &loader.Document{
		TaskSet: []loader.TaskSpec{
			{TaskID: 1, Period: 5, WCET: 1},
			{TaskID: 1, Period: 5, WCET: 1},
		},
		StartTime: 0, EndTime: 10,
	}
	_, err := loader.Build(doc, 0)
	assert.Error(t, err)
}

func floatPtr(f float64) *float64 { return &f }
