package schedulability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ftmgedf/internal/fault"
	"ftmgedf/internal/schedulability"
)

func TestGenerateRandomTaskSetHitsTargetUtilization(t *testing.T) {
	rng := fault.NewRNG(7)
	tasks := schedulability.GenerateRandomTaskSet(rng, 0.5, schedulability.MediumUtil, schedulability.ShortPeriod)

	assert.NotEmpty(t, tasks)
	sum := 0.0
	for _, tsk := range tasks {
		sum += float64(tsk.WCET) / float64(tsk.Period)
	}
	assert.InDelta(t, 0.5, sum, 0.05)
}

func TestRMUtilizationBoundKnownValues(t *testing.T) {
	assert.InDelta(t, 1.0, schedulability.RMUtilizationBound(1), 1e-9)
	assert.InDelta(t, 0.8284, schedulability.RMUtilizationBound(2), 1e-3)
}

func TestRMSchedulableRejectsOverloadedSet(t *testing.T) {
	overloaded := []schedulability.GeneratedTask{
		{TaskID: 1, Period: 2, WCET: 2},
		{TaskID: 2, Period: 3, WCET: 2},
	}
	assert.False(t, schedulability.RMSchedulable(overloaded))
}

func TestRMSchedulableAcceptsLightSet(t *testing.T) {
	light := []schedulability.GeneratedTask{
		{TaskID: 1, Period: 100, WCET: 1},
	}
	assert.True(t, schedulability.RMSchedulable(light))
}
