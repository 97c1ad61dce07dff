package services_test

import (
	"testing"

	"drivemate/internal/models"
	"drivemate/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrySteps(completed ...int) []*models.HandoverStepCompletion {
	steps := make([]*models.HandoverStepCompletion, 0, len(services.GetSteps()))
	for i, def := range services.GetSteps() {
		steps = append(steps, &models.HandoverStepCompletion{
			StepName:  def.Name,
			StepOrder: i,
		})
	}
	for _, idx := range completed {
		steps[idx].IsCompleted = true
	}
	return steps
}

func TestComputeProgress(t *testing.T) {
	t.Run("fresh session", func(t *testing.T) {
		progress := services.ComputeProgress(registrySteps())

		assert.Equal(t, 0, progress.CompletedSteps)
		assert.Equal(t, 8, progress.TotalSteps)
		assert.Equal(t, 0.0, progress.ProgressPercentage)
		assert.Equal(t, 1, progress.CurrentStepNumber)
		assert.False(t, progress.IsCompleted)
	})

	t.Run("five of eight", func(t *testing.T) {
		progress := services.ComputeProgress(registrySteps(0, 1, 2, 3, 4))

		assert.Equal(t, 5, progress.CompletedSteps)
		assert.Equal(t, 62.5, progress.ProgressPercentage)
		assert.Equal(t, 6, progress.CurrentStepNumber)
		assert.False(t, progress.IsCompleted)
	})

	t.Run("out of order completion points at the first gap", func(t *testing.T) {
		progress := services.ComputeProgress(registrySteps(0, 1, 6, 7))

		assert.Equal(t, 4, progress.CompletedSteps)
		assert.Equal(t, 50.0, progress.ProgressPercentage)
		assert.Equal(t, 3, progress.CurrentStepNumber)
		assert.False(t, progress.IsCompleted)
	})

	t.Run("all steps done", func(t *testing.T) {
		progress := services.ComputeProgress(registrySteps(0, 1, 2, 3, 4, 5, 6, 7))

		assert.Equal(t, 8, progress.CompletedSteps)
		assert.Equal(t, 100.0, progress.ProgressPercentage)
		assert.Equal(t, 8, progress.CurrentStepNumber)
		assert.True(t, progress.IsCompleted)
	})

	t.Run("no rows yet falls back to the registry size", func(t *testing.T) {
		progress := services.ComputeProgress(nil)

		assert.Equal(t, 8, progress.TotalSteps)
		assert.Equal(t, 0, progress.CompletedSteps)
		assert.False(t, progress.IsCompleted, "a session without rows is never complete")
	})
}

func TestComputeProgress_Deterministic(t *testing.T) {
	// Both participants project the same rows to the same snapshot.
	steps := registrySteps(0, 2, 3)
	first := services.ComputeProgress(steps)
	second := services.ComputeProgress(steps)
	assert.Equal(t, first, second)
}

func TestProgressToMap(t *testing.T) {
	progress := services.ComputeProgress(registrySteps(0, 1))
	m := progress.ToMap()

	require.Equal(t, 2, m["completedSteps"])
	require.Equal(t, 8, m["totalSteps"])
	assert.Equal(t, 25.0, m["progressPercentage"])
	assert.Equal(t, 3, m["currentStepNumber"])
	assert.Equal(t, false, m["isCompleted"])
}
