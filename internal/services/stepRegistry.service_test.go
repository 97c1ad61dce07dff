package services_test

import (
	"testing"

	"drivemate/internal/models"
	"drivemate/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSteps_Order(t *testing.T) {
	steps := services.GetSteps()
	require.Len(t, steps, 8)

	expected := []models.HandoverStepName{
		models.StepNavigation,
		models.StepIdentity,
		models.StepExteriorInspection,
		models.StepInteriorInspection,
		models.StepDamage,
		models.StepFuelMileage,
		models.StepKeyTransfer,
		models.StepSignature,
	}
	for i, step := range steps {
		assert.Equal(t, expected[i], step.Name, "step %d", i)
	}

	assert.Equal(t, services.ExteriorFacets, steps[2].RequiredFacets)
	assert.Equal(t, services.InteriorFacets, steps[3].RequiredFacets)
}

func TestStepIndex(t *testing.T) {
	assert.Equal(t, 0, services.StepIndex(models.StepNavigation))
	assert.Equal(t, 5, services.StepIndex(models.StepFuelMileage))
	assert.Equal(t, 7, services.StepIndex(models.StepSignature))
	assert.Equal(t, -1, services.StepIndex("tire_pressure_check"))
}

func TestFirstIncompleteIndex(t *testing.T) {
	buildSteps := func(completed ...int) []*models.HandoverStepCompletion {
		steps := make([]*models.HandoverStepCompletion, len(services.GetSteps()))
		for i, def := range services.GetSteps() {
			steps[i] = &models.HandoverStepCompletion{
				StepName:  def.Name,
				StepOrder: i,
			}
		}
		for _, idx := range completed {
			steps[idx].IsCompleted = true
		}
		return steps
	}

	t.Run("nothing completed", func(t *testing.T) {
		idx, ok := services.FirstIncompleteIndex(buildSteps())
		assert.True(t, ok)
		assert.Equal(t, 0, idx)
	})

	t.Run("out of order completion surfaces first gap", func(t *testing.T) {
		// Steps 0, 1 and 5 done; the gap at index 2 wins over later progress.
		idx, ok := services.FirstIncompleteIndex(buildSteps(0, 1, 5))
		assert.True(t, ok)
		assert.Equal(t, 2, idx)
	})

	t.Run("all completed", func(t *testing.T) {
		_, ok := services.FirstIncompleteIndex(buildSteps(0, 1, 2, 3, 4, 5, 6, 7))
		assert.False(t, ok)
	})
}

func TestStepStateFromData(t *testing.T) {
	t.Run("json numbers arrive as float64", func(t *testing.T) {
		state := services.StepStateFromData(map[string]any{
			"fuelLevel": float64(75),
			"mileage":   float64(48210),
		})
		require.NotNil(t, state.FuelLevel)
		require.NotNil(t, state.Mileage)
		assert.Equal(t, 75, *state.FuelLevel)
		assert.Equal(t, 48210, *state.Mileage)
	})

	t.Run("photo facets", func(t *testing.T) {
		state := services.StepStateFromData(map[string]any{
			"photos": []any{
				map[string]any{"type": "exterior_front", "url": "https://cdn/a.jpg"},
				map[string]any{"type": "exterior_back", "url": "https://cdn/b.jpg"},
				"not-a-photo",
			},
		})
		assert.Equal(t, []string{"exterior_front", "exterior_back"}, state.PhotoFacets)
	})

	t.Run("booleans and signature", func(t *testing.T) {
		state := services.StepStateFromData(map[string]any{
			"keyHandedOver":       true,
			"keyReceiptConfirmed": true,
			"sparesAccounted":     false,
			"signature":           "data:image/png;base64,AAAA",
			"decision":            "accepted",
		})
		assert.True(t, state.KeyHandedOver)
		assert.True(t, state.KeyReceiptConfirmed)
		assert.False(t, state.SparesAccounted)
		assert.Equal(t, "data:image/png;base64,AAAA", state.Signature)
		assert.Equal(t, "accepted", state.Decision)
	})

	t.Run("empty payload", func(t *testing.T) {
		state := services.StepStateFromData(map[string]any{})
		assert.Nil(t, state.FuelLevel)
		assert.Nil(t, state.Mileage)
		assert.Empty(t, state.PhotoFacets)
	})
}

func TestCanComplete_FuelMileage(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name      string
		fuelLevel *int
		mileage   *int
		want      bool
	}{
		{"valid readings", intPtr(50), intPtr(48210), true},
		{"fuel at lower bound", intPtr(0), intPtr(1), true},
		{"fuel at upper bound", intPtr(100), intPtr(1), true},
		{"fuel above range", intPtr(101), intPtr(48210), false},
		{"fuel below range", intPtr(-1), intPtr(48210), false},
		{"zero mileage rejected", intPtr(50), intPtr(0), false},
		{"negative mileage rejected", intPtr(50), intPtr(-5), false},
		{"missing fuel", nil, intPtr(48210), false},
		{"missing mileage", intPtr(50), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := services.StepState{FuelLevel: tt.fuelLevel, Mileage: tt.mileage}
			assert.Equal(t, tt.want, services.CanComplete(models.StepFuelMileage, state))
		})
	}
}

func TestCanComplete_Inspections(t *testing.T) {
	t.Run("all four exterior facets", func(t *testing.T) {
		state := services.StepState{PhotoFacets: []string{
			"exterior_front", "exterior_back", "exterior_left", "exterior_right",
		}}
		assert.True(t, services.CanComplete(models.StepExteriorInspection, state))
	})

	t.Run("four photos of the same facet do not satisfy", func(t *testing.T) {
		state := services.StepState{PhotoFacets: []string{
			"exterior_front", "exterior_front", "exterior_front", "exterior_front",
		}}
		assert.False(t, services.CanComplete(models.StepExteriorInspection, state))
	})

	t.Run("one facet missing", func(t *testing.T) {
		state := services.StepState{PhotoFacets: []string{
			"exterior_front", "exterior_back", "exterior_left",
		}}
		assert.False(t, services.CanComplete(models.StepExteriorInspection, state))
	})

	t.Run("extra photos beyond the required set are fine", func(t *testing.T) {
		state := services.StepState{PhotoFacets: []string{
			"interior_dashboard", "interior_seats", "fuel_gauge", "odometer",
			"interior_dashboard", "trunk",
		}}
		assert.True(t, services.CanComplete(models.StepInteriorInspection, state))
	})

	t.Run("exterior facets do not satisfy the interior step", func(t *testing.T) {
		state := services.StepState{PhotoFacets: []string{
			"exterior_front", "exterior_back", "exterior_left", "exterior_right",
		}}
		assert.False(t, services.CanComplete(models.StepInteriorInspection, state))
	})
}

func TestCanComplete_KeyTransfer(t *testing.T) {
	full := services.StepState{KeyHandedOver: true, KeyReceiptConfirmed: true, SparesAccounted: true}
	assert.True(t, services.CanComplete(models.StepKeyTransfer, full))

	missingReceipt := full
	missingReceipt.KeyReceiptConfirmed = false
	assert.False(t, services.CanComplete(models.StepKeyTransfer, missingReceipt))

	missingSpares := full
	missingSpares.SparesAccounted = false
	assert.False(t, services.CanComplete(models.StepKeyTransfer, missingSpares))
}

func TestCanComplete_Signature(t *testing.T) {
	assert.True(t, services.CanComplete(models.StepSignature, services.StepState{Signature: "sig"}))
	assert.False(t, services.CanComplete(models.StepSignature, services.StepState{}))
}

func TestCanComplete_AlwaysSatisfiable(t *testing.T) {
	// Navigation, identity and damage have no data preconditions. An empty
	// damage step records the zero-damage outcome.
	empty := services.StepState{}
	assert.True(t, services.CanComplete(models.StepNavigation, empty))
	assert.True(t, services.CanComplete(models.StepIdentity, empty))
	assert.True(t, services.CanComplete(models.StepDamage, empty))
}

func TestCanComplete_UnknownStep(t *testing.T) {
	assert.False(t, services.CanComplete("tire_pressure_check", services.StepState{}))
}
