package services_test

import (
	"testing"
	"time"

	"drivemate/internal/models"
	"drivemate/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestInferFromDates(t *testing.T) {
	start := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want models.HandoverType
	}{
		{
			"well before the booking starts",
			time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC),
			models.HandoverTypePickup,
		},
		{
			"moments before start",
			start.Add(-time.Minute),
			models.HandoverTypePickup,
		},
		{
			"exactly at start",
			start,
			models.HandoverTypePickup,
		},
		{
			"early in the window, closer to start",
			time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
			models.HandoverTypePickup,
		},
		{
			"late in the window, closer to end",
			time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
			models.HandoverTypeReturn,
		},
		{
			"exact midpoint resolves to return",
			time.Date(2024, 3, 12, 22, 0, 0, 0, time.UTC),
			models.HandoverTypeReturn,
		},
		{
			"exactly at end",
			end,
			models.HandoverTypeReturn,
		},
		{
			"after the booking ends",
			end.Add(48 * time.Hour),
			models.HandoverTypeReturn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.InferFromDates(tt.now, start, end))
		})
	}
}

func TestInferFromDates_Deterministic(t *testing.T) {
	start := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

	first := services.InferFromDates(now, start, end)
	for range 10 {
		assert.Equal(t, first, services.InferFromDates(now, start, end))
	}
}

func TestHandoverTypeValid(t *testing.T) {
	assert.True(t, models.HandoverTypePickup.Valid())
	assert.True(t, models.HandoverTypeReturn.Valid())
	assert.False(t, models.HandoverType("exchange").Valid())
	assert.False(t, models.HandoverType("").Valid())
}
