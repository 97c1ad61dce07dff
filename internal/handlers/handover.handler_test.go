package handlers

import (
	"errors"
	"fmt"
	"testing"

	bookingController "drivemate/internal/controllers/booking"
	handoverController "drivemate/internal/controllers/handover"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", handoverController.ErrValidation, fiber.StatusBadRequest},
		{"not found", handoverController.ErrNotFound, fiber.StatusNotFound},
		{"forbidden", handoverController.ErrForbidden, fiber.StatusForbidden},
		{"conflict", handoverController.ErrConflict, fiber.StatusConflict},
		{
			"wrapped sentinel",
			fmt.Errorf("complete step: %w", handoverController.ErrValidation),
			fiber.StatusBadRequest,
		},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestBookingStatusForError(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, bookingStatusForError(bookingController.ErrValidation))
	assert.Equal(t, fiber.StatusNotFound, bookingStatusForError(bookingController.ErrNotFound))
	assert.Equal(t, fiber.StatusForbidden, bookingStatusForError(bookingController.ErrForbidden))
	assert.Equal(t, fiber.StatusInternalServerError, bookingStatusForError(errors.New("boom")))
}
