package services

import (
	"context"
	"testing"
	"time"

	"drivemate/config"
	"drivemate/internal/database"
	"drivemate/internal/events"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStepEngine(db database.DB) *StepEngineService {
	return NewStepEngineService(
		db,
		repositories.NewHandoverSessionRepository(),
		repositories.NewStepCompletionRepository(nil),
		NewTransactionService(db),
		events.New(nil, config.Config{}),
	)
}

// expectCompleteStepRound scripts one full CompleteStep pass for the fuel and
// mileage step. The update uses COALESCE on completed_at, so the timestamp
// returned by the re-read is whatever the first completion stamped.
func expectCompleteStepRound(
	mock sqlmock.Sqlmock,
	f finalizeFixture,
	completedAt time.Time,
) {
	f.expectSessionLoad(mock, "pickup", false)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "handover_step_completions" SET .+COALESCE\(completed_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM "handover_step_completions"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "session_id", "step_name", "step_order", "is_completed", "completion_data", "completed_at"},
		).AddRow(
			uuid.New().String(), f.sessionID.String(), string(StepFuelMileage),
			StepIndex(StepFuelMileage), true, `{"fuelLevel": 80, "mileage": 48210}`, completedAt,
		))
	mock.ExpectCommit()

	// Progress recompute for the broadcast.
	f.expectStepLoad(mock, false, "", "")
}

func TestCompleteStep_RepeatKeepsFirstCompletedAt(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestStepEngine(db)
	f := newFinalizeFixture()

	firstCompletedAt := time.Date(2026, 4, 11, 9, 30, 0, 0, time.UTC)
	data := map[string]any{"fuelLevel": float64(80), "mileage": float64(48210)}

	expectCompleteStepRound(mock, f, firstCompletedAt)
	first, err := svc.CompleteStep(context.Background(), f.sessionID, StepFuelMileage, data)
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)

	// A retry of the same submission succeeds and the original completion
	// timestamp survives.
	expectCompleteStepRound(mock, f, firstCompletedAt)
	second, err := svc.CompleteStep(context.Background(), f.sessionID, StepFuelMileage, data)
	require.NoError(t, err)
	require.NotNil(t, second.CompletedAt)

	assert.True(t, second.IsCompleted)
	assert.Equal(t, first.CompletedAt.UTC(), second.CompletedAt.UTC())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteStep_UnsatisfiedPredicateWritesNothing(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestStepEngine(db)
	f := newFinalizeFixture()

	f.expectSessionLoad(mock, "pickup", false)

	_, err := svc.CompleteStep(context.Background(), f.sessionID, StepFuelMileage, map[string]any{
		"fuelLevel": float64(80),
	})
	assert.ErrorIs(t, err, ErrStepNotSatisfied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteStep_CompletedSessionRejected(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestStepEngine(db)
	f := newFinalizeFixture()

	f.expectSessionLoad(mock, "pickup", true)

	_, err := svc.CompleteStep(context.Background(), f.sessionID, StepFuelMileage, map[string]any{
		"fuelLevel": float64(80), "mileage": float64(48210),
	})
	assert.ErrorIs(t, err, ErrSessionCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
