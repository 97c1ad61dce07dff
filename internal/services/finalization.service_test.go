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
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newServiceMockDB wires a sqlmock connection through gorm so service flows
// run against scripted SQL. No cache client: reads degrade to the database,
// and the event bus runs local-only.
func newServiceMockDB(t *testing.T) (database.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return database.DB{SQL: gdb}, mock
}

func newTestFinalizationService(db database.DB) *FinalizationService {
	return NewFinalizationService(
		db,
		repositories.NewHandoverSessionRepository(),
		repositories.NewStepCompletionRepository(nil),
		repositories.NewConditionReportRepository(),
		NewTransactionService(db),
		events.New(nil, config.Config{}),
	)
}

type finalizeFixture struct {
	sessionID uuid.UUID
	bookingID uuid.UUID
	carID     uuid.UUID
	hostID    uuid.UUID
	renterID  uuid.UUID
}

func newFinalizeFixture() finalizeFixture {
	return finalizeFixture{
		sessionID: uuid.New(),
		bookingID: uuid.New(),
		carID:     uuid.New(),
		hostID:    uuid.New(),
		renterID:  uuid.New(),
	}
}

// expectSessionLoad scripts the session read plus its booking preload.
func (f finalizeFixture) expectSessionLoad(mock sqlmock.Sqlmock, handoverType string, completed bool) {
	mock.ExpectQuery(`SELECT .+ FROM "handover_sessions"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "booking_id", "host_id", "renter_id", "handover_type", "is_completed"},
		).AddRow(
			f.sessionID.String(), f.bookingID.String(), f.hostID.String(), f.renterID.String(),
			handoverType, completed,
		))
	mock.ExpectQuery(`SELECT .+ FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "car_id", "host_id", "renter_id", "start_date", "end_date"},
		).AddRow(
			f.bookingID.String(), f.carID.String(), f.hostID.String(), f.renterID.String(),
			time.Now().Add(-48*time.Hour), time.Now().Add(48*time.Hour),
		))
}

// expectStepLoad scripts the ordered step rows; completionData applies to the
// named step, every other step carries an empty payload.
func (f finalizeFixture) expectStepLoad(
	mock sqlmock.Sqlmock,
	allCompleted bool,
	dataStep HandoverStepName,
	completionData string,
) {
	rows := sqlmock.NewRows(
		[]string{"id", "session_id", "step_name", "step_order", "is_completed", "completion_data"},
	)
	for i, def := range GetSteps() {
		data := "{}"
		if def.Name == dataStep {
			data = completionData
		}
		completed := allCompleted || i == 0
		rows.AddRow(uuid.New().String(), f.sessionID.String(), string(def.Name), i, completed, data)
	}
	mock.ExpectQuery(`SELECT .+ FROM "handover_step_completions"`).WillReturnRows(rows)
}

func TestFinalize_ZeroEvidenceCompletesWithoutReport(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestFinalizationService(db)
	f := newFinalizeFixture()

	f.expectSessionLoad(mock, "pickup", false)
	f.expectStepLoad(mock, true, "", "")
	mock.ExpectExec(`UPDATE "handover_sessions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// No report insert: nothing evidentiary was captured.

	result, err := svc.Finalize(context.Background(), f.sessionID, f.renterID)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.False(t, result.ReportCreated)
	assert.Equal(t, RouteRenterBookings, result.RouteTarget)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalize_WithEvidenceCreatesReport(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestFinalizationService(db)
	f := newFinalizeFixture()

	f.expectSessionLoad(mock, "return", false)
	f.expectStepLoad(mock, true, StepFuelMileage, `{"fuelLevel": 80, "mileage": 48210}`)
	mock.ExpectExec(`UPDATE "handover_sessions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "vehicle_condition_reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	result, err := svc.Finalize(context.Background(), f.sessionID, f.renterID)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.True(t, result.ReportCreated)
	assert.Equal(t, RouteRenterReview, result.RouteTarget)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalize_IncompleteStepsRejected(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestFinalizationService(db)
	f := newFinalizeFixture()

	f.expectSessionLoad(mock, "pickup", false)
	f.expectStepLoad(mock, false, "", "")

	_, err := svc.Finalize(context.Background(), f.sessionID, f.renterID)
	assert.ErrorIs(t, err, ErrStepsIncomplete)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalize_LoserAdoptsSettledState(t *testing.T) {
	// Concurrent finalize: the conditional update fires for exactly one
	// caller. The loser sees zero rows affected and reports the winner's
	// outcome instead of writing a second report.
	db, mock := newServiceMockDB(t)
	svc := newTestFinalizationService(db)
	f := newFinalizeFixture()

	f.expectSessionLoad(mock, "pickup", false)
	f.expectStepLoad(mock, true, "", "")
	mock.ExpectExec(`UPDATE "handover_sessions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM "vehicle_condition_reports"`).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "handover_session_id"}).
				AddRow(uuid.New().String(), f.sessionID.String()),
		)

	result, err := svc.Finalize(context.Background(), f.sessionID, f.hostID)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.True(t, result.ReportCreated)
	assert.Equal(t, RouteHostBookings, result.RouteTarget)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalize_AlreadyCompletedIsIdempotent(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestFinalizationService(db)
	f := newFinalizeFixture()

	f.expectSessionLoad(mock, "pickup", true)
	mock.ExpectQuery(`SELECT .+ FROM "vehicle_condition_reports"`).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "handover_session_id"}).
				AddRow(uuid.New().String(), f.sessionID.String()),
		)

	result, err := svc.Finalize(context.Background(), f.sessionID, f.renterID)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.True(t, result.ReportCreated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func typePtr(t HandoverType) *HandoverType { return &t }

func TestRouteTarget(t *testing.T) {
	hostID := uuid.New()
	renterID := uuid.New()

	session := func(handoverType *HandoverType) *HandoverSession {
		return &HandoverSession{
			HostID:       hostID,
			RenterID:     renterID,
			HandoverType: handoverType,
		}
	}

	tests := []struct {
		name         string
		handoverType *HandoverType
		userID       uuid.UUID
		want         RouteTarget
	}{
		{"host after pickup", typePtr(HandoverTypePickup), hostID, RouteHostBookings},
		{"host after return", typePtr(HandoverTypeReturn), hostID, RouteHostBookings},
		{"renter after pickup", typePtr(HandoverTypePickup), renterID, RouteRenterBookings},
		{"renter after return reviews the host", typePtr(HandoverTypeReturn), renterID, RouteRenterReview},
		{"renter with unresolved type", nil, renterID, RouteRenterBookings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routeTarget(session(tt.handoverType), tt.userID))
		})
	}
}

func TestParsePhotos(t *testing.T) {
	t.Run("wire shaped payload", func(t *testing.T) {
		data := datatypes.JSONMap{
			"photos": []any{
				map[string]any{
					"id":        "p1",
					"type":      "exterior_front",
					"url":       "https://cdn/front.jpg",
					"timestamp": "2024-03-09T10:00:00Z",
				},
				map[string]any{
					"id":   "p2",
					"type": "exterior_back",
					"url":  "https://cdn/back.jpg",
				},
			},
		}

		photos := parsePhotos(data)
		require.Len(t, photos, 2)
		assert.Equal(t, "exterior_front", photos[0].Type)
		assert.Equal(t, "https://cdn/back.jpg", photos[1].URL)
	})

	t.Run("missing key", func(t *testing.T) {
		assert.Nil(t, parsePhotos(datatypes.JSONMap{}))
	})

	t.Run("malformed entries", func(t *testing.T) {
		assert.Nil(t, parsePhotos(datatypes.JSONMap{"photos": "nope"}))
	})
}

func TestParseDamages(t *testing.T) {
	data := datatypes.JSONMap{
		"damages": []any{
			map[string]any{
				"id":          "d1",
				"location":    "front left door",
				"severity":    "minor",
				"description": "scratch below the handle",
				"photos":      []any{"https://cdn/d1.jpg"},
			},
		},
	}

	damages := parseDamages(data)
	require.Len(t, damages, 1)
	assert.Equal(t, "front left door", damages[0].Location)
	assert.Equal(t, SeverityMinor, damages[0].Severity)
	assert.Equal(t, []string{"https://cdn/d1.jpg"}, damages[0].Photos)

	assert.Nil(t, parseDamages(datatypes.JSONMap{}))
}

func TestAssembleReport(t *testing.T) {
	svc := &FinalizationService{}
	handoverType := HandoverTypeReturn
	session := &HandoverSession{
		BookingID:    uuid.New(),
		HostID:       uuid.New(),
		RenterID:     uuid.New(),
		HandoverType: &handoverType,
		Booking:      Booking{CarID: uuid.New()},
	}
	session.ID = uuid.New()

	completedAt := time.Now()
	step := func(name HandoverStepName, data datatypes.JSONMap) *HandoverStepCompletion {
		return &HandoverStepCompletion{
			SessionID:      session.ID,
			StepName:       name,
			IsCompleted:    true,
			CompletionData: data,
			CompletedAt:    &completedAt,
		}
	}

	steps := []*HandoverStepCompletion{
		step(StepNavigation, datatypes.JSONMap{}),
		step(StepExteriorInspection, datatypes.JSONMap{
			"photos": []any{
				map[string]any{"type": "exterior_front", "url": "https://cdn/1.jpg"},
				map[string]any{"type": "exterior_back", "url": "https://cdn/2.jpg"},
			},
		}),
		step(StepInteriorInspection, datatypes.JSONMap{
			"photos": []any{
				map[string]any{"type": "odometer", "url": "https://cdn/3.jpg"},
			},
		}),
		step(StepDamage, datatypes.JSONMap{
			"damages": []any{
				map[string]any{"id": "d1", "location": "rear bumper", "severity": "moderate"},
			},
		}),
		step(StepFuelMileage, datatypes.JSONMap{
			"fuelLevel": float64(80),
			"mileage":   float64(48210),
		}),
		step(StepSignature, datatypes.JSONMap{"signature": "data:image/png;base64,AAAA"}),
	}

	report := svc.assembleReport(session, steps, session.RenterID)

	assert.Equal(t, session.ID, report.HandoverSessionID)
	assert.Equal(t, session.BookingID, report.BookingID)
	assert.Equal(t, session.Booking.CarID, report.CarID)
	assert.Equal(t, HandoverTypeReturn, report.ReportType)
	assert.Equal(t, session.RenterID, report.ReporterID)

	// Exterior and interior photos merge into one list.
	require.Len(t, report.VehiclePhotos, 3)
	require.Len(t, report.DamageReports, 1)
	assert.Equal(t, "rear bumper", report.DamageReports[0].Location)
	require.NotNil(t, report.FuelLevel)
	require.NotNil(t, report.Mileage)
	assert.Equal(t, 80, *report.FuelLevel)
	assert.Equal(t, 48210, *report.Mileage)
	assert.Equal(t, "data:image/png;base64,AAAA", report.SignatureData)
	assert.True(t, report.IsAcknowledged)
	assert.True(t, report.HasEvidence())
}

func TestAssembleReport_SkipsIncompleteSteps(t *testing.T) {
	svc := &FinalizationService{}
	session := &HandoverSession{Booking: Booking{CarID: uuid.New()}}
	session.ID = uuid.New()

	steps := []*HandoverStepCompletion{
		{
			StepName:    StepFuelMileage,
			IsCompleted: false,
			CompletionData: datatypes.JSONMap{
				"fuelLevel": float64(40),
				"mileage":   float64(100),
			},
		},
	}

	report := svc.assembleReport(session, steps, uuid.New())
	assert.Nil(t, report.FuelLevel)
	assert.Nil(t, report.Mileage)
	assert.False(t, report.HasEvidence())
}

func TestHasEvidence(t *testing.T) {
	fuel := 50

	t.Run("empty report", func(t *testing.T) {
		report := &VehicleConditionReport{}
		assert.False(t, report.HasEvidence())
	})

	t.Run("signature alone is not evidence", func(t *testing.T) {
		report := &VehicleConditionReport{SignatureData: "sig"}
		assert.False(t, report.HasEvidence())
	})

	t.Run("any evidentiary field suffices", func(t *testing.T) {
		assert.True(t, (&VehicleConditionReport{VehiclePhotos: datatypes.JSONSlice[VehiclePhoto]{{}}}).HasEvidence())
		assert.True(t, (&VehicleConditionReport{DamageReports: datatypes.JSONSlice[DamageReport]{{}}}).HasEvidence())
		assert.True(t, (&VehicleConditionReport{FuelLevel: &fuel}).HasEvidence())
	})
}

func TestHandoverTypeString(t *testing.T) {
	assert.Equal(t, "pickup", handoverTypeString(&HandoverSession{}))

	returnType := HandoverTypeReturn
	assert.Equal(t, "return", handoverTypeString(&HandoverSession{HandoverType: &returnType}))
}
