package repositories

import (
	"context"
	"errors"
	"testing"

	. "drivemate/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return db, mock
}

func TestConditionReportRepository_ExistsForSession(t *testing.T) {
	repo := NewConditionReportRepository()
	ctx := context.Background()
	sessionID := uuid.New()

	t.Run("no report yet", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT .+ FROM "vehicle_condition_reports"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "handover_session_id"}))

		exists, err := repo.ExistsForSession(ctx, db, sessionID)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("report present", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT .+ FROM "vehicle_condition_reports"`).
			WillReturnRows(
				sqlmock.NewRows([]string{"id", "handover_session_id", "report_type"}).
					AddRow(uuid.New().String(), sessionID.String(), "pickup"),
			)

		exists, err := repo.ExistsForSession(ctx, db, sessionID)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConditionReportRepository_CreateDuplicate(t *testing.T) {
	repo := NewConditionReportRepository()
	db, mock := newMockDB(t)

	mock.ExpectQuery(`INSERT INTO "vehicle_condition_reports"`).
		WillReturnError(errors.New(
			`ERROR: duplicate key value violates unique constraint ` +
				`"idx_vehicle_condition_reports_handover_session_id" (SQLSTATE 23505)`,
		))

	fuel := 50
	err := repo.Create(context.Background(), db, &VehicleConditionReport{
		HandoverSessionID: uuid.New(),
		BookingID:         uuid.New(),
		CarID:             uuid.New(),
		ReportType:        HandoverTypePickup,
		ReporterID:        uuid.New(),
		FuelLevel:         &fuel,
	})

	assert.ErrorIs(t, err, ErrDuplicateReport)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New("SQLSTATE 23505")))
	assert.True(t, isUniqueViolation(errors.New(`duplicate key value violates unique constraint "x"`)))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}
