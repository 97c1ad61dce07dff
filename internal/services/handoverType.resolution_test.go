package services

import (
	"context"
	"testing"
	"time"

	"drivemate/internal/database"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandoverTypeService(db database.DB) *HandoverTypeService {
	return NewHandoverTypeService(
		db,
		repositories.NewHandoverSessionRepository(),
		repositories.NewBookingRepository(nil),
	)
}

// expectResolveSessionLoad scripts the session read with its booking preload.
// persistedType nil leaves the stored handover_type column NULL.
func expectResolveSessionLoad(mock sqlmock.Sqlmock, f finalizeFixture, persistedType any) {
	mock.ExpectQuery(`SELECT .+ FROM "handover_sessions"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "booking_id", "host_id", "renter_id", "handover_type", "is_completed"},
		).AddRow(
			f.sessionID.String(), f.bookingID.String(), f.hostID.String(), f.renterID.String(),
			persistedType, false,
		))
	mock.ExpectQuery(`SELECT .+ FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "car_id", "host_id", "renter_id", "start_date", "end_date"},
		).AddRow(
			f.bookingID.String(), f.carID.String(), f.hostID.String(), f.renterID.String(),
			time.Now().Add(-72*time.Hour), time.Now().Add(72*time.Hour),
		))
}

func TestResolveType_ExplicitOverridesPersisted(t *testing.T) {
	// The stored type only answers when the caller expressed nothing. A
	// caller asking for a pickup gets a pickup even after a return was
	// recorded, and the stored value is left alone.
	db, mock := newServiceMockDB(t)
	svc := newTestHandoverTypeService(db)
	f := newFinalizeFixture()

	expectResolveSessionLoad(mock, f, string(HandoverTypeReturn))

	explicit := HandoverTypePickup
	resolved, err := svc.ResolveType(context.Background(), f.sessionID, &explicit)
	require.NoError(t, err)
	assert.Equal(t, HandoverTypePickup, resolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveType_ExplicitSeedsUnsetType(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestHandoverTypeService(db)
	f := newFinalizeFixture()

	expectResolveSessionLoad(mock, f, nil)
	mock.ExpectExec(`UPDATE "handover_sessions" SET "handover_type"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	explicit := HandoverTypeReturn
	resolved, err := svc.ResolveType(context.Background(), f.sessionID, &explicit)
	require.NoError(t, err)
	assert.Equal(t, HandoverTypeReturn, resolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveType_PersistedAnswersWithoutExplicit(t *testing.T) {
	db, mock := newServiceMockDB(t)
	svc := newTestHandoverTypeService(db)
	f := newFinalizeFixture()

	expectResolveSessionLoad(mock, f, string(HandoverTypeReturn))

	resolved, err := svc.ResolveType(context.Background(), f.sessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, HandoverTypeReturn, resolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
