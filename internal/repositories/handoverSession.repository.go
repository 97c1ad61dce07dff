package repositories

import (
	"context"
	"time"

	. "drivemate/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HandoverSessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *HandoverSession) error
	GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*HandoverSession, error)
	GetActiveByBookingAndType(
		ctx context.Context,
		tx *gorm.DB,
		bookingID uuid.UUID,
		handoverType HandoverType,
	) (*HandoverSession, error)
	SetHandoverType(
		ctx context.Context,
		tx *gorm.DB,
		sessionID uuid.UUID,
		handoverType HandoverType,
	) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (bool, error)
	GetCompletedWithoutReport(
		ctx context.Context,
		tx *gorm.DB,
		completedBefore time.Time,
	) ([]*HandoverSession, error)
}

type handoverSessionRepository struct {
	log logger.Logger
}

func NewHandoverSessionRepository() HandoverSessionRepository {
	return &handoverSessionRepository{
		log: logger.New("handoverSessionRepository"),
	}
}

func (r *handoverSessionRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	session *HandoverSession,
) error {
	log := r.log.Function("Create")

	err := gorm.G[HandoverSession](tx).Create(ctx, session)
	if err != nil {
		return log.Err(
			"failed to create handover session",
			err,
			"bookingID", session.BookingID,
		)
	}

	return nil
}

func (r *handoverSessionRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
) (*HandoverSession, error) {
	log := r.log.Function("GetByID")

	session, err := gorm.G[*HandoverSession](tx).
		Preload("Booking", nil).
		Where(HandoverSession{BaseUUIDModel: BaseUUIDModel{ID: sessionID}}).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get handover session", err, "sessionID", sessionID)
	}

	return session, nil
}

func (r *handoverSessionRepository) GetActiveByBookingAndType(
	ctx context.Context,
	tx *gorm.DB,
	bookingID uuid.UUID,
	handoverType HandoverType,
) (*HandoverSession, error) {
	log := r.log.Function("GetActiveByBookingAndType")

	session, err := gorm.G[*HandoverSession](tx).
		Where(
			"booking_id = ? AND handover_type = ? AND is_completed = false",
			bookingID,
			handoverType,
		).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err(
			"failed to get active session",
			err,
			"bookingID", bookingID,
			"handoverType", handoverType,
		)
	}

	return session, nil
}

func (r *handoverSessionRepository) SetHandoverType(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
	handoverType HandoverType,
) error {
	log := r.log.Function("SetHandoverType")

	result := tx.WithContext(ctx).
		Model(&HandoverSession{}).
		Where("id = ? AND handover_type IS NULL", sessionID).
		Update("handover_type", handoverType)
	if result.Error != nil {
		return log.Err(
			"failed to set handover type",
			result.Error,
			"sessionID", sessionID,
			"handoverType", handoverType,
		)
	}

	return nil
}

// MarkCompleted is the finalization serialization point: a conditional update
// that only fires while the session is still open. Returns false when another
// finalize run already completed the session.
func (r *handoverSessionRepository) MarkCompleted(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
) (bool, error) {
	log := r.log.Function("MarkCompleted")

	result := tx.WithContext(ctx).
		Model(&HandoverSession{}).
		Where("id = ? AND is_completed = false", sessionID).
		Updates(map[string]any{
			"is_completed": true,
			"completed_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, log.Err(
			"failed to mark session completed",
			result.Error,
			"sessionID", sessionID,
		)
	}

	return result.RowsAffected > 0, nil
}

func (r *handoverSessionRepository) GetCompletedWithoutReport(
	ctx context.Context,
	tx *gorm.DB,
	completedBefore time.Time,
) ([]*HandoverSession, error) {
	log := r.log.Function("GetCompletedWithoutReport")

	sessions, err := gorm.G[*HandoverSession](tx).
		Preload("Booking", nil).
		Where(
			"is_completed = true AND completed_at < ? AND NOT EXISTS (SELECT 1 FROM vehicle_condition_reports vcr WHERE vcr.handover_session_id = handover_sessions.id AND vcr.deleted_at IS NULL)",
			completedBefore,
		).
		Order("completed_at ASC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get completed sessions without report", err)
	}

	return sessions, nil
}
