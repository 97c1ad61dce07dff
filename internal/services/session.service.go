package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"drivemate/internal/database"
	"drivemate/internal/events"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotParticipant  = errors.New("user is not a participant of this booking")
)

// SessionService owns the handover session lifecycle. At most one active
// session exists per (booking, handover type); both participants joining at
// once converge on the same session rather than each getting their own.
type SessionService struct {
	db          database.DB
	sessionRepo repositories.HandoverSessionRepository
	bookingRepo repositories.BookingRepository
	stepEngine  *StepEngineService
	eventBus    *events.EventBus
	log         logger.Logger
}

func NewSessionService(
	db database.DB,
	sessionRepo repositories.HandoverSessionRepository,
	bookingRepo repositories.BookingRepository,
	stepEngine *StepEngineService,
	eventBus *events.EventBus,
) *SessionService {
	return &SessionService{
		db:          db,
		sessionRepo: sessionRepo,
		bookingRepo: bookingRepo,
		stepEngine:  stepEngine,
		eventBus:    eventBus,
		log:         logger.New("SessionService"),
	}
}

// StartSession creates or joins the active session for a booking. The second
// participant calling with the same booking and type gets the first caller's
// session back, steps included.
func (s *SessionService) StartSession(
	ctx context.Context,
	bookingID uuid.UUID,
	userID uuid.UUID,
	explicit *HandoverType,
) (*HandoverSession, []*HandoverStepCompletion, error) {
	log := s.log.Function("StartSession")

	if explicit != nil && !explicit.Valid() {
		return nil, nil, ErrInvalidHandoverType
	}

	booking, err := s.bookingRepo.GetByID(ctx, s.db.SQL, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrBookingNotFound
		}
		return nil, nil, err
	}

	if _, ok := booking.RoleOf(userID); !ok {
		return nil, nil, ErrNotParticipant
	}

	handoverType := HandoverTypePickup
	if explicit != nil {
		handoverType = *explicit
	} else {
		handoverType = InferFromDates(time.Now(), booking.StartDate, booking.EndDate)
	}

	session, err := s.sessionRepo.GetActiveByBookingAndType(ctx, s.db.SQL, bookingID, handoverType)
	if err == nil {
		steps, err := s.stepEngine.InitializeSession(ctx, session.ID)
		if err != nil {
			return nil, nil, err
		}
		return session, steps, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, nil, err
	}

	session = &HandoverSession{
		BookingID:    bookingID,
		HostID:       booking.HostID,
		RenterID:     booking.RenterID,
		HandoverType: &handoverType,
	}

	if err := s.sessionRepo.Create(ctx, s.db.SQL, session); err != nil {
		// A concurrent start for the same booking and type hit the partial
		// unique index first; adopt that session.
		if isActiveSessionConflict(err) {
			existing, lookupErr := s.sessionRepo.GetActiveByBookingAndType(
				ctx, s.db.SQL, bookingID, handoverType,
			)
			if lookupErr != nil {
				return nil, nil, log.Err(
					"failed to load session after conflict",
					lookupErr,
					"bookingID", bookingID,
				)
			}
			session = existing
		} else {
			return nil, nil, err
		}
	}

	if err := s.eventBus.PublishSessionEvent(session.ID, events.SESSION_CREATED, map[string]any{
		"bookingID":    bookingID.String(),
		"handoverType": string(handoverType),
	}); err != nil {
		log.Warn("failed to publish session created event", "sessionID", session.ID, "error", err)
	}

	steps, err := s.stepEngine.InitializeSession(ctx, session.ID)
	if err != nil {
		return nil, nil, err
	}

	log.Info(
		"Handover session started",
		"sessionID", session.ID,
		"bookingID", bookingID,
		"handoverType", handoverType,
	)
	return session, steps, nil
}

// GetSession loads a session and checks the caller participates in it.
func (s *SessionService) GetSession(
	ctx context.Context,
	sessionID uuid.UUID,
	userID uuid.UUID,
) (*HandoverSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if userID != session.HostID && userID != session.RenterID {
		return nil, ErrNotParticipant
	}
	return session, nil
}

func isActiveSessionConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "idx_active_session_per_booking_type") ||
		strings.Contains(msg, "23505")
}
