package services

import (
	"context"
	"errors"
	"time"

	"drivemate/internal/database"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidHandoverType = errors.New("invalid handover type")

// HandoverTypeService resolves whether a session is a pickup or a return.
// Resolution priority: explicit caller choice, then the type already
// persisted on the session, then the booking-date heuristic.
type HandoverTypeService struct {
	db          database.DB
	sessionRepo repositories.HandoverSessionRepository
	bookingRepo repositories.BookingRepository
	log         logger.Logger
}

func NewHandoverTypeService(
	db database.DB,
	sessionRepo repositories.HandoverSessionRepository,
	bookingRepo repositories.BookingRepository,
) *HandoverTypeService {
	return &HandoverTypeService{
		db:          db,
		sessionRepo: sessionRepo,
		bookingRepo: bookingRepo,
		log:         logger.New("HandoverTypeService"),
	}
}

// InferFromDates classifies a handover by where "now" falls in the booking
// window. Before the start it is a pickup; at or after the end it is a
// return; inside the window the nearer boundary wins, with the midpoint
// classified as a return.
func InferFromDates(now, startDate, endDate time.Time) HandoverType {
	if now.Before(startDate) {
		return HandoverTypePickup
	}
	if !now.Before(endDate) {
		return HandoverTypeReturn
	}

	sinceStart := now.Sub(startDate)
	untilEnd := endDate.Sub(now)
	if sinceStart >= untilEnd {
		return HandoverTypeReturn
	}
	return HandoverTypePickup
}

// ResolveType determines the session's handover type. An explicit caller
// choice is always used verbatim; the persisted type answers only when the
// caller expressed none, and the booking-date heuristic is the last resort.
// The first resolution persists its answer so later heuristic calls stay
// stable regardless of the clock.
func (s *HandoverTypeService) ResolveType(
	ctx context.Context,
	sessionID uuid.UUID,
	explicit *HandoverType,
) (HandoverType, error) {
	log := s.log.Function("ResolveType")

	if explicit != nil && !explicit.Valid() {
		return "", ErrInvalidHandoverType
	}

	session, err := s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrSessionNotFound
		}
		return "", err
	}

	if explicit != nil {
		// Seed the stored type if nothing claimed it yet, but the explicit
		// choice is the answer either way.
		if session.HandoverType == nil {
			if err := s.sessionRepo.SetHandoverType(ctx, s.db.SQL, sessionID, *explicit); err != nil {
				return "", err
			}
		}
		log.Info("Handover type resolved", "sessionID", sessionID, "type", *explicit)
		return *explicit, nil
	}

	if session.HandoverType != nil {
		return *session.HandoverType, nil
	}

	booking, err := s.bookingRepo.GetByID(ctx, s.db.SQL, session.BookingID)
	if err != nil {
		return "", log.Err("failed to load booking for type resolution", err,
			"sessionID", sessionID, "bookingID", session.BookingID)
	}
	resolved := InferFromDates(time.Now(), booking.StartDate, booking.EndDate)

	// Guarded write; a concurrent resolver may have won, in which case the
	// stored value is authoritative.
	if err := s.sessionRepo.SetHandoverType(ctx, s.db.SQL, sessionID, resolved); err != nil {
		return "", err
	}

	session, err = s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID)
	if err != nil {
		return "", err
	}
	if session.HandoverType == nil {
		return "", log.ErrMsg("handover type missing after resolution")
	}

	log.Info("Handover type resolved", "sessionID", sessionID, "type", *session.HandoverType)
	return *session.HandoverType, nil
}
