package services

import (
	"context"
	"encoding/json"
	"errors"

	"drivemate/internal/database"
	"drivemate/internal/events"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrStepsIncomplete = errors.New("handover steps incomplete")
	// ErrFinalizationPartial signals the session completed but the condition
	// report write failed. The session stays completed; the report is retried
	// by the follow-up job.
	ErrFinalizationPartial = errors.New("session completed but report creation failed")
)

type RouteTarget string

const (
	RouteRenterReview   RouteTarget = "renter_review"
	RouteHostBookings   RouteTarget = "host_bookings"
	RouteRenterBookings RouteTarget = "renter_bookings"
)

type FinalizeResult struct {
	Completed     bool        `json:"completed"`
	ReportCreated bool        `json:"reportCreated"`
	RouteTarget   RouteTarget `json:"routeTarget"`
}

// FinalizationService closes out a session: it verifies every step is done,
// marks the session completed exactly once, and folds the captured step
// evidence into a single condition report.
type FinalizationService struct {
	db                 database.DB
	sessionRepo        repositories.HandoverSessionRepository
	stepRepo           repositories.StepCompletionRepository
	reportRepo         repositories.ConditionReportRepository
	transactionService *TransactionService
	eventBus           *events.EventBus
	log                logger.Logger
}

func NewFinalizationService(
	db database.DB,
	sessionRepo repositories.HandoverSessionRepository,
	stepRepo repositories.StepCompletionRepository,
	reportRepo repositories.ConditionReportRepository,
	transactionService *TransactionService,
	eventBus *events.EventBus,
) *FinalizationService {
	return &FinalizationService{
		db:                 db,
		sessionRepo:        sessionRepo,
		stepRepo:           stepRepo,
		reportRepo:         reportRepo,
		transactionService: transactionService,
		eventBus:           eventBus,
		log:                logger.New("FinalizationService"),
	}
}

// Finalize completes the session and creates its condition report. The
// conditional session update is the serialization point: when both
// participants finalize at once, exactly one caller runs the report path and
// the other observes the already-final state. Re-finalizing a completed
// session is an idempotent success.
func (s *FinalizationService) Finalize(
	ctx context.Context,
	sessionID uuid.UUID,
	userID uuid.UUID,
) (FinalizeResult, error) {
	log := s.log.Function("Finalize")

	session, err := s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return FinalizeResult{}, ErrSessionNotFound
		}
		return FinalizeResult{}, err
	}

	if session.IsCompleted {
		exists, err := s.reportRepo.ExistsForSession(ctx, s.db.SQL, sessionID)
		if err != nil {
			return FinalizeResult{}, err
		}
		return s.result(session, userID, exists), nil
	}

	steps, err := s.stepRepo.GetBySession(ctx, s.db.SQL, sessionID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if _, hasIncomplete := FirstIncompleteIndex(steps); hasIncomplete || len(steps) == 0 {
		return FinalizeResult{}, ErrStepsIncomplete
	}

	won, err := s.sessionRepo.MarkCompleted(ctx, s.db.SQL, sessionID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if !won {
		// Lost the race to a concurrent finalize; report the settled state.
		exists, err := s.reportRepo.ExistsForSession(ctx, s.db.SQL, sessionID)
		if err != nil {
			return FinalizeResult{}, err
		}
		return s.result(session, userID, exists), nil
	}

	if err := s.eventBus.PublishSessionEvent(sessionID, events.SESSION_COMPLETED, map[string]any{
		"handoverType": handoverTypeString(session),
	}); err != nil {
		log.Warn("failed to publish session completed event", "sessionID", sessionID, "error", err)
	}

	reportCreated, err := s.createReport(ctx, session, steps, userID)
	if err != nil {
		log.Er("report creation failed after session completion", err, "sessionID", sessionID)
		if publishErr := s.eventBus.PublishSessionEvent(sessionID, events.REPORT_FAILED, map[string]any{
			"error": err.Error(),
		}); publishErr != nil {
			log.Warn("failed to publish report failed event", "sessionID", sessionID, "error", publishErr)
		}
		return s.result(session, userID, false), ErrFinalizationPartial
	}

	if reportCreated {
		if err := s.eventBus.PublishSessionEvent(sessionID, events.REPORT_CREATED, nil); err != nil {
			log.Warn("failed to publish report created event", "sessionID", sessionID, "error", err)
		}
	}

	log.Info(
		"Session finalized",
		"sessionID", sessionID,
		"reportCreated", reportCreated,
	)
	return s.result(session, userID, reportCreated), nil
}

// CreateMissingReport builds the condition report for an already-completed
// session that lacks one. Used by the follow-up job to heal partial
// finalizations.
func (s *FinalizationService) CreateMissingReport(
	ctx context.Context,
	sessionID uuid.UUID,
) (bool, error) {
	session, err := s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, ErrSessionNotFound
		}
		return false, err
	}
	if !session.IsCompleted {
		return false, ErrStepsIncomplete
	}

	steps, err := s.stepRepo.GetBySession(ctx, s.db.SQL, sessionID)
	if err != nil {
		return false, err
	}

	return s.createReport(ctx, session, steps, session.RenterID)
}

// createReport assembles evidence from the completed step payloads and writes
// the report. Returns false without error when there is no evidence to
// record. The unique index on handover_session_id makes the write
// create-once; a duplicate from a concurrent writer counts as created.
func (s *FinalizationService) createReport(
	ctx context.Context,
	session *HandoverSession,
	steps []*HandoverStepCompletion,
	reporterID uuid.UUID,
) (bool, error) {
	report := s.assembleReport(session, steps, reporterID)
	if !report.HasEvidence() {
		return false, nil
	}

	err := s.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return s.reportRepo.Create(ctx, tx, report)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateReport) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FinalizationService) assembleReport(
	session *HandoverSession,
	steps []*HandoverStepCompletion,
	reporterID uuid.UUID,
) *VehicleConditionReport {
	report := &VehicleConditionReport{
		HandoverSessionID: session.ID,
		BookingID:         session.BookingID,
		CarID:             session.Booking.CarID,
		ReportType:        HandoverType(handoverTypeString(session)),
		ReporterID:        reporterID,
		// Finalization only runs after the signature step, so the recorded
		// condition is acknowledged by construction.
		IsAcknowledged: true,
	}

	for _, step := range steps {
		if !step.IsCompleted {
			continue
		}
		switch step.StepName {
		case StepExteriorInspection, StepInteriorInspection:
			report.VehiclePhotos = append(report.VehiclePhotos, parsePhotos(step.CompletionData)...)
		case StepDamage:
			report.DamageReports = append(report.DamageReports, parseDamages(step.CompletionData)...)
		case StepFuelMileage:
			state := StepStateFromData(step.CompletionData)
			report.FuelLevel = state.FuelLevel
			report.Mileage = state.Mileage
		case StepSignature:
			state := StepStateFromData(step.CompletionData)
			report.SignatureData = state.Signature
		}
	}

	return report
}

func (s *FinalizationService) result(
	session *HandoverSession,
	userID uuid.UUID,
	reportCreated bool,
) FinalizeResult {
	return FinalizeResult{
		Completed:     true,
		ReportCreated: reportCreated,
		RouteTarget:   routeTarget(session, userID),
	}
}

// routeTarget decides where each participant lands after finalization. The
// renter reviews the host after a return; everyone else goes back to their
// bookings list.
func routeTarget(session *HandoverSession, userID uuid.UUID) RouteTarget {
	isReturn := session.HandoverType != nil && *session.HandoverType == HandoverTypeReturn
	if userID == session.HostID {
		return RouteHostBookings
	}
	if isReturn {
		return RouteRenterReview
	}
	return RouteRenterBookings
}

func handoverTypeString(session *HandoverSession) string {
	if session.HandoverType == nil {
		return string(HandoverTypePickup)
	}
	return string(*session.HandoverType)
}

func parsePhotos(data datatypes.JSONMap) []VehiclePhoto {
	raw, ok := data["photos"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var photos []VehiclePhoto
	if err := json.Unmarshal(encoded, &photos); err != nil {
		return nil
	}
	return photos
}

func parseDamages(data datatypes.JSONMap) []DamageReport {
	raw, ok := data["damages"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var damages []DamageReport
	if err := json.Unmarshal(encoded, &damages); err != nil {
		return nil
	}
	return damages
}
