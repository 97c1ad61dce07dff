package services

import (
	"context"
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
	ErrSessionNotFound  = errors.New("handover session not found")
	ErrSessionCompleted = errors.New("handover session already completed")
	ErrUnknownStep      = errors.New("unknown handover step")
	ErrStepNotSatisfied = errors.New("step completion predicate not satisfied")
)

// StepEngineService validates per-step readiness and persists completions.
// Writes are idempotent per (sessionId, stepName); both participants may
// submit the same step concurrently without duplicating rows.
type StepEngineService struct {
	db                 database.DB
	sessionRepo        repositories.HandoverSessionRepository
	stepRepo           repositories.StepCompletionRepository
	transactionService *TransactionService
	eventBus           *events.EventBus
	log                logger.Logger
}

func NewStepEngineService(
	db database.DB,
	sessionRepo repositories.HandoverSessionRepository,
	stepRepo repositories.StepCompletionRepository,
	transactionService *TransactionService,
	eventBus *events.EventBus,
) *StepEngineService {
	return &StepEngineService{
		db:                 db,
		sessionRepo:        sessionRepo,
		stepRepo:           stepRepo,
		transactionService: transactionService,
		eventBus:           eventBus,
		log:                logger.New("StepEngineService"),
	}
}

// InitializeSession idempotently creates one uninitialized completion row per
// registry step. Safe to retry; existing rows are never reset.
func (s *StepEngineService) InitializeSession(
	ctx context.Context,
	sessionID uuid.UUID,
) ([]*HandoverStepCompletion, error) {
	log := s.log.Function("InitializeSession")

	if _, err := s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	rows := make([]*HandoverStepCompletion, 0, len(GetSteps()))
	for i, def := range GetSteps() {
		rows = append(rows, &HandoverStepCompletion{
			SessionID:      sessionID,
			StepName:       def.Name,
			StepOrder:      i,
			IsCompleted:    false,
			CompletionData: datatypes.JSONMap{},
		})
	}

	err := s.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return s.stepRepo.CreateMissing(ctx, tx, rows)
	})
	if err != nil {
		return nil, log.Err("failed to initialize session steps", err, "sessionID", sessionID)
	}

	steps, err := s.stepRepo.GetBySession(ctx, s.db.SQL, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.eventBus.PublishSessionEvent(sessionID, events.STEPS_INITIALIZED, map[string]any{
		"totalSteps": len(steps),
	}); err != nil {
		log.Warn("failed to publish steps initialized event", "sessionID", sessionID, "error", err)
	}

	log.Info("Session steps initialized", "sessionID", sessionID, "stepCount", len(steps))
	return steps, nil
}

// GetSteps returns the session's persisted step state in registry order.
func (s *StepEngineService) GetSteps(
	ctx context.Context,
	sessionID uuid.UUID,
) ([]*HandoverStepCompletion, error) {
	steps, err := s.stepRepo.GetBySession(ctx, s.db.SQL, sessionID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		// Distinguish an uninitialized session from an unknown one.
		if _, err := s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrSessionNotFound
			}
			return nil, err
		}
	}
	return steps, nil
}

// CompleteStep persists one step completion. The predicate failure and the
// missing-session case are reported as typed errors, not panics; a failed
// completion leaves progress untouched.
func (s *StepEngineService) CompleteStep(
	ctx context.Context,
	sessionID uuid.UUID,
	stepName HandoverStepName,
	data map[string]any,
) (*HandoverStepCompletion, error) {
	log := s.log.Function("CompleteStep")

	if StepIndex(stepName) == -1 {
		return nil, ErrUnknownStep
	}

	session, err := s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	// Finalized sessions are terminal.
	if session.IsCompleted {
		return nil, ErrSessionCompleted
	}

	if data == nil {
		data = map[string]any{}
	}

	if !CanComplete(stepName, StepStateFromData(data)) {
		return nil, ErrStepNotSatisfied
	}

	var step *HandoverStepCompletion
	err = s.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		step, err = s.stepRepo.Complete(ctx, tx, sessionID, stepName, datatypes.JSONMap(data))
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrSessionNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCompletion(ctx, sessionID, step)

	log.Info(
		"Step completed",
		"sessionID", sessionID,
		"stepName", stepName,
	)
	return step, nil
}

// publishCompletion broadcasts the completion and the recomputed progress so
// both participants' trackers converge. Progress is derived from the same
// persisted rows the completion write touched, so there is no dual-write gap.
func (s *StepEngineService) publishCompletion(
	ctx context.Context,
	sessionID uuid.UUID,
	step *HandoverStepCompletion,
) {
	log := s.log.Function("publishCompletion")

	if err := s.eventBus.PublishSessionEvent(sessionID, events.STEP_COMPLETED, map[string]any{
		"stepName":  string(step.StepName),
		"stepOrder": step.StepOrder,
	}); err != nil {
		log.Warn("failed to publish step completed event", "sessionID", sessionID, "error", err)
	}

	steps, err := s.stepRepo.GetBySession(ctx, s.db.SQL, sessionID)
	if err != nil {
		log.Warn("failed to load steps for progress publish", "sessionID", sessionID, "error", err)
		return
	}

	progress := ComputeProgress(steps)
	if err := s.eventBus.PublishSessionEvent(sessionID, events.PROGRESS_UPDATED, progress.ToMap()); err != nil {
		log.Warn("failed to publish progress event", "sessionID", sessionID, "error", err)
	}
}
