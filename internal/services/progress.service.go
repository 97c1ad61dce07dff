package services

import (
	"context"

	"drivemate/internal/database"
	"drivemate/internal/events"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

// Progress is a pure projection of persisted step rows. Two callers holding
// the same rows always derive the same snapshot, which is what lets both
// participants' views converge through replication alone.
type Progress struct {
	CompletedSteps     int     `json:"completedSteps"`
	TotalSteps         int     `json:"totalSteps"`
	ProgressPercentage float64 `json:"progressPercentage"`
	CurrentStepNumber  int     `json:"currentStepNumber"`
	IsCompleted        bool    `json:"isCompleted"`
}

func (p Progress) ToMap() map[string]any {
	return map[string]any{
		"completedSteps":     p.CompletedSteps,
		"totalSteps":         p.TotalSteps,
		"progressPercentage": p.ProgressPercentage,
		"currentStepNumber":  p.CurrentStepNumber,
		"isCompleted":        p.IsCompleted,
	}
}

// ComputeProgress derives the session snapshot from step rows. The current
// step is the first incomplete one in registry order, which may sit before
// later steps that were already completed out of order.
func ComputeProgress(steps []*HandoverStepCompletion) Progress {
	total := len(steps)
	if total == 0 {
		total = len(GetSteps())
	}

	completed := 0
	for _, step := range steps {
		if step.IsCompleted {
			completed++
		}
	}

	progress := Progress{
		CompletedSteps: completed,
		TotalSteps:     total,
	}
	if total > 0 {
		progress.ProgressPercentage = float64(completed) / float64(total) * 100
	}

	idx, hasIncomplete := FirstIncompleteIndex(steps)
	if !hasIncomplete && len(steps) > 0 {
		progress.IsCompleted = true
		progress.CurrentStepNumber = total
	} else {
		progress.CurrentStepNumber = idx + 1
	}

	return progress
}

// ProgressService serves point-in-time snapshots and relays live updates.
type ProgressService struct {
	db          database.DB
	sessionRepo repositories.HandoverSessionRepository
	stepRepo    repositories.StepCompletionRepository
	eventBus    *events.EventBus
	log         logger.Logger
}

func NewProgressService(
	db database.DB,
	sessionRepo repositories.HandoverSessionRepository,
	stepRepo repositories.StepCompletionRepository,
	eventBus *events.EventBus,
) *ProgressService {
	return &ProgressService{
		db:          db,
		sessionRepo: sessionRepo,
		stepRepo:    stepRepo,
		eventBus:    eventBus,
		log:         logger.New("ProgressService"),
	}
}

// GetProgress reads the current snapshot from persisted rows.
func (s *ProgressService) GetProgress(
	ctx context.Context,
	sessionID uuid.UUID,
) (Progress, error) {
	steps, err := s.stepRepo.GetBySession(ctx, s.db.SQL, sessionID)
	if err != nil {
		return Progress{}, err
	}
	if len(steps) == 0 {
		if _, err := s.sessionRepo.GetByID(ctx, s.db.SQL, sessionID); err != nil {
			return Progress{}, ErrSessionNotFound
		}
	}
	return ComputeProgress(steps), nil
}

// Watch subscribes the handler to the session's live event stream. The
// handler also receives SYNC_UNAVAILABLE when the underlying channel drops,
// so consumers can surface a degraded state instead of silently staling.
func (s *ProgressService) Watch(sessionID uuid.UUID, handler events.EventHandler) error {
	return s.eventBus.Subscribe(events.SessionChannel(sessionID), handler)
}
