package repositories

import (
	"context"
	"time"

	"drivemate/internal/constants"
	"drivemate/internal/database"
	. "drivemate/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StepCompletionRepository interface {
	CreateMissing(ctx context.Context, tx *gorm.DB, steps []*HandoverStepCompletion) error
	GetBySession(
		ctx context.Context,
		tx *gorm.DB,
		sessionID uuid.UUID,
	) ([]*HandoverStepCompletion, error)
	GetByName(
		ctx context.Context,
		tx *gorm.DB,
		sessionID uuid.UUID,
		stepName HandoverStepName,
	) (*HandoverStepCompletion, error)
	Complete(
		ctx context.Context,
		tx *gorm.DB,
		sessionID uuid.UUID,
		stepName HandoverStepName,
		data datatypes.JSONMap,
	) (*HandoverStepCompletion, error)
	UpdateData(
		ctx context.Context,
		tx *gorm.DB,
		sessionID uuid.UUID,
		stepName HandoverStepName,
		data datatypes.JSONMap,
	) error
	ClearSessionCache(ctx context.Context, sessionID uuid.UUID)
}

type stepCompletionRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewStepCompletionRepository(cache database.CacheClient) StepCompletionRepository {
	return &stepCompletionRepository{
		cache: cache,
		log:   logger.New("stepCompletionRepository"),
	}
}

// CreateMissing idempotently creates the uninitialized row-per-step set for a
// session. Rows that already exist are left untouched, so re-initialization
// after a partial failure is safe.
func (r *stepCompletionRepository) CreateMissing(
	ctx context.Context,
	tx *gorm.DB,
	steps []*HandoverStepCompletion,
) error {
	log := r.log.Function("CreateMissing")

	for _, step := range steps {
		result := tx.WithContext(ctx).
			Where(
				"session_id = ? AND step_name = ?",
				step.SessionID,
				step.StepName,
			).
			FirstOrCreate(step)
		if result.Error != nil {
			return log.Err(
				"failed to create step completion row",
				result.Error,
				"sessionID", step.SessionID,
				"stepName", step.StepName,
			)
		}
	}

	if len(steps) > 0 {
		r.ClearSessionCache(ctx, steps[0].SessionID)
	}

	return nil
}

func (r *stepCompletionRepository) GetBySession(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
) ([]*HandoverStepCompletion, error) {
	log := r.log.Function("GetBySession")

	var cached []*HandoverStepCompletion
	found, err := database.NewCacheBuilder(r.cache, sessionID.String()).
		WithContext(ctx).
		WithHash(constants.SessionStepsCachePrefix).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get steps from cache", "sessionID", sessionID, "error", err)
	}

	if found {
		return cached, nil
	}

	steps, err := gorm.G[*HandoverStepCompletion](tx).
		Where(HandoverStepCompletion{SessionID: sessionID}).
		Order("step_order ASC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get step completions", err, "sessionID", sessionID)
	}

	err = database.NewCacheBuilder(r.cache, sessionID.String()).
		WithContext(ctx).
		WithHash(constants.SessionStepsCachePrefix).
		WithStruct(steps).
		WithTTL(constants.SessionStepsCacheExpiry).
		Set()
	if err != nil {
		log.Warn("failed to set steps in cache", "sessionID", sessionID, "error", err)
	}

	return steps, nil
}

func (r *stepCompletionRepository) GetByName(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
	stepName HandoverStepName,
) (*HandoverStepCompletion, error) {
	log := r.log.Function("GetByName")

	step, err := gorm.G[*HandoverStepCompletion](tx).
		Where("session_id = ? AND step_name = ?", sessionID, stepName).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err(
			"failed to get step completion",
			err,
			"sessionID", sessionID,
			"stepName", stepName,
		)
	}

	return step, nil
}

// Complete marks a step completed. IsCompleted is monotonic (COALESCE keeps
// the first completion timestamp); CompletionData is last-write-wins, which
// is safe because step payloads are commutative confirmations.
func (r *stepCompletionRepository) Complete(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
	stepName HandoverStepName,
	data datatypes.JSONMap,
) (*HandoverStepCompletion, error) {
	log := r.log.Function("Complete")

	result := tx.WithContext(ctx).
		Model(&HandoverStepCompletion{}).
		Where("session_id = ? AND step_name = ?", sessionID, stepName).
		Updates(map[string]any{
			"is_completed":    true,
			"completion_data": data,
			"completed_at":    gorm.Expr("COALESCE(completed_at, ?)", time.Now().UTC()),
		})
	if result.Error != nil {
		return nil, log.Err(
			"failed to complete step",
			result.Error,
			"sessionID", sessionID,
			"stepName", stepName,
		)
	}

	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	step, err := r.GetByName(ctx, tx, sessionID, stepName)
	if err != nil {
		return nil, log.Err(
			"failed to reload completed step",
			err,
			"sessionID", sessionID,
			"stepName", stepName,
		)
	}

	r.ClearSessionCache(ctx, sessionID)

	return step, nil
}

// UpdateData overwrites a step's payload without touching its completion
// flag. Used while evidence (damage reports) is still being collected.
func (r *stepCompletionRepository) UpdateData(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
	stepName HandoverStepName,
	data datatypes.JSONMap,
) error {
	log := r.log.Function("UpdateData")

	result := tx.WithContext(ctx).
		Model(&HandoverStepCompletion{}).
		Where("session_id = ? AND step_name = ?", sessionID, stepName).
		Update("completion_data", data)
	if result.Error != nil {
		return log.Err(
			"failed to update step data",
			result.Error,
			"sessionID", sessionID,
			"stepName", stepName,
		)
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	r.ClearSessionCache(ctx, sessionID)

	return nil
}

func (r *stepCompletionRepository) ClearSessionCache(ctx context.Context, sessionID uuid.UUID) {
	for _, prefix := range []string{
		constants.SessionStepsCachePrefix,
		constants.SessionProgressCachePrefix,
	} {
		err := database.NewCacheBuilder(r.cache, sessionID.String()).
			WithContext(ctx).
			WithHash(prefix).
			Delete()
		if err != nil {
			r.log.Warn(
				"failed to clear session cache",
				"sessionID", sessionID,
				"prefix", prefix,
				"error", err,
			)
		}
	}
}
