package repositories

import (
	"context"
	"errors"
	"strings"

	. "drivemate/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateReport signals that a condition report already exists for the
// session; the unique index makes the create race-safe.
var ErrDuplicateReport = errors.New("condition report already exists for session")

type ConditionReportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, report *VehicleConditionReport) error
	GetBySessionID(
		ctx context.Context,
		tx *gorm.DB,
		sessionID uuid.UUID,
	) (*VehicleConditionReport, error)
	ExistsForSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (bool, error)
}

type conditionReportRepository struct {
	log logger.Logger
}

func NewConditionReportRepository() ConditionReportRepository {
	return &conditionReportRepository{
		log: logger.New("conditionReportRepository"),
	}
}

func (r *conditionReportRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	report *VehicleConditionReport,
) error {
	log := r.log.Function("Create")

	err := gorm.G[VehicleConditionReport](tx).Create(ctx, report)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReport
		}
		return log.Err(
			"failed to create condition report",
			err,
			"sessionID", report.HandoverSessionID,
			"reportType", report.ReportType,
		)
	}

	return nil
}

func (r *conditionReportRepository) GetBySessionID(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
) (*VehicleConditionReport, error) {
	log := r.log.Function("GetBySessionID")

	report, err := gorm.G[*VehicleConditionReport](tx).
		Where(VehicleConditionReport{HandoverSessionID: sessionID}).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get condition report", err, "sessionID", sessionID)
	}

	return report, nil
}

func (r *conditionReportRepository) ExistsForSession(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
) (bool, error) {
	_, err := r.GetBySessionID(ctx, tx, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// lib/pq / pgx surface the SQLSTATE in the message
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "23505")
}
