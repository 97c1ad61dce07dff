package handoverController

import (
	"context"
	"errors"

	. "drivemate/internal/models"
	"drivemate/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

func (c *HandoverController) AddDamageReport(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
	request *DamageReportRequest,
) ([]DamageReport, error) {
	log := logger.New("handoverController").Function("AddDamageReport")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return nil, err
	}

	if request.Location == "" {
		return nil, log.ErrorWithType(ErrValidation, "location is required")
	}
	severity := DamageSeverity(request.Severity)
	if !severity.Valid() {
		return nil, log.ErrorWithType(
			ErrValidation,
			"severity must be minor, moderate or major",
			"severity", request.Severity,
		)
	}
	if len(request.Description) > MaxDamageDescription {
		return nil, log.ErrorWithType(
			ErrValidation,
			"description exceeds maximum length",
			"length", len(request.Description),
			"max", MaxDamageDescription,
		)
	}

	damages, err := c.stepEngine.AddDamage(ctx, sessionID, DamageReport{
		Location:    request.Location,
		Severity:    severity,
		Description: request.Description,
		Photos:      request.Photos,
	})
	if err != nil {
		return nil, c.mapDamageError(err, sessionID, log)
	}
	return damages, nil
}

func (c *HandoverController) RemoveDamageReport(
	ctx context.Context,
	user *User,
	sessionID uuid.UUID,
	damageID string,
) ([]DamageReport, error) {
	log := logger.New("handoverController").Function("RemoveDamageReport")

	if _, err := c.authorizeSession(ctx, user, sessionID, log); err != nil {
		return nil, err
	}

	if damageID == "" {
		return nil, log.ErrorWithType(ErrValidation, "damageId is required")
	}

	damages, err := c.stepEngine.RemoveDamage(ctx, sessionID, damageID)
	if err != nil {
		return nil, c.mapDamageError(err, sessionID, log)
	}
	return damages, nil
}

func (c *HandoverController) mapDamageError(
	err error,
	sessionID uuid.UUID,
	log logger.Logger,
) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return log.ErrorWithType(ErrNotFound, "session not found", "sessionID", sessionID)
	case errors.Is(err, services.ErrDamageNotFound):
		return log.ErrorWithType(ErrNotFound, "damage report not found", "sessionID", sessionID)
	case errors.Is(err, services.ErrDamageLocked):
		return log.ErrorWithType(
			ErrConflict,
			"damage documentation is already completed",
			"sessionID", sessionID,
		)
	case errors.Is(err, services.ErrInvalidDamage):
		return log.ErrorWithType(ErrValidation, "invalid damage report")
	}
	return err
}
