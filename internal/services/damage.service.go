package services

import (
	"context"
	"errors"
	"time"

	"drivemate/internal/events"
	. "drivemate/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrDamageLocked   = errors.New("damage documentation already completed")
	ErrDamageNotFound = errors.New("damage report not found")
	ErrInvalidDamage  = errors.New("invalid damage report")
)

// AddDamage appends a damage entry to the documentation step's payload.
// Damage entries are mutable only while the step is open; completing the
// step freezes the list into the record that finalization folds into the
// condition report.
func (s *StepEngineService) AddDamage(
	ctx context.Context,
	sessionID uuid.UUID,
	damage DamageReport,
) ([]DamageReport, error) {
	log := s.log.Function("AddDamage")

	if damage.Location == "" || !damage.Severity.Valid() {
		return nil, ErrInvalidDamage
	}
	if damage.ID == "" {
		damage.ID = uuid.New().String()
	}
	if damage.Timestamp.IsZero() {
		damage.Timestamp = time.Now().UTC()
	}

	var damages []DamageReport
	err := s.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		step, err := s.damageStep(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		damages = append(damagesFromData(step.CompletionData), damage)
		return s.writeDamages(ctx, tx, sessionID, step, damages)
	})
	if err != nil {
		return nil, err
	}

	s.publishDamageUpdate(sessionID, damages)
	log.Info("Damage report added", "sessionID", sessionID, "damageID", damage.ID)
	return damages, nil
}

// RemoveDamage deletes a damage entry by ID while the step is still open.
func (s *StepEngineService) RemoveDamage(
	ctx context.Context,
	sessionID uuid.UUID,
	damageID string,
) ([]DamageReport, error) {
	log := s.log.Function("RemoveDamage")

	var damages []DamageReport
	err := s.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		step, err := s.damageStep(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		existing := damagesFromData(step.CompletionData)
		damages = make([]DamageReport, 0, len(existing))
		found := false
		for _, d := range existing {
			if d.ID == damageID {
				found = true
				continue
			}
			damages = append(damages, d)
		}
		if !found {
			return ErrDamageNotFound
		}

		return s.writeDamages(ctx, tx, sessionID, step, damages)
	})
	if err != nil {
		return nil, err
	}

	s.publishDamageUpdate(sessionID, damages)
	log.Info("Damage report removed", "sessionID", sessionID, "damageID", damageID)
	return damages, nil
}

func (s *StepEngineService) damageStep(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
) (*HandoverStepCompletion, error) {
	step, err := s.stepRepo.GetByName(ctx, tx, sessionID, StepDamage)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if step.IsCompleted {
		return nil, ErrDamageLocked
	}
	return step, nil
}

func (s *StepEngineService) writeDamages(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
	step *HandoverStepCompletion,
	damages []DamageReport,
) error {
	data := datatypes.JSONMap{}
	for k, v := range step.CompletionData {
		data[k] = v
	}
	data["damages"] = damages

	return s.stepRepo.UpdateData(ctx, tx, sessionID, StepDamage, data)
}

func (s *StepEngineService) publishDamageUpdate(sessionID uuid.UUID, damages []DamageReport) {
	log := s.log.Function("publishDamageUpdate")

	if err := s.eventBus.PublishSessionEvent(sessionID, events.DAMAGE_UPDATED, map[string]any{
		"damageCount": len(damages),
	}); err != nil {
		log.Warn("failed to publish damage updated event", "sessionID", sessionID, "error", err)
	}
}

func damagesFromData(data datatypes.JSONMap) []DamageReport {
	raw, ok := data["damages"]
	if !ok {
		return nil
	}

	// Stored either as typed entries (same process) or generic JSON maps
	// (after a round trip through the database).
	if typed, ok := raw.([]DamageReport); ok {
		return typed
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	damages := make([]DamageReport, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		d := DamageReport{}
		d.ID, _ = m["id"].(string)
		d.Location, _ = m["location"].(string)
		if severity, ok := m["severity"].(string); ok {
			d.Severity = DamageSeverity(severity)
		}
		d.Description, _ = m["description"].(string)
		if photos, ok := m["photos"].([]any); ok {
			for _, p := range photos {
				if url, ok := p.(string); ok {
					d.Photos = append(d.Photos, url)
				}
			}
		}
		if ts, ok := m["timestamp"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				d.Timestamp = parsed
			}
		}
		damages = append(damages, d)
	}
	return damages
}
