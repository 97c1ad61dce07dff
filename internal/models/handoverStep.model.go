package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type HandoverStepName string

const (
	StepNavigation         HandoverStepName = "navigation"
	StepIdentity           HandoverStepName = "identity_verification"
	StepExteriorInspection HandoverStepName = "vehicle_inspection_exterior"
	StepInteriorInspection HandoverStepName = "vehicle_inspection_interior"
	StepDamage             HandoverStepName = "damage_documentation"
	StepFuelMileage        HandoverStepName = "fuel_mileage_check"
	StepKeyTransfer        HandoverStepName = "key_transfer"
	StepSignature          HandoverStepName = "digital_signature"
)

// HandoverStepCompletion is one row per (sessionId, stepName), created
// uninitialized when the session is initialized and flipped to completed when
// the step's predicate is satisfied. IsCompleted is monotonic: re-completion
// overwrites CompletionData but never reverts the flag.
type HandoverStepCompletion struct {
	BaseUUIDModel
	SessionID      uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_session_step" json:"sessionId"`
	StepName       HandoverStepName   `gorm:"type:varchar(64);not null;uniqueIndex:idx_session_step" json:"stepName"`
	StepOrder      int                `gorm:"not null"                                        json:"stepOrder"`
	IsCompleted    bool               `gorm:"not null;default:false"                          json:"isCompleted"`
	CompletionData datatypes.JSONMap  `gorm:"type:jsonb"                                      json:"completionData"`
	CompletedAt    *time.Time         `                                                       json:"completedAt"`
}
