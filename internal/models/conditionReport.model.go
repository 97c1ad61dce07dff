package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// VehicleConditionReport is the finalization artifact assembled from the
// evidence accumulated across a session's steps. Created at most once per
// session (unique index on HandoverSessionID) and read-only thereafter.
type VehicleConditionReport struct {
	BaseUUIDModel
	HandoverSessionID uuid.UUID                             `gorm:"type:uuid;not null;uniqueIndex" json:"handoverSessionId"`
	BookingID         uuid.UUID                             `gorm:"type:uuid;not null;index"       json:"bookingId"`
	CarID             uuid.UUID                             `gorm:"type:uuid;not null;index"       json:"carId"`
	ReportType        HandoverType                          `gorm:"type:varchar(16);not null"      json:"reportType"`
	VehiclePhotos     datatypes.JSONSlice[VehiclePhoto]     `gorm:"type:jsonb"                     json:"vehiclePhotos"`
	DamageReports     datatypes.JSONSlice[DamageReport]     `gorm:"type:jsonb"                     json:"damageReports"`
	FuelLevel         *int                                  `                                      json:"fuelLevel"`
	Mileage           *int                                  `                                      json:"mileage"`
	SignatureData     string                                `gorm:"type:text"                      json:"digitalSignatureData"`
	IsAcknowledged    bool                                  `gorm:"not null;default:false"         json:"isAcknowledged"`
	ReporterID        uuid.UUID                             `gorm:"type:uuid;not null"             json:"reporterId"`
}

// HasEvidence reports whether any evidentiary field carries data. Reports are
// only persisted when this is true.
func (r *VehicleConditionReport) HasEvidence() bool {
	return len(r.VehiclePhotos) > 0 ||
		len(r.DamageReports) > 0 ||
		r.FuelLevel != nil ||
		r.Mileage != nil
}
