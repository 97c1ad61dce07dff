package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is the metadata provider for handover sessions: participant roles,
// rental window, and the pickup destination used by the navigation step.
type Booking struct {
	BaseUUIDModel
	CarID           uuid.UUID       `gorm:"type:uuid;not null;index"      json:"carId"`
	Car             Car             `gorm:"foreignKey:CarID"              json:"car"`
	HostID          uuid.UUID       `gorm:"type:uuid;not null;index"      json:"hostId"`
	Host            User            `gorm:"foreignKey:HostID"             json:"host"`
	RenterID        uuid.UUID       `gorm:"type:uuid;not null;index"      json:"renterId"`
	Renter          User            `gorm:"foreignKey:RenterID"           json:"renter"`
	StartDate       time.Time       `gorm:"not null"                      json:"startDate"`
	EndDate         time.Time       `gorm:"not null"                      json:"endDate"`
	DailyRate       decimal.Decimal `gorm:"type:numeric(10,2)"            json:"dailyRate"`
	Status          BookingStatus   `gorm:"not null;default:'confirmed'"  json:"status"`
	PickupLatitude  float64         `                                     json:"pickupLatitude"`
	PickupLongitude float64         `                                     json:"pickupLongitude"`
}

// ParticipantRole identifies which side of the handover a user is on.
type ParticipantRole string

const (
	RoleHost   ParticipantRole = "host"
	RoleRenter ParticipantRole = "renter"
)

// RoleOf returns the booking-scoped role for a user, or false if the user is
// not a participant of this booking.
func (b *Booking) RoleOf(userID uuid.UUID) (ParticipantRole, bool) {
	switch userID {
	case b.HostID:
		return RoleHost, true
	case b.RenterID:
		return RoleRenter, true
	default:
		return "", false
	}
}
