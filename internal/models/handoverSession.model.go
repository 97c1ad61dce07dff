package models

import (
	"time"

	"github.com/google/uuid"
)

type HandoverType string

const (
	HandoverTypePickup HandoverType = "pickup"
	HandoverTypeReturn HandoverType = "return"
)

func (t HandoverType) Valid() bool {
	return t == HandoverTypePickup || t == HandoverTypeReturn
}

// HandoverSession is one run of the pickup-or-return workflow for a booking.
// At most one active (non-completed) session may exist per (bookingId,
// handoverType) pair; the partial unique index enforcing that is created in
// database.CreateIndexes. HandoverType stays nil until resolved.
type HandoverSession struct {
	BaseUUIDModel
	BookingID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"bookingId"`
	Booking      Booking       `gorm:"foreignKey:BookingID"     json:"booking"`
	HostID       uuid.UUID     `gorm:"type:uuid;not null"       json:"hostId"`
	RenterID     uuid.UUID     `gorm:"type:uuid;not null"       json:"renterId"`
	HandoverType *HandoverType `gorm:"type:varchar(16)"         json:"handoverType"`
	IsCompleted  bool          `gorm:"not null;default:false"   json:"isCompleted"`
	CompletedAt  *time.Time    `                                json:"completedAt"`
}
