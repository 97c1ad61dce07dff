package models

import "github.com/google/uuid"

type Car struct {
	BaseUUIDModel
	HostID       uuid.UUID `gorm:"type:uuid;not null;index" json:"hostId"`
	Host         User      `gorm:"foreignKey:HostID"        json:"host"`
	Make         string    `gorm:"not null"                 json:"make"`
	Model        string    `gorm:"not null"                 json:"model"`
	Year         int       `gorm:"not null"                 json:"year"`
	LicensePlate string    `gorm:"uniqueIndex;not null"     json:"licensePlate"`
	Latitude     float64   `                                json:"latitude"`
	Longitude    float64   `                                json:"longitude"`
}
