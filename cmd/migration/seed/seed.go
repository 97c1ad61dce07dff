package seed

import (
	"time"

	"drivemate/config"
	. "drivemate/internal/models"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	host := User{
		FirstName: "Helen",
		LastName:  "Marsh",
		Email:     "helen.host@example.com",
		Phone:     "+15550100",
		IsActive:  true,
	}
	renter := User{
		FirstName: "Ray",
		LastName:  "Okafor",
		Email:     "ray.renter@example.com",
		Phone:     "+15550101",
		IsActive:  true,
	}

	for _, user := range []*User{&host, &renter} {
		var existing User
		if err := db.First(&existing, "email = ?", user.Email).Error; err == nil {
			*user = existing
			log.Info("User already exists", "email", user.Email)
			continue
		}
		if err := db.Create(user).Error; err != nil {
			return log.Err("failed to create user", err, "email", user.Email)
		}
	}

	car := Car{
		HostID:       host.ID,
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2022,
		LicensePlate: "DRV-1234",
		Latitude:     52.370216,
		Longitude:    4.895168,
	}
	var existingCar Car
	if err := db.First(&existingCar, "license_plate = ?", car.LicensePlate).Error; err == nil {
		car = existingCar
		log.Info("Car already exists", "licensePlate", car.LicensePlate)
	} else if err := db.Create(&car).Error; err != nil {
		return log.Err("failed to create car", err)
	}

	booking := Booking{
		CarID:           car.ID,
		HostID:          host.ID,
		RenterID:        renter.ID,
		Status:          BookingStatusConfirmed,
		DailyRate:       decimal.NewFromFloat(42.50),
		StartDate:       time.Now().Add(24 * time.Hour),
		EndDate:         time.Now().Add(96 * time.Hour),
		PickupLatitude:  52.370216,
		PickupLongitude: 4.895168,
	}
	var existingBooking Booking
	err := db.First(
		&existingBooking,
		"car_id = ? AND renter_id = ?",
		car.ID, renter.ID,
	).Error
	if err == nil {
		log.Info("Booking already exists", "bookingID", existingBooking.ID)
		return nil
	}
	if err := db.Create(&booking).Error; err != nil {
		return log.Err("failed to create booking", err)
	}

	log.Info("Seed complete", "bookingID", booking.ID)
	return nil
}
