package repositories

import (
	"context"

	"drivemate/internal/constants"
	"drivemate/internal/database"
	. "drivemate/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *Booking) error
	GetByID(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) (*Booking, error)
	GetForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*Booking, error)
}

type bookingRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewBookingRepository(cache database.CacheClient) BookingRepository {
	return &bookingRepository{
		cache: cache,
		log:   logger.New("bookingRepository"),
	}
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *Booking) error {
	log := r.log.Function("Create")

	err := gorm.G[Booking](tx).Create(ctx, booking)
	if err != nil {
		return log.Err(
			"failed to create booking",
			err,
			"carID", booking.CarID,
			"renterID", booking.RenterID,
		)
	}

	return nil
}

func (r *bookingRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	bookingID uuid.UUID,
) (*Booking, error) {
	log := r.log.Function("GetByID")

	var cached Booking
	found, err := database.NewCacheBuilder(r.cache, bookingID.String()).
		WithContext(ctx).
		WithHash(constants.BookingCachePrefix).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get booking from cache", "bookingID", bookingID, "error", err)
	}

	if found {
		return &cached, nil
	}

	booking, err := gorm.G[*Booking](tx).
		Preload("Car", nil).
		Preload("Host", nil).
		Preload("Renter", nil).
		Where(Booking{BaseUUIDModel: BaseUUIDModel{ID: bookingID}}).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get booking", err, "bookingID", bookingID)
	}

	err = database.NewCacheBuilder(r.cache, bookingID.String()).
		WithContext(ctx).
		WithHash(constants.BookingCachePrefix).
		WithStruct(booking).
		WithTTL(constants.BookingCacheExpiry).
		Set()
	if err != nil {
		log.Warn("failed to set booking in cache", "bookingID", bookingID, "error", err)
	}

	return booking, nil
}

func (r *bookingRepository) GetForUser(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) ([]*Booking, error) {
	log := r.log.Function("GetForUser")

	bookings, err := gorm.G[*Booking](tx).
		Preload("Car", nil).
		Where("host_id = ? OR renter_id = ?", userID, userID).
		Order("start_date DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get bookings for user", err, "userID", userID)
	}

	return bookings, nil
}
