package bookingController

import (
	"context"
	"errors"

	"drivemate/config"
	"drivemate/internal/database"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"
	"drivemate/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

type BookingController struct {
	bookingRepo repositories.BookingRepository
	navigation  *services.NavigationService
	db          database.DB
	Config      config.Config
}

type ArrivalCheckRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type BookingControllerInterface interface {
	GetBooking(ctx context.Context, user *User, bookingID uuid.UUID) (*Booking, error)
	GetUserBookings(ctx context.Context, user *User) ([]*Booking, error)
	GetNavigationTarget(
		ctx context.Context,
		user *User,
		bookingID uuid.UUID,
	) (services.NavigationTarget, error)
	CheckArrival(
		ctx context.Context,
		user *User,
		bookingID uuid.UUID,
		request *ArrivalCheckRequest,
	) (services.ArrivalCheck, error)
}

func New(
	repos repositories.Repository,
	svc services.Service,
	config config.Config,
	db database.DB,
) BookingControllerInterface {
	return &BookingController{
		bookingRepo: repos.Booking,
		navigation:  svc.Navigation,
		db:          db,
		Config:      config,
	}
}

func (c *BookingController) GetBooking(
	ctx context.Context,
	user *User,
	bookingID uuid.UUID,
) (*Booking, error) {
	log := logger.New("bookingController").Function("GetBooking")

	booking, err := c.authorizeBooking(ctx, user, bookingID, log)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (c *BookingController) GetUserBookings(
	ctx context.Context,
	user *User,
) ([]*Booking, error) {
	log := logger.New("bookingController").Function("GetUserBookings")

	bookings, err := c.bookingRepo.GetForUser(ctx, c.db.SQL, user.ID)
	if err != nil {
		return nil, log.Error("failed to get user bookings", "error", err, "userID", user.ID)
	}
	return bookings, nil
}

func (c *BookingController) GetNavigationTarget(
	ctx context.Context,
	user *User,
	bookingID uuid.UUID,
) (services.NavigationTarget, error) {
	log := logger.New("bookingController").Function("GetNavigationTarget")

	if _, err := c.authorizeBooking(ctx, user, bookingID, log); err != nil {
		return services.NavigationTarget{}, err
	}

	target, err := c.navigation.GetTarget(ctx, bookingID)
	if err != nil {
		return services.NavigationTarget{}, err
	}
	return target, nil
}

func (c *BookingController) CheckArrival(
	ctx context.Context,
	user *User,
	bookingID uuid.UUID,
	request *ArrivalCheckRequest,
) (services.ArrivalCheck, error) {
	log := logger.New("bookingController").Function("CheckArrival")

	if _, err := c.authorizeBooking(ctx, user, bookingID, log); err != nil {
		return services.ArrivalCheck{}, err
	}

	if request.Latitude < -90 || request.Latitude > 90 ||
		request.Longitude < -180 || request.Longitude > 180 {
		return services.ArrivalCheck{}, log.ErrorWithType(
			ErrValidation,
			"invalid coordinates",
			"latitude", request.Latitude,
			"longitude", request.Longitude,
		)
	}

	check, err := c.navigation.CheckArrival(ctx, bookingID, request.Latitude, request.Longitude)
	if err != nil {
		return services.ArrivalCheck{}, err
	}
	return check, nil
}

func (c *BookingController) authorizeBooking(
	ctx context.Context,
	user *User,
	bookingID uuid.UUID,
	log logger.Logger,
) (*Booking, error) {
	if bookingID == uuid.Nil {
		return nil, log.ErrorWithType(ErrValidation, "bookingId is required")
	}

	booking, err := c.bookingRepo.GetByID(ctx, c.db.SQL, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, log.ErrorWithType(ErrNotFound, "booking not found", "bookingID", bookingID)
		}
		return nil, err
	}

	if _, ok := booking.RoleOf(user.ID); !ok {
		return nil, log.ErrorWithType(
			ErrForbidden,
			"user is not a booking participant",
			"bookingID", bookingID,
			"userID", user.ID,
		)
	}
	return booking, nil
}
