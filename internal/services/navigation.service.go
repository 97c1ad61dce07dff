package services

import (
	"context"
	"math"
	"strconv"

	"drivemate/config"
	"drivemate/internal/database"
	. "drivemate/internal/models"
	"drivemate/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const earthRadiusMeters = 6371000.0

// RouteProvider abstracts the external directions source so the navigation
// step never depends on a specific maps vendor.
type RouteProvider interface {
	RouteURL(destLat, destLng float64) string
}

// NavigationService answers the navigation step's two questions: where is the
// meeting point, and has the participant arrived.
type NavigationService struct {
	db          database.DB
	bookingRepo repositories.BookingRepository
	provider    RouteProvider
	radius      float64
	log         logger.Logger
}

func NewNavigationService(
	db database.DB,
	bookingRepo repositories.BookingRepository,
	provider RouteProvider,
	config config.Config,
) *NavigationService {
	return &NavigationService{
		db:          db,
		bookingRepo: bookingRepo,
		provider:    provider,
		radius:      float64(config.ArrivalRadiusMeters),
		log:         logger.New("NavigationService"),
	}
}

type NavigationTarget struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RouteURL  string  `json:"routeUrl"`
}

type ArrivalCheck struct {
	Arrived        bool    `json:"arrived"`
	DistanceMeters float64 `json:"distanceMeters"`
	RadiusMeters   float64 `json:"radiusMeters"`
}

// GetTarget returns the booking's pickup coordinates and an external route
// link for them.
func (s *NavigationService) GetTarget(
	ctx context.Context,
	bookingID uuid.UUID,
) (NavigationTarget, error) {
	booking, err := s.bookingRepo.GetByID(ctx, s.db.SQL, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return NavigationTarget{}, ErrBookingNotFound
		}
		return NavigationTarget{}, err
	}

	lat, lng := meetingPoint(booking)
	return NavigationTarget{
		Latitude:  lat,
		Longitude: lng,
		RouteURL:  s.provider.RouteURL(lat, lng),
	}, nil
}

// CheckArrival compares the participant's position against the meeting point.
func (s *NavigationService) CheckArrival(
	ctx context.Context,
	bookingID uuid.UUID,
	lat, lng float64,
) (ArrivalCheck, error) {
	booking, err := s.bookingRepo.GetByID(ctx, s.db.SQL, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ArrivalCheck{}, ErrBookingNotFound
		}
		return ArrivalCheck{}, err
	}

	targetLat, targetLng := meetingPoint(booking)
	distance := HaversineMeters(lat, lng, targetLat, targetLng)

	return ArrivalCheck{
		Arrived:        distance <= s.radius,
		DistanceMeters: distance,
		RadiusMeters:   s.radius,
	}, nil
}

// meetingPoint prefers booking-level pickup coordinates and falls back to the
// car's listed location.
func meetingPoint(booking *Booking) (float64, float64) {
	if booking.PickupLatitude != 0 || booking.PickupLongitude != 0 {
		return booking.PickupLatitude, booking.PickupLongitude
	}
	return booking.Car.Latitude, booking.Car.Longitude
}

// HaversineMeters is the great-circle distance between two coordinates.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// googleMapsProvider links to Google Maps directions. The default provider;
// swap via the RouteProvider interface.
type googleMapsProvider struct{}

func NewGoogleMapsProvider() RouteProvider {
	return googleMapsProvider{}
}

func (googleMapsProvider) RouteURL(destLat, destLng float64) string {
	return "https://www.google.com/maps/dir/?api=1&destination=" +
		strconv.FormatFloat(destLat, 'f', 6, 64) + "," +
		strconv.FormatFloat(destLng, 'f', 6, 64)
}
