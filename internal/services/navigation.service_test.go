package services

import (
	"testing"

	. "drivemate/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	t.Run("same point", func(t *testing.T) {
		assert.Zero(t, HaversineMeters(52.370216, 4.895168, 52.370216, 4.895168))
	})

	t.Run("amsterdam to utrecht", func(t *testing.T) {
		// Dam Square to Utrecht Dom tower, roughly 35 km apart.
		distance := HaversineMeters(52.373058, 4.892557, 52.090737, 5.121420)
		assert.InDelta(t, 35000, distance, 1000)
	})

	t.Run("short hop", func(t *testing.T) {
		// One degree of longitude at the equator is about 111.19 km.
		distance := HaversineMeters(0, 0, 0, 1)
		assert.InDelta(t, 111195, distance, 50)
	})

	t.Run("symmetric", func(t *testing.T) {
		forward := HaversineMeters(52.37, 4.89, 51.92, 4.48)
		backward := HaversineMeters(51.92, 4.48, 52.37, 4.89)
		assert.InDelta(t, forward, backward, 0.0001)
	})
}

func TestMeetingPoint(t *testing.T) {
	t.Run("booking pickup coordinates win", func(t *testing.T) {
		booking := &Booking{
			PickupLatitude:  52.1,
			PickupLongitude: 4.9,
			Car:             Car{Latitude: 51.0, Longitude: 4.0},
		}
		lat, lng := meetingPoint(booking)
		assert.Equal(t, 52.1, lat)
		assert.Equal(t, 4.9, lng)
	})

	t.Run("falls back to the car's listed location", func(t *testing.T) {
		booking := &Booking{Car: Car{Latitude: 51.0, Longitude: 4.0}}
		lat, lng := meetingPoint(booking)
		assert.Equal(t, 51.0, lat)
		assert.Equal(t, 4.0, lng)
	})
}

func TestGoogleMapsRouteURL(t *testing.T) {
	url := NewGoogleMapsProvider().RouteURL(52.370216, 4.895168)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=52.370216,4.895168", url)
}

func TestArrivalRadius(t *testing.T) {
	svc := &NavigationService{radius: 100}

	// Just inside and just outside the radius around the same target.
	target := struct{ lat, lng float64 }{52.370216, 4.895168}

	near := HaversineMeters(target.lat, target.lng, target.lat+0.0005, target.lng)
	far := HaversineMeters(target.lat, target.lng, target.lat+0.002, target.lng)

	assert.LessOrEqual(t, near, svc.radius)
	assert.Greater(t, far, svc.radius)
}
