package constants

import "time"

const (
	SessionStepsCachePrefix    = "handover_steps"    // Step list by sessionID (CacheBuilder adds colon)
	SessionProgressCachePrefix = "handover_progress" // Progress snapshot by sessionID
	BookingCachePrefix         = "booking"           // Booking metadata by bookingID
	SessionStepsCacheExpiry    = 15 * time.Minute
	BookingCacheExpiry         = 24 * time.Hour
)
