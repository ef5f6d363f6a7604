package model

import "time"

// CacheEntry is the durable per-(user, venue) cache row. It is upserted
// on every fetch attempt: AttemptedAt always moves forward, while
// FetchedAt and Report only advance on success.
type CacheEntry struct {
	UserID      string      `json:"user_id"`
	Venue       string      `json:"venue"`
	Report      VenueReport `json:"report"`
	FetchedAt   time.Time   `json:"fetched_at"`
	AttemptedAt time.Time   `json:"attempted_at"`
	// LastErrorType is the apperrors tag of the most recent failed
	// attempt, empty after a success. Drives the gate's backoff choice.
	LastErrorType string `json:"last_error_type,omitempty"`
}
