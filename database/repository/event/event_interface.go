package eventRepo

import (
	"time"

	"wodbooker/models"
)

// EventRepository defines methods for reservation timeline access.
type EventRepository interface {
	// Insert appends a new event row.
	Insert(event *models.Event) error
	// GetLast retrieves the most recent event for a reservation, or nil
	// when the timeline is empty.
	GetLast(reservationID string) (*models.Event, error)
	// GetByReservation retrieves the timeline for a reservation, newest
	// first. limit <= 0 means no limit.
	GetByReservation(reservationID string, limit int) ([]models.Event, error)
	// DeleteByReservation removes the whole timeline of a reservation.
	DeleteByReservation(reservationID string) error
	// DeleteOlderThan removes events for a reservation older than the
	// cutoff, never touching the event with the given ID.
	DeleteOlderThan(reservationID string, cutoff time.Time, keepID string) (int64, error)
}
