package portalBookingRepo

import (
	"time"

	"wodbooker/models"
)

// UpsertResult reports what an upsert did.
type UpsertResult int

const (
	UpsertUnchanged UpsertResult = iota
	UpsertCreated
	UpsertUpdated
)

// PortalBookingRepository defines methods for observed-booking access.
type PortalBookingRepository interface {
	// GetByID retrieves an observed booking by its unique ID.
	GetByID(id string) (*models.PortalBooking, error)
	// Upsert inserts or refreshes an observed booking, keyed by
	// (user, portal class, date). The unique index keeps concurrent
	// syncs from producing duplicate rows.
	Upsert(booking *models.PortalBooking) (UpsertResult, error)
	// GetByUserAndDate retrieves all observed bookings of a user on a date.
	GetByUserAndDate(userID string, date time.Time) ([]models.PortalBooking, error)
	// CancelMissing marks as cancelled every booking of the user on the
	// date whose portal class id is not in keep, and returns how many
	// rows were newly cancelled.
	CancelMissing(userID string, date time.Time, keep []string, fetchedAt time.Time) (int64, error)
	// GetActiveBetween retrieves non-cancelled bookings with class_date
	// inside [from, to].
	GetActiveBetween(from, to time.Time) ([]models.PortalBooking, error)
}
