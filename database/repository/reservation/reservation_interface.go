package reservationRepo

import (
	"time"

	"wodbooker/models"
)

// ReservationRepository defines methods for reservation data access.
type ReservationRepository interface {
	// GetByID retrieves a reservation by its unique ID.
	GetByID(id string) (*models.Reservation, error)
	// GetAll retrieves all reservations.
	GetAll() ([]models.Reservation, error)
	// GetActive retrieves all reservations with is_active=true.
	GetActive() ([]models.Reservation, error)
	// GetByUser retrieves all reservations belonging to a user.
	GetByUser(userID string) ([]models.Reservation, error)
	// Create inserts a new reservation record.
	Create(reservation *models.Reservation) error
	// Update modifies an existing reservation record.
	Update(reservation *models.Reservation) error
	// Delete removes a reservation record by its ID.
	Delete(id string) error
	// MarkBooked records a completed booking: last_book_date and booked_at.
	MarkBooked(id string, lastBookDate, bookedAt time.Time) error
	// SetActive toggles the is_active flag.
	SetActive(id string, active bool) error
}
