package models

import "time"

// Reservation is a recurring weekly class the system books on behalf of
// a user as soon as the portal opens the booking window.
type Reservation struct {
	ID     string `bson:"id" json:"id"`
	UserID string `bson:"user_id" json:"user_id"`

	// Dow is the day of week of the class, 0=Monday..6=Sunday.
	Dow int `bson:"dow" json:"dow"`
	// Time is the class local time in Madrid, "HH:MM".
	Time string `bson:"time" json:"time"`
	// URL is the box URL the class belongs to.
	URL string `bson:"url" json:"url"`
	// Offset is how many days before the class the booking window opens.
	Offset int `bson:"offset" json:"offset"`
	// AvailableAt is the local time the booking window opens, "HH:MM".
	AvailableAt string `bson:"available_at" json:"available_at"`
	// TypeClass selects the class kind inside a mixed schedule slot.
	TypeClass int `bson:"type_class" json:"type_class"`

	LastBookDate *time.Time `bson:"last_book_date,omitempty" json:"last_book_date,omitempty"`
	BookedAt     *time.Time `bson:"booked_at,omitempty" json:"booked_at,omitempty"`
	IsActive     bool       `bson:"is_active" json:"is_active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
