package models

import (
	"fmt"
	"time"
)

// Event is one entry of a reservation's user-visible timeline.
type Event struct {
	ID            string    `bson:"id" json:"id"`
	ReservationID string    `bson:"reservation_id" json:"reservation_id"`
	Date          time.Time `bson:"date" json:"date"`
	Message       string    `bson:"message" json:"message"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s: %s", e.Date.Format("02/01/2006 15:04:05"), e.Message)
}
