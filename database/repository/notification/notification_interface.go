package notificationRepo

import (
	"time"

	"wodbooker/models"
)

// NotificationSentRepository records delivered class reminders so each
// one fires at most once per (booking, reminderMinutes).
type NotificationSentRepository interface {
	// Exists reports whether a reminder has already been sent.
	Exists(portalBookingID string, reminderMinutes int) (bool, error)
	// Create records a delivered reminder.
	Create(sent *models.NotificationSent) error
	// DeleteOlderThan purges records older than the cutoff and returns
	// how many were removed.
	DeleteOlderThan(cutoff time.Time) (int64, error)
}
