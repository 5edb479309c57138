package models

import "time"

// PushSubscription is a browser Web Push endpoint registered by the UI.
// Unique per (user, endpoint); removed when the push service reports the
// endpoint gone (404/410).
type PushSubscription struct {
	ID        string    `bson:"id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Endpoint  string    `bson:"endpoint" json:"endpoint"`
	P256dh    string    `bson:"p256dh" json:"p256dh"`
	Auth      string    `bson:"auth" json:"auth"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NotificationSent records that a class reminder has been delivered for
// a portal booking, at most once per (booking, reminderMinutes).
type NotificationSent struct {
	ID              string    `bson:"id" json:"id"`
	PortalBookingID string    `bson:"portal_booking_id" json:"portal_booking_id"`
	ReminderMinutes int       `bson:"reminder_minutes" json:"reminder_minutes"`
	SentAt          time.Time `bson:"sent_at" json:"sent_at"`
}
