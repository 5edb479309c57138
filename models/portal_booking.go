package models

import "time"

// PortalBooking is a class the user has actually claimed on the portal,
// as observed by the synchronizer. Unique per (user, class, date).
type PortalBooking struct {
	ID            string    `bson:"id" json:"id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	PortalClassID string    `bson:"portal_class_id" json:"portal_class_id"`
	ClassDate     time.Time `bson:"class_date" json:"class_date"`
	// ClassTime is the class local time in Madrid, "HH:MM:SS".
	ClassTime   string    `bson:"class_time" json:"class_time"`
	ClassName   string    `bson:"class_name,omitempty" json:"class_name,omitempty"`
	TypeClass   int       `bson:"type_class" json:"type_class"`
	BoxURL      string    `bson:"box_url" json:"box_url"`
	FetchedAt   time.Time `bson:"fetched_at" json:"fetched_at"`
	IsCancelled bool      `bson:"is_cancelled" json:"is_cancelled"`
}
