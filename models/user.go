package models

import "time"

// User is a portal account managed by the system. The cookie blob is
// opaque: only the portal client parses it.
type User struct {
	ID         string `bson:"id" json:"id"`
	Email      string `bson:"email" json:"email"`
	Cookie     []byte `bson:"cookie,omitempty" json:"-"`
	ForceLogin bool   `bson:"force_login" json:"force_login"`
	AthleteID  string `bson:"athlete_id,omitempty" json:"athlete_id,omitempty"`

	// Notification preferences.
	MailPermissionSuccess bool `bson:"mail_permission_success" json:"mail_permission_success"`
	MailPermissionFailure bool `bson:"mail_permission_failure" json:"mail_permission_failure"`
	PushEnabled           bool `bson:"push_enabled" json:"push_enabled"`
	PushSuccess           bool `bson:"push_success" json:"push_success"`
	PushFailure           bool `bson:"push_failure" json:"push_failure"`
	PushReminder1h        bool `bson:"push_reminder_1h" json:"push_reminder_1h"`
	PushReminder30m       bool `bson:"push_reminder_30m" json:"push_reminder_30m"`
	PushReminder15m       bool `bson:"push_reminder_15m" json:"push_reminder_15m"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
