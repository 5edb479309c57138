package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	notificationRepo "wodbooker/database/repository/notification"
	portalBookingRepo "wodbooker/database/repository/portalbooking"
	userRepo "wodbooker/database/repository/user"
	"wodbooker/models"
	"wodbooker/utils"
)

// reminderWindow is how far a reminder instant may drift from the scan
// tick and still fire. Scans run every minute.
const reminderWindow = time.Minute

// sentRetention is how long delivered-reminder records are kept.
const sentRetention = 7 * 24 * time.Hour

// reminderOffset binds a minutes-before offset to the user preference
// that enables it.
type reminderOffset struct {
	minutes int
	label   string
	enabled func(*models.User) bool
}

var reminderOffsets = []reminderOffset{
	{60, "1 hora", func(u *models.User) bool { return u.PushReminder1h }},
	{30, "30 minutos", func(u *models.User) bool { return u.PushReminder30m }},
	{15, "15 minutos", func(u *models.User) bool { return u.PushReminder15m }},
}

// ReminderScanner pushes class reminders for observed bookings. Scan is
// meant to run once a minute.
type ReminderScanner struct {
	bookings portalBookingRepo.PortalBookingRepository
	sent     notificationRepo.NotificationSentRepository
	users    userRepo.UserRepository
	pusher   Service
	logger   *zap.Logger
}

// NewReminderScanner wires the reminder scanner.
func NewReminderScanner(
	bookings portalBookingRepo.PortalBookingRepository,
	sent notificationRepo.NotificationSentRepository,
	users userRepo.UserRepository,
	pusher Service,
) *ReminderScanner {
	return &ReminderScanner{
		bookings: bookings,
		sent:     sent,
		users:    users,
		pusher:   pusher,
		logger:   utils.GetLogger(),
	}
}

// Scan fires the reminders due around now and purges stale delivery
// records. Individual failures are logged and skipped so one bad row
// cannot block the rest of the sweep.
func (s *ReminderScanner) Scan() {
	now := utils.NowMadrid()
	today := utils.DateOf(now)

	bookings, err := s.bookings.GetActiveBetween(today, today.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("Failed to load bookings for reminder scan", zap.Error(err))
		return
	}

	users := make(map[string]*models.User)
	for _, booking := range bookings {
		user, ok := users[booking.UserID]
		if !ok {
			user, err = s.users.GetByID(booking.UserID)
			if err != nil || user == nil {
				s.logger.Warn("Skipping reminders for unknown user",
					zap.String("userID", booking.UserID), zap.Error(err))
				continue
			}
			users[booking.UserID] = user
		}
		if !user.PushEnabled {
			continue
		}

		hour, minute, second, err := utils.ParseClock(booking.ClassTime)
		if err != nil {
			s.logger.Warn("Skipping booking with unreadable class time",
				zap.String("bookingID", booking.ID), zap.String("classTime", booking.ClassTime))
			continue
		}
		classAt := utils.CombineMadrid(booking.ClassDate, hour, minute, second)

		for _, offset := range reminderOffsets {
			if !offset.enabled(user) {
				continue
			}
			fireAt := classAt.Add(-time.Duration(offset.minutes) * time.Minute)
			drift := now.Sub(fireAt)
			if drift < -reminderWindow || drift > reminderWindow {
				continue
			}
			s.fire(user, booking, offset, classAt)
		}
	}

	if removed, err := s.sent.DeleteOlderThan(time.Now().Add(-sentRetention)); err != nil {
		s.logger.Warn("Failed to purge delivered-reminder records", zap.Error(err))
	} else if removed > 0 {
		s.logger.Debug("Purged delivered-reminder records", zap.Int64("removed", removed))
	}
}

func (s *ReminderScanner) fire(user *models.User, booking models.PortalBooking, offset reminderOffset, classAt time.Time) {
	already, err := s.sent.Exists(booking.ID, offset.minutes)
	if err != nil {
		s.logger.Warn("Failed to check reminder dedup",
			zap.String("bookingID", booking.ID), zap.Error(err))
		return
	}
	if already {
		return
	}

	title := fmt.Sprintf("Recordatorio de clase - %s", offset.label)
	body := fmt.Sprintf("Tienes clase hoy a las %s", classAt.Format("15:04"))
	if booking.ClassName != "" {
		body = fmt.Sprintf("Tienes clase de %s hoy a las %s", booking.ClassName, classAt.Format("15:04"))
	}
	extras := map[string]string{"portalBookingId": booking.ID}

	if err := s.pusher.SendPush(context.Background(), user.ID, title, body, extras); err != nil {
		s.logger.Warn("Failed to push class reminder",
			zap.String("bookingID", booking.ID), zap.Error(err))
		return
	}

	record := &models.NotificationSent{
		ID:              uuid.NewString(),
		PortalBookingID: booking.ID,
		ReminderMinutes: offset.minutes,
		SentAt:          time.Now(),
	}
	if err := s.sent.Create(record); err != nil {
		s.logger.Warn("Failed to record delivered reminder",
			zap.String("bookingID", booking.ID), zap.Error(err))
	}
}
