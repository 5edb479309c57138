package notification

import (
	"context"

	"go.uber.org/zap"

	pushSubRepo "wodbooker/database/repository/pushsub"
	userRepo "wodbooker/database/repository/user"
	"wodbooker/models"
	"wodbooker/utils"
)

// Service delivers booking outcomes over email and Web Push, honoring
// the user's notification preferences.
type Service interface {
	// NotifySuccess announces a plain successful booking.
	NotifySuccess(user *models.User, reservation *models.Reservation, subject, body string)
	// NotifyRecovered announces a booking completed after failures the
	// user was already told about. Only users who opted into failure
	// notifications receive it.
	NotifyRecovered(user *models.User, reservation *models.Reservation, subject, body string)
	// NotifyFailure announces a booking problem.
	NotifyFailure(user *models.User, reservation *models.Reservation, subject, body string)
	// SendPush delivers a push to every subscription of a user,
	// regardless of outcome preferences. Used for reminders and tests.
	SendPush(ctx context.Context, userID, title, body string, extras map[string]string) error
}

// DefaultService is the production implementation.
type DefaultService struct {
	users  userRepo.UserRepository
	subs   pushSubRepo.PushSubscriptionRepository
	mailer *Mailer
	logger *zap.Logger
}

// NewDefaultService wires the notification service.
func NewDefaultService(users userRepo.UserRepository, subs pushSubRepo.PushSubscriptionRepository, mailer *Mailer) *DefaultService {
	return &DefaultService{
		users:  users,
		subs:   subs,
		mailer: mailer,
		logger: utils.GetLogger(),
	}
}

func (s *DefaultService) NotifySuccess(user *models.User, reservation *models.Reservation, subject, body string) {
	if user.MailPermissionSuccess {
		s.mailer.Enqueue(user.Email, subject, body)
	}
	if user.PushEnabled && user.PushSuccess {
		s.pushOutcome(user, subject, body, reservation)
	}
}

func (s *DefaultService) NotifyRecovered(user *models.User, reservation *models.Reservation, subject, body string) {
	// Recovery closes a failure loop: only users who heard about the
	// failure should hear about the recovery.
	if user.MailPermissionFailure {
		s.mailer.Enqueue(user.Email, subject, body)
	}
	if user.PushEnabled && user.PushFailure {
		s.pushOutcome(user, subject, body, reservation)
	}
}

func (s *DefaultService) NotifyFailure(user *models.User, reservation *models.Reservation, subject, body string) {
	if user.MailPermissionFailure {
		s.mailer.Enqueue(user.Email, subject, body)
	}
	if user.PushEnabled && user.PushFailure {
		s.pushOutcome(user, subject, body, reservation)
	}
}

func (s *DefaultService) pushOutcome(user *models.User, title, body string, reservation *models.Reservation) {
	extras := map[string]string{"reservationId": reservation.ID}
	if err := s.SendPush(context.Background(), user.ID, title, body, extras); err != nil {
		s.logger.Warn("Failed to deliver push notification",
			zap.String("userID", user.ID), zap.Error(err))
	}
}
