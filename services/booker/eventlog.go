package booker

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	eventRepo "wodbooker/database/repository/event"
	"wodbooker/models"
	"wodbooker/utils"
)

// maxEventMessageLen bounds timeline messages so portal-provided error
// text cannot blow up the stored rows.
const maxEventMessageLen = 256

// EventLog appends entries to reservation timelines, collapsing
// immediate repeats of the same message.
type EventLog struct {
	repo   eventRepo.EventRepository
	logger *zap.Logger
}

// NewEventLog wraps an event repository as a timeline writer.
func NewEventLog(repo eventRepo.EventRepository) *EventLog {
	return &EventLog{repo: repo, logger: utils.GetLogger()}
}

// Append records a timeline entry unless it repeats the newest one.
// Storage failures are logged and swallowed: a lost timeline row must
// never stop a booking worker.
func (l *EventLog) Append(reservationID, message string) {
	if len(message) > maxEventMessageLen {
		message = message[:maxEventMessageLen]
	}

	last, err := l.repo.GetLast(reservationID)
	if err != nil {
		l.logger.Warn("Failed to read last timeline event",
			zap.String("reservationID", reservationID), zap.Error(err))
	}
	if last != nil && last.Message == message {
		return
	}

	event := &models.Event{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		Date:          time.Now(),
		Message:       message,
	}
	if err := l.repo.Insert(event); err != nil {
		l.logger.Warn("Failed to record timeline event",
			zap.String("reservationID", reservationID), zap.Error(err))
	}
}
