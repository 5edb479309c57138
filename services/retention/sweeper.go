package retention

import (
	"time"

	"go.uber.org/zap"

	eventRepo "wodbooker/database/repository/event"
	reservationRepo "wodbooker/database/repository/reservation"
	"wodbooker/utils"
)

// eventRetention is how long timeline events are kept. The newest event
// of each reservation always survives so the timeline never goes blank.
const eventRetention = 15 * 24 * time.Hour

// Sweeper trims old timeline events. Sweep is meant to run once a day.
type Sweeper struct {
	reservations reservationRepo.ReservationRepository
	events       eventRepo.EventRepository
	logger       *zap.Logger
}

// NewSweeper wires the retention sweeper.
func NewSweeper(reservations reservationRepo.ReservationRepository, events eventRepo.EventRepository) *Sweeper {
	return &Sweeper{
		reservations: reservations,
		events:       events,
		logger:       utils.GetLogger(),
	}
}

// Sweep removes events older than the retention window for every
// reservation. Per-reservation failures are logged and skipped.
func (s *Sweeper) Sweep() {
	reservations, err := s.reservations.GetAll()
	if err != nil {
		s.logger.Error("Failed to list reservations for retention sweep", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-eventRetention)
	var removed int64
	for _, res := range reservations {
		newest, err := s.events.GetLast(res.ID)
		if err != nil {
			s.logger.Warn("Failed to read newest event",
				zap.String("reservationID", res.ID), zap.Error(err))
			continue
		}
		keepID := ""
		if newest != nil {
			keepID = newest.ID
		}
		n, err := s.events.DeleteOlderThan(res.ID, cutoff, keepID)
		if err != nil {
			s.logger.Warn("Failed to trim timeline",
				zap.String("reservationID", res.ID), zap.Error(err))
			continue
		}
		removed += n
	}

	s.logger.Info("Timeline retention sweep finished", zap.Int64("removed", removed))
}
