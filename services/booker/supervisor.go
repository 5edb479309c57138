package booker

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"wodbooker/models"
	"wodbooker/utils"
)

// Supervisor owns the booking workers, one per active reservation.
type Supervisor struct {
	mu      sync.Mutex
	workers map[string]*Worker

	deps Deps
	// whitelist, when non-empty, restricts which user emails may run
	// workers.
	whitelist map[string]bool
	logger    *zap.Logger
}

// NewSupervisor builds a supervisor. An empty whitelist allows every
// user.
func NewSupervisor(deps Deps, whitelist map[string]bool) *Supervisor {
	return &Supervisor{
		workers:   make(map[string]*Worker),
		deps:      deps,
		whitelist: whitelist,
		logger:    utils.GetLogger(),
	}
}

// StartAll spawns a worker for every active reservation. Called once at
// startup to resume bookings interrupted by a restart.
func (s *Supervisor) StartAll() error {
	reservations, err := s.deps.Reservations.GetActive()
	if err != nil {
		return err
	}
	for i := range reservations {
		s.Start(&reservations[i])
	}
	s.logger.Info("Booking workers resumed", zap.Int("count", len(reservations)))
	return nil
}

// Start spawns (or restarts) the worker of a reservation. Users outside
// the whitelist get a timeline entry instead of a worker.
func (s *Supervisor) Start(reservation *models.Reservation) {
	if !s.allowed(reservation.UserID) {
		s.deps.Events.Append(reservation.ID, MsgNotWhitelisted)
		s.logger.Warn("Worker not started, user outside whitelist",
			zap.String("reservationID", reservation.ID))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if worker, ok := s.workers[reservation.ID]; ok {
		worker.stop()
	}
	worker := newWorker(reservation.ID, s.deps)
	s.workers[reservation.ID] = worker
	worker.start()
	s.logger.Info("Booking worker started", zap.String("reservationID", reservation.ID))
}

// Stop halts the worker of a reservation. When logPause is set, the
// timeline records the pause.
func (s *Supervisor) Stop(reservationID string, logPause bool) {
	s.mu.Lock()
	worker, ok := s.workers[reservationID]
	if ok {
		delete(s.workers, reservationID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	worker.stop()
	if logPause {
		s.deps.Events.Append(reservationID, MsgPaused)
	}
	s.logger.Info("Booking worker stopped", zap.String("reservationID", reservationID))
}

// StopAll halts every worker, used during shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	workers := make([]*Worker, 0, len(s.workers))
	for id, worker := range s.workers {
		workers = append(workers, worker)
		delete(s.workers, id)
	}
	s.mu.Unlock()

	for _, worker := range workers {
		worker.stop()
	}
}

// IsRunning reports whether a worker exists for the reservation.
func (s *Supervisor) IsRunning(reservationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workers[reservationID]
	return ok
}

func (s *Supervisor) allowed(userID string) bool {
	if len(s.whitelist) == 0 {
		return true
	}
	user, err := s.deps.Users.GetByID(userID)
	if err != nil || user == nil {
		return false
	}
	return s.whitelist[strings.ToLower(user.Email)]
}
