package retention

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wodbooker/models"
)

type memReservations struct {
	reservations []models.Reservation
}

func (r *memReservations) GetByID(string) (*models.Reservation, error)   { return nil, nil }
func (r *memReservations) GetAll() ([]models.Reservation, error)         { return r.reservations, nil }
func (r *memReservations) GetActive() ([]models.Reservation, error)      { return nil, nil }
func (r *memReservations) GetByUser(string) ([]models.Reservation, error) { return nil, nil }
func (r *memReservations) Create(*models.Reservation) error              { return nil }
func (r *memReservations) Update(*models.Reservation) error              { return nil }
func (r *memReservations) Delete(string) error                           { return nil }
func (r *memReservations) MarkBooked(string, time.Time, time.Time) error { return nil }
func (r *memReservations) SetActive(string, bool) error                  { return nil }

type memEvents struct {
	events  map[string][]models.Event
	failFor map[string]bool
}

func newMemEvents() *memEvents {
	return &memEvents{events: make(map[string][]models.Event), failFor: make(map[string]bool)}
}

func (r *memEvents) Insert(event *models.Event) error {
	copied := *event
	r.events[event.ReservationID] = append(r.events[event.ReservationID], copied)
	return nil
}

func (r *memEvents) GetLast(reservationID string) (*models.Event, error) {
	if r.failFor[reservationID] {
		return nil, errors.New("store unavailable")
	}
	timeline := r.events[reservationID]
	if len(timeline) == 0 {
		return nil, nil
	}
	newest := timeline[0]
	for _, event := range timeline[1:] {
		if event.Date.After(newest.Date) {
			newest = event
		}
	}
	return &newest, nil
}

func (r *memEvents) GetByReservation(reservationID string, limit int) ([]models.Event, error) {
	return r.events[reservationID], nil
}

func (r *memEvents) DeleteByReservation(reservationID string) error {
	delete(r.events, reservationID)
	return nil
}

func (r *memEvents) DeleteOlderThan(reservationID string, cutoff time.Time, keepID string) (int64, error) {
	var kept []models.Event
	var removed int64
	for _, event := range r.events[reservationID] {
		if event.ID != keepID && event.Date.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	r.events[reservationID] = kept
	return removed, nil
}

func eventAt(id, reservationID string, age time.Duration) models.Event {
	return models.Event{
		ID:            id,
		ReservationID: reservationID,
		Message:       "Reserva completada",
		Date:          time.Now().Add(-age),
	}
}

func TestSweepRemovesOldEvents(t *testing.T) {
	reservations := &memReservations{reservations: []models.Reservation{{ID: "res-1"}}}
	events := newMemEvents()
	require.NoError(t, events.Insert(&models.Event{ID: "old", ReservationID: "res-1",
		Date: time.Now().Add(-20 * 24 * time.Hour)}))
	require.NoError(t, events.Insert(&models.Event{ID: "fresh", ReservationID: "res-1",
		Date: time.Now().Add(-time.Hour)}))

	NewSweeper(reservations, events).Sweep()

	timeline := events.events["res-1"]
	require.Len(t, timeline, 1)
	assert.Equal(t, "fresh", timeline[0].ID)
}

func TestSweepKeepsNewestEventEvenWhenOld(t *testing.T) {
	reservations := &memReservations{reservations: []models.Reservation{{ID: "res-1"}}}
	events := newMemEvents()
	stale := eventAt("older", "res-1", 40*24*time.Hour)
	newest := eventAt("newest", "res-1", 30*24*time.Hour)
	require.NoError(t, events.Insert(&stale))
	require.NoError(t, events.Insert(&newest))

	NewSweeper(reservations, events).Sweep()

	// Both events are past retention but the newest one survives, so the
	// timeline never goes blank.
	timeline := events.events["res-1"]
	require.Len(t, timeline, 1)
	assert.Equal(t, "newest", timeline[0].ID)
}

func TestSweepContinuesAfterReservationFailure(t *testing.T) {
	reservations := &memReservations{reservations: []models.Reservation{{ID: "res-broken"}, {ID: "res-1"}}}
	events := newMemEvents()
	events.failFor["res-broken"] = true
	old := eventAt("old", "res-1", 20*24*time.Hour)
	fresh := eventAt("fresh", "res-1", time.Hour)
	require.NoError(t, events.Insert(&old))
	require.NoError(t, events.Insert(&fresh))

	NewSweeper(reservations, events).Sweep()

	timeline := events.events["res-1"]
	require.Len(t, timeline, 1)
	assert.Equal(t, "fresh", timeline[0].ID)
}

func TestSweepEmptyTimelineIsNoop(t *testing.T) {
	reservations := &memReservations{reservations: []models.Reservation{{ID: "res-1"}}}
	events := newMemEvents()

	NewSweeper(reservations, events).Sweep()
	assert.Empty(t, events.events["res-1"])
}
