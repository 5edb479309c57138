package booker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wodbooker/models"
	"wodbooker/services/portal"
	"wodbooker/utils"
)

// testReservation builds a reservation whose class is tomorrow and whose
// booking window is already open, so a worker books immediately.
func testReservation() *models.Reservation {
	tomorrow := utils.NowMadrid().AddDate(0, 0, 1)
	return &models.Reservation{
		ID:          "res-1",
		UserID:      "user-1",
		Dow:         utils.Weekday(tomorrow),
		Time:        "23:59",
		URL:         "https://testbox.wodbuster.com",
		Offset:      1,
		AvailableAt: "00:00",
		IsActive:    true,
	}
}

func testUser() *models.User {
	return &models.User{
		ID:    "user-1",
		Email: "athlete@example.com",
	}
}

func TestWorkerBooksOpenWindow(t *testing.T) {
	user := testUser()
	res := testReservation()
	scraper := &fakeScraper{}
	notifier := &fakeNotifier{}
	deps, reservations, users, events := fakeDeps(user, res, scraper, notifier)

	worker := newWorker(res.ID, deps)
	worker.start()
	defer worker.stop()

	require.Eventually(t, func() bool {
		return reservations.lastBookDate(res.ID) != nil
	}, 10*time.Second, 50*time.Millisecond)

	booked := reservations.lastBookDate(res.ID)
	tomorrow := utils.DateOf(utils.NowMadrid().AddDate(0, 0, 1))
	assert.Equal(t, tomorrow, utils.DateOf(*booked))

	require.Eventually(t, func() bool {
		return len(notifier.kinds()) > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"success"}, notifier.kinds())

	messages := events.messages(res.ID)
	require.NotEmpty(t, messages)
	assert.Contains(t, messages, "Reserva para el "+tomorrow.Format("02/01/2006")+" completada correctamente")

	// The refreshed cookie is stored after a successful claim.
	stored, err := users.GetByID(user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Cookie)
}

func TestWorkerRecoversFromFullClass(t *testing.T) {
	user := testUser()
	res := testReservation()
	scraper := &fakeScraper{
		script:      []error{portal.NewError(portal.KindClassFull, "class is full"), nil},
		eventResult: true,
	}
	notifier := &fakeNotifier{}
	deps, reservations, _, events := fakeDeps(user, res, scraper, notifier)

	worker := newWorker(res.ID, deps)
	worker.start()
	defer worker.stop()

	require.Eventually(t, func() bool {
		return reservations.lastBookDate(res.ID) != nil
	}, 10*time.Second, 50*time.Millisecond)

	// A "class full" alert first, then the recovery notification.
	require.Eventually(t, func() bool {
		return len(notifier.kinds()) >= 2
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"failure", "recovered"}, notifier.kinds())

	assert.GreaterOrEqual(t, scraper.eventCalls, 1)
	tomorrow := utils.DateOf(utils.NowMadrid().AddDate(0, 0, 1))
	assert.Contains(t, events.messages(res.ID),
		"La clase del "+tomorrow.Format("02/01/2006")+" está llena. Esperando a que haya plazas disponibles")
}

func TestWorkerSkipsWeekOnBookingError(t *testing.T) {
	user := testUser()
	res := testReservation()
	// Keep the window open for the following week too, so the retry
	// after the skip claims immediately.
	res.Offset = 30
	scraper := &fakeScraper{
		script: []error{portal.NewError(portal.KindBookingFailed, "No puedes reservar"), nil},
	}
	notifier := &fakeNotifier{}
	deps, reservations, _, events := fakeDeps(user, res, scraper, notifier)

	worker := newWorker(res.ID, deps)
	worker.start()
	defer worker.stop()

	require.Eventually(t, func() bool {
		return reservations.lastBookDate(res.ID) != nil
	}, 10*time.Second, 50*time.Millisecond)

	calls := scraper.calls()
	require.GreaterOrEqual(t, len(calls), 2)
	// The failed week is skipped: the second claim targets a week later.
	assert.Equal(t, calls[0].AddDate(0, 0, 7), calls[1])

	found := false
	for _, message := range events.messages(res.ID) {
		if strings.HasSuffix(message, msgIgnoreWeek) {
			found = true
		}
	}
	assert.True(t, found, "expected an ignore-week timeline entry")
}

func TestWorkerDropsSkipWeekWhenTargetChanges(t *testing.T) {
	user := testUser()
	res := testReservation()
	res.Time = "23:58"
	// Keep the window open for the following weeks too, so a wrongly
	// carried-over skip would claim a week late instead of blocking.
	res.Offset = 30
	scraper := &fakeScraper{
		script: []error{
			portal.NewError(portal.KindBookingFailed, "No puedes reservar"),
			portal.NewError(portal.KindClassFull, "class is full"),
			nil,
		},
	}
	notifier := &fakeNotifier{}
	deps, reservations, _, _ := fakeDeps(user, res, scraper, notifier)

	// The failed claim is followed by an edit of the class time, so the
	// worker recomputes a different target before the skip-week flag
	// for the old target is consumed.
	scraper.onBook = func(call int) {
		if call != 1 {
			return
		}
		updated, err := reservations.GetByID(res.ID)
		require.NoError(t, err)
		updated.Time = "23:59"
		require.NoError(t, reservations.Update(updated))
	}

	worker := newWorker(res.ID, deps)
	worker.start()
	defer worker.stop()

	require.Eventually(t, func() bool {
		return len(scraper.calls()) >= 3
	}, 15*time.Second, 50*time.Millisecond)

	calls := scraper.calls()
	tomorrow := utils.DateOf(utils.NowMadrid().AddDate(0, 0, 1))
	assert.Equal(t, tomorrow, utils.DateOf(calls[1]))
	// The stale flag must not push the edited target another week out:
	// after the recoverable full class the retry targets the same week.
	assert.Equal(t, calls[1], calls[2])
}

func TestErrorBackoffKeepsGrowing(t *testing.T) {
	assert.Equal(t, time.Minute, errorBackoff(0))
	assert.Equal(t, 5*time.Minute, errorBackoff(4))
	// No cap: late retries back off the portal for hours.
	assert.Equal(t, 500*time.Minute, errorBackoff(MaxErrors-1))
}

func TestWorkerStopsOnUnreadableClassTime(t *testing.T) {
	user := testUser()
	res := testReservation()
	res.Time = "mediodía"
	scraper := &fakeScraper{}
	notifier := &fakeNotifier{}
	deps, _, _, events := fakeDeps(user, res, scraper, notifier)

	worker := newWorker(res.ID, deps)
	worker.start()

	select {
	case <-worker.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop on an unreadable class time")
	}

	assert.Contains(t, events.messages(res.ID), MsgInvalidClassTime)
	assert.Empty(t, scraper.calls())
}

func TestWorkerStopsOnExpiredCredentials(t *testing.T) {
	user := testUser()
	res := testReservation()
	scraper := &fakeScraper{
		script: []error{portal.NewError(portal.KindPasswordRequired, "cookie expired")},
	}
	notifier := &fakeNotifier{}
	deps, _, users, events := fakeDeps(user, res, scraper, notifier)

	worker := newWorker(res.ID, deps)
	worker.start()

	select {
	case <-worker.done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop on expired credentials")
	}

	assert.True(t, users.forceLogin(user.ID))
	assert.Equal(t, []string{"failure"}, notifier.kinds())
	assert.Contains(t, events.messages(res.ID), MsgCredentialsExpired)
}

func TestWorkerStopsOnInvalidBox(t *testing.T) {
	user := testUser()
	res := testReservation()
	scraper := &fakeScraper{
		script: []error{portal.NewError(portal.KindInvalidBox, "no access")},
	}
	notifier := &fakeNotifier{}
	deps, _, users, events := fakeDeps(user, res, scraper, notifier)

	worker := newWorker(res.ID, deps)
	worker.start()

	select {
	case <-worker.done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop on invalid box")
	}

	// Invalid box is a configuration problem, not a credential one.
	assert.False(t, users.forceLogin(user.ID))
	assert.Contains(t, events.messages(res.ID), MsgInvalidBoxURL)
}

func TestWorkerStopsWhenReservationDeactivated(t *testing.T) {
	user := testUser()
	res := testReservation()
	res.IsActive = false
	scraper := &fakeScraper{}
	notifier := &fakeNotifier{}
	deps, _, _, _ := fakeDeps(user, res, scraper, notifier)

	worker := newWorker(res.ID, deps)
	worker.start()

	select {
	case <-worker.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop for an inactive reservation")
	}
	assert.Empty(t, scraper.calls())
}
