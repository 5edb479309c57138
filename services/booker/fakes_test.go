package booker

import (
	"context"
	"sync"
	"time"

	"wodbooker/models"
)

// memUserRepo is an in-memory UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memUserRepo) GetByID(id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetAll() ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Update(user *models.User) error {
	return r.Create(user)
}

func (r *memUserRepo) UpdateCookie(id string, cookie []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Cookie = cookie
	}
	return nil
}

func (r *memUserRepo) SetForceLogin(id string, forceLogin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.ForceLogin = forceLogin
	}
	return nil
}

func (r *memUserRepo) forceLogin(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u.ForceLogin
	}
	return false
}

// memReservationRepo is an in-memory ReservationRepository.
type memReservationRepo struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
}

func newMemReservationRepo(reservations ...*models.Reservation) *memReservationRepo {
	repo := &memReservationRepo{reservations: make(map[string]*models.Reservation)}
	for _, res := range reservations {
		repo.reservations[res.ID] = res
	}
	return repo
}

func (r *memReservationRepo) GetByID(id string) (*models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.reservations[id]; ok {
		copied := *res
		return &copied, nil
	}
	return nil, nil
}

func (r *memReservationRepo) GetAll() ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, res := range r.reservations {
		out = append(out, *res)
	}
	return out, nil
}

func (r *memReservationRepo) GetActive() ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, res := range r.reservations {
		if res.IsActive {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *memReservationRepo) GetByUser(userID string) ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, res := range r.reservations {
		if res.UserID == userID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *memReservationRepo) Create(res *models.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[res.ID] = res
	return nil
}

func (r *memReservationRepo) Update(res *models.Reservation) error {
	return r.Create(res)
}

func (r *memReservationRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reservations, id)
	return nil
}

func (r *memReservationRepo) MarkBooked(id string, lastBookDate, bookedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.reservations[id]; ok {
		res.LastBookDate = &lastBookDate
		res.BookedAt = &bookedAt
	}
	return nil
}

func (r *memReservationRepo) SetActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.reservations[id]; ok {
		res.IsActive = active
	}
	return nil
}

func (r *memReservationRepo) lastBookDate(id string) *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.reservations[id]; ok {
		return res.LastBookDate
	}
	return nil
}

// memEventRepo is an in-memory EventRepository.
type memEventRepo struct {
	mu     sync.Mutex
	events []models.Event
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{}
}

func (r *memEventRepo) Insert(event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *memEventRepo) GetLast(reservationID string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].ReservationID == reservationID {
			copied := r.events[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memEventRepo) GetByReservation(reservationID string, limit int) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].ReservationID == reservationID {
			out = append(out, r.events[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memEventRepo) DeleteByReservation(reservationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []models.Event
	for _, event := range r.events {
		if event.ReservationID != reservationID {
			kept = append(kept, event)
		}
	}
	r.events = kept
	return nil
}

func (r *memEventRepo) DeleteOlderThan(reservationID string, cutoff time.Time, keepID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []models.Event
	var removed int64
	for _, event := range r.events {
		if event.ReservationID == reservationID && event.ID != keepID && event.Date.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	r.events = kept
	return removed, nil
}

func (r *memEventRepo) messages(reservationID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, event := range r.events {
		if event.ReservationID == reservationID {
			out = append(out, event.Message)
		}
	}
	return out
}

// fakeScraper returns scripted Book results in order and repeats the
// last one when the script runs out. onBook, when set, runs after each
// claim with the 1-based call number.
type fakeScraper struct {
	mu          sync.Mutex
	script      []error
	bookCalls   []time.Time
	eventResult bool
	eventErr    error
	eventCalls  int
	onBook      func(call int)
}

func (s *fakeScraper) Book(_ context.Context, _ string, bookingDatetime time.Time, _ int) error {
	s.mu.Lock()
	s.bookCalls = append(s.bookCalls, bookingDatetime)
	call := len(s.bookCalls)
	var next error
	if len(s.script) > 0 {
		next = s.script[0]
		if len(s.script) > 1 {
			s.script = s.script[1:]
		}
	}
	hook := s.onBook
	s.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	return next
}

func (s *fakeScraper) WaitForEvent(ctx context.Context, _ string, _ time.Time, _ []string, _ time.Time) (bool, error) {
	s.mu.Lock()
	s.eventCalls++
	result, err := s.eventResult, s.eventErr
	s.mu.Unlock()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return result, err
}

func (s *fakeScraper) Cookies() []byte {
	return []byte(`[{"Name":".WBAuth"}]`)
}

func (s *fakeScraper) calls() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.bookCalls))
	copy(out, s.bookCalls)
	return out
}

type fakeScraperSource struct {
	scraper *fakeScraper
}

func (s fakeScraperSource) Get(string, []byte) Scraper { return s.scraper }

// notifierCall records one dispatched notification.
type notifierCall struct {
	kind    string
	subject string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *fakeNotifier) NotifySuccess(_ *models.User, _ *models.Reservation, subject, _ string) {
	n.record("success", subject)
}

func (n *fakeNotifier) NotifyRecovered(_ *models.User, _ *models.Reservation, subject, _ string) {
	n.record("recovered", subject)
}

func (n *fakeNotifier) NotifyFailure(_ *models.User, _ *models.Reservation, subject, _ string) {
	n.record("failure", subject)
}

func (n *fakeNotifier) record(kind, subject string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{kind: kind, subject: subject})
}

func (n *fakeNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, call := range n.calls {
		out = append(out, call.kind)
	}
	return out
}

func fakeDeps(user *models.User, res *models.Reservation, scraper *fakeScraper, notifier *fakeNotifier) (Deps, *memReservationRepo, *memUserRepo, *memEventRepo) {
	users := newMemUserRepo(user)
	reservations := newMemReservationRepo(res)
	events := newMemEventRepo()
	deps := Deps{
		Users:        users,
		Reservations: reservations,
		Events:       NewEventLog(events),
		Scrapers:     fakeScraperSource{scraper: scraper},
		Gate:         NewGate(time.Millisecond),
		Notifier:     notifier,
		Priority:     map[string]bool{user.Email: true},
	}
	return deps, reservations, users, events
}
