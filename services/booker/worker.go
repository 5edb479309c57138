package booker

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	reservationRepo "wodbooker/database/repository/reservation"
	userRepo "wodbooker/database/repository/user"
	"wodbooker/models"
	"wodbooker/services/portal"
	"wodbooker/utils"
)

// MaxErrors bounds how many retryable failures a worker absorbs before
// giving up on the reservation.
const MaxErrors = 500

// maxBookingAttempts bounds how often a missing class is retried before
// the week is skipped.
const maxBookingAttempts = 20

// Scraper is the slice of the portal client a booking worker drives.
type Scraper interface {
	Book(ctx context.Context, boxURL string, bookingDatetime time.Time, typeClass int) error
	WaitForEvent(ctx context.Context, boxURL string, date time.Time, events []string, maxDatetime time.Time) (bool, error)
	Cookies() []byte
}

// ScraperSource hands out per-user scrapers.
type ScraperSource interface {
	Get(email string, cookie []byte) Scraper
}

// RegistrySource adapts the portal scraper registry to ScraperSource.
type RegistrySource struct {
	Registry *portal.Registry
}

func (r RegistrySource) Get(email string, cookie []byte) Scraper {
	return r.Registry.Get(email, cookie)
}

// Notifier delivers booking outcomes to the user. Implementations apply
// the user's notification preferences.
type Notifier interface {
	// NotifySuccess announces a plain successful booking.
	NotifySuccess(user *models.User, reservation *models.Reservation, subject, body string)
	// NotifyRecovered announces a booking completed after failures the
	// user was already told about.
	NotifyRecovered(user *models.User, reservation *models.Reservation, subject, body string)
	// NotifyFailure announces a booking problem.
	NotifyFailure(user *models.User, reservation *models.Reservation, subject, body string)
}

// Deps bundles everything a booking worker needs.
type Deps struct {
	Users        userRepo.UserRepository
	Reservations reservationRepo.ReservationRepository
	Events       *EventLog
	Scrapers     ScraperSource
	Gate         *Gate
	Notifier     Notifier
	// Priority emails skip the pre-claim courtesy delay.
	Priority map[string]bool
}

// Worker books one reservation week after week until stopped.
type Worker struct {
	reservationID string
	deps          Deps
	logger        *zap.Logger
	cancel        context.CancelFunc
	done          chan struct{}
}

func newWorker(reservationID string, deps Deps) *Worker {
	return &Worker{
		reservationID: reservationID,
		deps:          deps,
		logger:        utils.GetLogger().With(zap.String("reservationID", reservationID)),
		done:          make(chan struct{}),
	}
}

func (w *Worker) start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)
}

func (w *Worker) stop() {
	w.cancel()
	<-w.done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Booking worker panicked", zap.Any("panic", r))
		}
	}()

	var (
		waiter            Waiter = NullWaiter{}
		datetimeToBook    time.Time
		errors            int
		bookingAttempts   int
		skipCurrentWeek   bool
		classFullNotified bool
		lastUser          *models.User
		lastReservation   *models.Reservation
	)

	for errors < MaxErrors && ctx.Err() == nil {
		res, err := w.deps.Reservations.GetByID(w.reservationID)
		if err != nil || res == nil {
			w.logger.Error("Failed to load reservation", zap.Error(err))
			if !sleepCtx(ctx, time.Minute) {
				return
			}
			continue
		}
		if !res.IsActive {
			w.logger.Info("Reservation no longer active, stopping")
			return
		}

		user, err := w.deps.Users.GetByID(res.UserID)
		if err != nil || user == nil {
			w.logger.Error("Failed to load user", zap.Error(err))
			if !sleepCtx(ctx, time.Minute) {
				return
			}
			continue
		}
		lastUser, lastReservation = user, res

		hour, minute, _, err := utils.ParseClock(res.Time)
		if err != nil {
			w.deps.Events.Append(res.ID, MsgInvalidClassTime)
			w.logger.Error("Unreadable class time", zap.String("time", res.Time))
			return
		}
		availHour, availMinute, _, err := utils.ParseClock(res.AvailableAt)
		if err != nil {
			w.deps.Events.Append(res.ID, MsgInvalidClassTime)
			w.logger.Error("Unreadable window time", zap.String("availableAt", res.AvailableAt))
			return
		}

		now := utils.NowMadrid()
		target := DatetimeToBook(now, res.LastBookDate, res.Dow, hour, minute)

		if !datetimeToBook.IsZero() && !target.Equal(datetimeToBook) {
			if _, isNull := waiter.(NullWaiter); !isNull {
				// The awaited class came and went unbooked. Move on and
				// desynchronize workers racing for the next week.
				if !sleepCtx(ctx, jitter()) {
					return
				}
				w.deps.Events.Append(res.ID, fmt.Sprintf(MsgClassWaitingOver,
					datetimeToBook.Format(dateFormat), target.Format(dateFormat)))
				waiter = NullWaiter{}
			}
			// Per-target state does not survive a target change.
			skipCurrentWeek = false
			classFullNotified = false
			bookingAttempts = 0
		} else if skipCurrentWeek && target.Equal(datetimeToBook) {
			target = target.AddDate(0, 0, 7)
			skipCurrentWeek = false
			bookingAttempts = 0
		}
		datetimeToBook = target
		classDay := utils.DateOf(target)

		if _, isNull := waiter.(NullWaiter); isNull {
			windowOpen := WindowOpen(classDay, res.Offset, availHour, availMinute)
			waiter = &TimeWaiter{
				Until: windowOpen,
				Msg: fmt.Sprintf(MsgWaitUntilBookingOpen,
					windowOpen.Format(dateTimeFormat), classDay.Format(dateFormat)),
			}
		}

		if waiter.Pending(utils.NowMadrid()) && waiter.Message() != "" {
			w.deps.Events.Append(res.ID, waiter.Message())
		}
		result, waitErr := waiter.Wait(ctx)
		waiter = NullWaiter{}
		if result == WaitCancelled || ctx.Err() != nil {
			return
		}

		var bookErr error
		scraper := w.deps.Scrapers.Get(user.Email, user.Cookie)
		if waitErr != nil {
			bookErr = waitErr
		} else {
			if !w.deps.Priority[user.Email] {
				if !sleepCtx(ctx, time.Second) {
					return
				}
			}
			if !sleepCtx(ctx, jitter()) {
				return
			}
			bookErr = w.claim(ctx, scraper, res, datetimeToBook)
			if ctx.Err() != nil {
				return
			}
		}

		if bookErr == nil {
			bookedAt := time.Now()
			if err := w.deps.Reservations.MarkBooked(res.ID, classDay, bookedAt); err != nil {
				w.logger.Error("Failed to record booking", zap.Error(err))
			}
			if err := w.deps.Users.UpdateCookie(user.ID, scraper.Cookies()); err != nil {
				w.logger.Warn("Failed to store refreshed cookie", zap.Error(err))
			}
			w.deps.Events.Append(res.ID, fmt.Sprintf(MsgBookingCompleted, classDay.Format(dateFormat)))

			switch {
			case classFullNotified:
				w.deps.Notifier.NotifyRecovered(user, res, utils.FullClassBookedMailSubject, utils.FullClassBookedMailBody)
			case errors > 0:
				w.deps.Notifier.NotifyRecovered(user, res, utils.ErrorAutohealedMailSubject, utils.ErrorAutohealedMailBody)
			default:
				w.deps.Notifier.NotifySuccess(user, res, utils.ClassBookedMailSubject, utils.ClassBookedMailBody)
			}
			errors = 0
			bookingAttempts = 0
			classFullNotified = false
			continue
		}

		switch portal.KindOf(bookErr) {
		case portal.KindClassNotFound:
			bookingAttempts++
			if bookingAttempts >= maxBookingAttempts {
				skipCurrentWeek = true
				bookingAttempts = 0
				w.deps.Events.Append(res.ID, fmt.Sprintf(MsgClassNotFound,
					classDay.Format(dateFormat), res.Time))
			} else if !sleepCtx(ctx, time.Second) {
				return
			}

		case portal.KindClassFull:
			waiter = &EventWaiter{
				Source:      scraper,
				BoxURL:      res.URL,
				Date:        classDay,
				Events:      []string{EventChangedBooking},
				MaxDatetime: datetimeToBook,
				Msg:         fmt.Sprintf(MsgClassFull, classDay.Format(dateFormat)),
			}
			if !classFullNotified {
				w.deps.Notifier.NotifyFailure(user, res, "Clase llena",
					fmt.Sprintf(MsgClassFull, classDay.Format(dateFormat)))
				classFullNotified = true
			}

		case portal.KindWindowNotOpen:
			if availableAt := portal.AvailableAt(bookErr); !availableAt.IsZero() {
				waiter = &TimeWaiter{
					Until: availableAt,
					Msg: fmt.Sprintf(MsgWaitUntilBookingOpen,
						availableAt.Format(dateTimeFormat), classDay.Format(dateFormat)),
				}
			} else {
				waiter = &EventWaiter{
					Source:      scraper,
					BoxURL:      res.URL,
					Date:        classDay,
					Events:      []string{EventChangedPizarra, EventChangedBooking},
					MaxDatetime: datetimeToBook,
					Msg:         fmt.Sprintf(MsgWaitClassLoaded, classDay.Format(dateFormat)),
				}
			}

		case portal.KindBookingPenalty:
			// Let the portal settle before listening for the countdown end.
			if !sleepCtx(ctx, 10*time.Second+jitter()) {
				return
			}
			waiter = &EventWaiter{
				Source:      scraper,
				BoxURL:      res.URL,
				Date:        classDay,
				Events:      []string{EventChangedBooking},
				MaxDatetime: datetimeToBook,
				Msg:         fmt.Sprintf(MsgBookingPenalization, portal.MessageOf(bookErr)),
			}

		case portal.KindBookingFailed:
			message := fmt.Sprintf(MsgBookingError, classDay.Format(dateFormat), portal.MessageOf(bookErr))
			w.deps.Events.Append(res.ID, message)
			w.deps.Notifier.NotifyFailure(user, res, utils.UnexpectedErrorMailSubject, message)
			skipCurrentWeek = true

		case portal.KindPasswordRequired:
			w.forceLogin(user)
			w.deps.Events.Append(res.ID, MsgCredentialsExpired)
			w.deps.Notifier.NotifyFailure(user, res, "Credenciales caducadas", MsgCredentialsExpired)
			return

		case portal.KindLoginFailed:
			w.forceLogin(user)
			w.deps.Events.Append(res.ID, MsgLoginFailed)
			w.deps.Notifier.NotifyFailure(user, res, "Login fallido", MsgLoginFailed)
			return

		case portal.KindInvalidBox:
			w.deps.Events.Append(res.ID, MsgInvalidBoxURL)
			w.deps.Notifier.NotifyFailure(user, res, "URL del box inválida", MsgInvalidBoxURL)
			return

		default:
			backoff := errorBackoff(errors)
			message := MsgUnexpectedNetworkError
			if portal.KindOf(bookErr) == portal.KindUnparseableResponse {
				message = MsgUnexpectedPortalResponse
			}
			w.logger.Warn("Retryable booking failure", zap.Error(bookErr), zap.Duration("backoff", backoff))
			waiter = &TimeWaiter{
				Until: time.Now().Add(backoff),
				Msg:   fmt.Sprintf(message, int(backoff.Seconds())),
			}
			if errors == 0 {
				w.deps.Notifier.NotifyFailure(user, res, utils.UnexpectedErrorMailSubject, utils.UnexpectedErrorMailBody)
			}
			errors++
		}
	}

	if errors >= MaxErrors {
		w.deps.Events.Append(w.reservationID, MsgTooManyErrors)
		if lastUser != nil && lastReservation != nil {
			w.deps.Notifier.NotifyFailure(lastUser, lastReservation, utils.UnexpectedErrorMailSubject, MsgTooManyErrors)
		}
	}
}

// claim issues the seat claim behind the process-wide gate, retrying
// while the portal momentarily refuses claims.
func (w *Worker) claim(ctx context.Context, scraper Scraper, res *models.Reservation, bookingDatetime time.Time) error {
	for {
		if err := w.deps.Gate.Wait(ctx); err != nil {
			return err
		}
		err := scraper.Book(ctx, res.URL, bookingDatetime, res.TypeClass)
		if err == nil || portal.KindOf(err) != portal.KindBookingLocked {
			return err
		}
		if !sleepCtx(ctx, 200*time.Millisecond) {
			return err
		}
	}
}

func (w *Worker) forceLogin(user *models.User) {
	if err := w.deps.Users.SetForceLogin(user.ID, true); err != nil {
		w.logger.Error("Failed to flag user for re-login", zap.Error(err))
	}
}

// errorBackoff returns the wait before the next attempt after the given
// number of retryable failures. It keeps growing with every failure so
// a struggling worker backs further and further off the portal.
func errorBackoff(errors int) time.Duration {
	return time.Duration(errors+1) * time.Minute
}

// jitter returns up to a second of random delay so workers targeting
// the same window opening do not fire in lockstep.
func jitter() time.Duration {
	return time.Duration(rand.Intn(1000)) * time.Millisecond
}

// sleepCtx sleeps unless the context ends first, reporting whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
