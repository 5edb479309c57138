package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	portalBookingRepo "wodbooker/database/repository/portalbooking"
	reservationRepo "wodbooker/database/repository/reservation"
	userRepo "wodbooker/database/repository/user"
	"wodbooker/models"
	"wodbooker/services/portal"
	"wodbooker/utils"
)

// PortalClient is the slice of the portal client the synchronizer uses.
type PortalClient interface {
	SyncObservedBookings(ctx context.Context, boxURL, athleteID string, date time.Time) ([]portal.ObservedClass, error)
}

// ScraperSource hands out per-user portal clients.
type ScraperSource interface {
	Get(email string, cookie []byte) PortalClient
}

// RegistrySource adapts the portal scraper registry to ScraperSource.
type RegistrySource struct {
	Registry *portal.Registry
}

func (r RegistrySource) Get(email string, cookie []byte) PortalClient {
	return r.Registry.Get(email, cookie)
}

// Summary reports what one synchronization pass did.
type Summary struct {
	Created   int   `json:"created"`
	Updated   int   `json:"updated"`
	Cancelled int64 `json:"cancelled"`
	Errors    int   `json:"errors"`
}

// Syncer mirrors the bookings users actually hold on the portal into
// the local store, so reminders fire for manually booked classes too.
type Syncer struct {
	users        userRepo.UserRepository
	reservations reservationRepo.ReservationRepository
	bookings     portalBookingRepo.PortalBookingRepository
	scrapers     ScraperSource
	logger       *zap.Logger
}

// New wires a synchronizer.
func New(
	users userRepo.UserRepository,
	reservations reservationRepo.ReservationRepository,
	bookings portalBookingRepo.PortalBookingRepository,
	scrapers ScraperSource,
) *Syncer {
	return &Syncer{
		users:        users,
		reservations: reservations,
		bookings:     bookings,
		scrapers:     scrapers,
		logger:       utils.GetLogger(),
	}
}

// SyncWeek walks the current Madrid week (Monday to Sunday) for every
// user with reservations, upserting the classes they hold and marking
// the rest cancelled. Per-user failures are counted and skipped.
func (s *Syncer) SyncWeek(ctx context.Context) (Summary, error) {
	var summary Summary

	users, err := s.users.GetAll()
	if err != nil {
		return summary, err
	}

	today := utils.DateOf(utils.NowMadrid())
	weekStart := today.AddDate(0, 0, -utils.Weekday(today))

	for i := range users {
		user := &users[i]
		if user.ForceLogin {
			continue
		}
		boxURLs, err := s.userBoxes(user.ID)
		if err != nil {
			s.logger.Warn("Failed to list user boxes", zap.String("userID", user.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if len(boxURLs) == 0 {
			continue
		}

		scraper := s.scrapers.Get(user.Email, user.Cookie)
		for offset := 0; offset < 7; offset++ {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			day := weekStart.AddDate(0, 0, offset)
			s.syncDay(ctx, user, scraper, boxURLs, day, &summary)
		}
	}

	s.logger.Info("Portal synchronization finished",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int64("cancelled", summary.Cancelled),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

func (s *Syncer) syncDay(ctx context.Context, user *models.User, scraper PortalClient, boxURLs []string, day time.Time, summary *Summary) {
	fetchedAt := time.Now()
	var keep []string
	failed := false

	for _, boxURL := range boxURLs {
		observed, err := scraper.SyncObservedBookings(ctx, boxURL, user.AthleteID, day)
		if err != nil {
			s.logger.Warn("Failed to read portal bookings",
				zap.String("userID", user.ID), zap.String("boxURL", boxURL),
				zap.String("day", day.Format("2006-01-02")), zap.Error(err))
			summary.Errors++
			failed = true
			continue
		}

		for _, class := range observed {
			booking := &models.PortalBooking{
				ID:            uuid.NewString(),
				UserID:        user.ID,
				PortalClassID: class.PortalClassID,
				ClassDate:     day,
				ClassTime:     class.Hora,
				ClassName:     class.ClassName,
				TypeClass:     class.TypeClass,
				BoxURL:        boxURL,
				FetchedAt:     fetchedAt,
			}
			result, err := s.bookings.Upsert(booking)
			if err != nil {
				s.logger.Warn("Failed to store observed booking",
					zap.String("userID", user.ID), zap.Error(err))
				summary.Errors++
				continue
			}
			keep = append(keep, class.PortalClassID)
			switch result {
			case portalBookingRepo.UpsertCreated:
				summary.Created++
			case portalBookingRepo.UpsertUpdated:
				summary.Updated++
			}
		}
	}

	// Cancelling on a partial read would mark still-held classes as
	// gone, so skip the day when any box failed.
	if failed {
		return
	}
	cancelled, err := s.bookings.CancelMissing(user.ID, day, keep, fetchedAt)
	if err != nil {
		s.logger.Warn("Failed to cancel missing bookings",
			zap.String("userID", user.ID), zap.Error(err))
		summary.Errors++
		return
	}
	summary.Cancelled += cancelled
}

// userBoxes lists the distinct box URLs of a user's reservations.
func (s *Syncer) userBoxes(userID string) ([]string, error) {
	reservations, err := s.reservations.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var boxURLs []string
	for _, res := range reservations {
		if res.URL == "" || seen[res.URL] {
			continue
		}
		seen[res.URL] = true
		boxURLs = append(boxURLs, res.URL)
	}
	return boxURLs, nil
}
