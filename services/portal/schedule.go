package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"wodbooker/utils"
)

// Schedule is the portal's daily class list.
type Schedule struct {
	Data []ScheduleEntry `json:"Data"`
	// PrimeraHoraPublicacion announces, when the list is empty, the
	// instant the schedule will be published ("MM/dd/yyyy HH:mm:ss" in
	// Madrid time).
	PrimeraHoraPublicacion string `json:"PrimeraHoraPublicacion"`
}

// ScheduleEntry is one time slot of the day, holding one value per class
// kind offered at that hour.
type ScheduleEntry struct {
	Hora    string      `json:"Hora"`
	Valores []ClassSlot `json:"Valores"`
}

// ClassSlot is one bookable class inside a time slot.
type ClassSlot struct {
	TipoEstado string       `json:"TipoEstado"`
	Valor      ClassDetails `json:"Valor"`
}

// ClassDetails carries the seat accounting of a class.
type ClassDetails struct {
	ID                json.Number `json:"Id"`
	NombreClase       string      `json:"NombreClase"`
	AtletasEntrenando []Athlete   `json:"AtletasEntrenando"`
	Plazas            int         `json:"Plazas"`
}

// Athlete is one of the athletes already training in a class.
type Athlete struct {
	ID     json.Number `json:"Id"`
	Nombre string      `json:"NombreAtleta"`
}

// Slot states the portal reports.
const (
	stateDeletable  = "Borrable"  // already booked by this user
	stateChangeable = "Cambiable" // booked elsewhere, claim moves the seat
)

const penaltyMarker = "Penalización"

// publicationTimeLayout is the portal's announcement timestamp format.
const publicationTimeLayout = "01/02/2006 15:04:05"

// GetClasses loads the daily class list of a box. It returns the
// schedule together with the UTC-midnight epoch of the date, which other
// portal operations are keyed by.
func (s *Scraper) GetClasses(ctx context.Context, boxURL string, date time.Time) (*Schedule, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.login(ctx); err != nil {
		return nil, 0, err
	}
	return s.getClasses(ctx, boxURL, date)
}

func (s *Scraper) getClasses(ctx context.Context, boxURL string, date time.Time) (*Schedule, int64, error) {
	epoch := utils.UTCMidnightEpoch(date)

	var schedule Schedule
	if err := s.portalJSON(ctx, fmt.Sprintf("%s/athlete/handlers/LoadClass.ashx?ticks=%d", boxURL, epoch), &schedule, false); err != nil {
		return nil, 0, err
	}
	return &schedule, epoch, nil
}

// portalJSON issues a no-redirect GET against a portal handler and
// decodes the JSON response. When allowLocked is set, a 4xx response
// whose body mentions a lock is surfaced as KindBookingLocked instead of
// an unparseable response.
func (s *Scraper) portalJSON(ctx context.Context, target string, out interface{}, allowLocked bool) error {
	resp, err := s.get(ctx, s.noRedirect, target)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusFound && strings.Contains(resp.Header.Get("Location"), "login") {
		resp.Body.Close()
		return NewError(KindInvalidBox, "provided URL is not accessible for the given user")
	}

	body, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		if allowLocked && resp.StatusCode >= 400 && resp.StatusCode < 500 && strings.Contains(strings.ToLower(body), "locked") {
			return NewError(KindBookingLocked, "portal is not accepting claims right now")
		}
		return NewError(KindUnparseableResponse, "invalid response status from WodBuster")
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return WrapError(KindUnparseableResponse, "WodBuster returned a non JSON response", err)
	}
	return nil
}

// bookResponse is the portal's claim verdict.
type bookResponse struct {
	Res struct {
		EsCorrecto bool   `json:"EsCorrecto"`
		ErrorMsg   string `json:"ErrorMsg"`
	} `json:"Res"`
}

// Book attempts to claim the seat of the class whose displayed hour
// matches the booking datetime. A nil return means the seat is held
// (either freshly claimed or already booked).
func (s *Scraper) Book(ctx context.Context, boxURL string, bookingDatetime time.Time, typeClass int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.login(ctx); err != nil {
		return err
	}

	schedule, epoch, err := s.getClasses(ctx, boxURL, bookingDatetime)
	if err != nil {
		return err
	}

	hour := bookingDatetime.Format("15:04:05")

	if len(schedule.Data) == 0 {
		if schedule.PrimeraHoraPublicacion != "" {
			availableAt, perr := time.ParseInLocation(publicationTimeLayout, schedule.PrimeraHoraPublicacion, utils.MadridTZ())
			if perr != nil {
				return WrapError(KindUnparseableResponse, "unreadable publication time", perr)
			}
			return &Error{Kind: KindWindowNotOpen, Message: "no classes available", AvailableAt: availableAt}
		}
		return NewError(KindWindowNotOpen, "no classes available")
	}

	for _, entry := range schedule.Data {
		if entry.Hora != hour {
			continue
		}
		if typeClass < 0 || typeClass >= len(entry.Valores) {
			return NewError(KindUnparseableResponse, fmt.Sprintf("class kind %d not offered at %s", typeClass, hour))
		}
		slot := entry.Valores[typeClass]

		if slot.TipoEstado == stateDeletable {
			return nil
		}

		details := slot.Valor
		if len(details.AtletasEntrenando) >= details.Plazas {
			return NewError(KindClassFull, "class is full")
		}

		apiPath := "Calendario_Inscribir.ashx"
		if slot.TipoEstado == stateChangeable {
			apiPath = "Calendario_Mover.ashx"
		}
		s.logger.Info("Claiming seat", zap.String("apiPath", apiPath), zap.String("hour", hour))

		var result bookResponse
		target := fmt.Sprintf("%s/athlete/handlers/%s?id=%s&ticks=%d", boxURL, apiPath, details.ID.String(), epoch)
		if err := s.portalJSON(ctx, target, &result, true); err != nil {
			return err
		}

		if result.Res.EsCorrecto {
			return nil
		}
		if strings.Contains(result.Res.ErrorMsg, penaltyMarker) {
			return NewError(KindBookingPenalty, result.Res.ErrorMsg)
		}
		return NewError(KindBookingFailed, result.Res.ErrorMsg)
	}

	return NewError(KindClassNotFound, fmt.Sprintf("class for %s not found on %s", hour, bookingDatetime.Format("02/01/2006")))
}

// ObservedClass is a class the user holds a seat in, as reported by the
// daily schedule.
type ObservedClass struct {
	PortalClassID string
	Hora          string
	ClassName     string
	TypeClass     int
}

// SyncObservedBookings lists the classes the user has already claimed on
// the given date. A class counts as claimed when its state is deletable
// or the user's athlete id appears among the training athletes.
func (s *Scraper) SyncObservedBookings(ctx context.Context, boxURL, athleteID string, date time.Time) ([]ObservedClass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.login(ctx); err != nil {
		return nil, err
	}

	schedule, _, err := s.getClasses(ctx, boxURL, date)
	if err != nil {
		return nil, err
	}

	var observed []ObservedClass
	for _, entry := range schedule.Data {
		for i, slot := range entry.Valores {
			if !s.classClaimed(slot, athleteID) {
				continue
			}
			observed = append(observed, ObservedClass{
				PortalClassID: slot.Valor.ID.String(),
				Hora:          entry.Hora,
				ClassName:     slot.Valor.NombreClase,
				TypeClass:     i,
			})
		}
	}
	return observed, nil
}

func (s *Scraper) classClaimed(slot ClassSlot, athleteID string) bool {
	if slot.TipoEstado == stateDeletable {
		return true
	}
	if athleteID == "" {
		return false
	}
	for _, athlete := range slot.Valor.AtletasEntrenando {
		if athlete.ID.String() == athleteID {
			return true
		}
	}
	return false
}
