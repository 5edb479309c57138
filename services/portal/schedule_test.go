package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wodbooker/utils"
)

// testScraper returns a scraper with an established session so portal
// calls go straight to the handlers under test.
func testScraper() *Scraper {
	s := NewScraper("athlete@example.com", "", nil, NewMemoryBoxMetaCache())
	s.logged = true
	return s
}

// boxServer fakes the box portal handlers. claimResponses maps the claim
// handler name to the JSON it returns.
type boxServer struct {
	mu        sync.Mutex
	schedule  string
	claims    map[string]string
	lastPath  string
	lastQuery string
}

func (b *boxServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastPath = r.URL.Path
		b.lastQuery = r.URL.RawQuery
		b.mu.Unlock()

		switch r.URL.Path {
		case "/athlete/handlers/LoadClass.ashx":
			fmt.Fprint(w, b.schedule)
		case "/athlete/handlers/Calendario_Inscribir.ashx", "/athlete/handlers/Calendario_Mover.ashx":
			b.mu.Lock()
			response, ok := b.claims[r.URL.Path]
			b.mu.Unlock()
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, response)
		default:
			http.NotFound(w, r)
		}
	})
}

func scheduleJSON(hour, state string, training, seats int) string {
	athletes := ""
	for i := 0; i < training; i++ {
		if i > 0 {
			athletes += ","
		}
		athletes += fmt.Sprintf(`{"Id":%d,"NombreAtleta":"Atleta %d"}`, i+1, i+1)
	}
	return fmt.Sprintf(`{"Data":[{"Hora":"%s","Valores":[{"TipoEstado":"%s","Valor":{"Id":42,"NombreClase":"WOD","AtletasEntrenando":[%s],"Plazas":%d}}]}]}`,
		hour, state, athletes, seats)
}

func bookingTime(t *testing.T) time.Time {
	t.Helper()
	day := utils.DateOf(utils.NowMadrid()).AddDate(0, 0, 1)
	return utils.CombineMadrid(day, 18, 0, 0)
}

func TestGetClassesKeyedByUTCMidnight(t *testing.T) {
	box := &boxServer{schedule: scheduleJSON("18:00:00", "Reservable", 0, 10)}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	when := bookingTime(t)
	schedule, epoch, err := s.GetClasses(context.Background(), server.URL, when)
	require.NoError(t, err)
	require.Len(t, schedule.Data, 1)
	assert.Equal(t, "18:00:00", schedule.Data[0].Hora)

	assert.Equal(t, utils.UTCMidnightEpoch(when), epoch)
	assert.Contains(t, box.lastQuery, fmt.Sprintf("ticks=%d", epoch))
}

func TestBookClaimsFreeSeat(t *testing.T) {
	box := &boxServer{
		schedule: scheduleJSON("18:00:00", "Reservable", 3, 10),
		claims: map[string]string{
			"/athlete/handlers/Calendario_Inscribir.ashx": `{"Res":{"EsCorrecto":true}}`,
		},
	}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	require.NoError(t, err)
	assert.Equal(t, "/athlete/handlers/Calendario_Inscribir.ashx", box.lastPath)
	assert.Contains(t, box.lastQuery, "id=42")
}

func TestBookMovesChangeableSeat(t *testing.T) {
	box := &boxServer{
		schedule: scheduleJSON("18:00:00", "Cambiable", 3, 10),
		claims: map[string]string{
			"/athlete/handlers/Calendario_Mover.ashx": `{"Res":{"EsCorrecto":true}}`,
		},
	}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	require.NoError(t, s.Book(context.Background(), server.URL, bookingTime(t), 0))
	assert.Equal(t, "/athlete/handlers/Calendario_Mover.ashx", box.lastPath)
}

func TestBookAlreadyBookedIsSuccess(t *testing.T) {
	box := &boxServer{schedule: scheduleJSON("18:00:00", "Borrable", 3, 10)}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	// No claim endpoint is wired: a claim attempt would fail the test.
	require.NoError(t, s.Book(context.Background(), server.URL, bookingTime(t), 0))
	assert.Equal(t, "/athlete/handlers/LoadClass.ashx", box.lastPath)
}

func TestBookFullClass(t *testing.T) {
	box := &boxServer{schedule: scheduleJSON("18:00:00", "Reservable", 10, 10)}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	assert.Equal(t, KindClassFull, KindOf(err))
}

func TestBookClassNotFound(t *testing.T) {
	box := &boxServer{schedule: scheduleJSON("07:00:00", "Reservable", 0, 10)}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	assert.Equal(t, KindClassNotFound, KindOf(err))
}

func TestBookWindowNotOpenWithPublicationTime(t *testing.T) {
	// The portal announces the publication instant as MM/dd/yyyy.
	box := &boxServer{schedule: `{"Data":[],"PrimeraHoraPublicacion":"01/02/2026 15:00:00"}`}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	require.Equal(t, KindWindowNotOpen, KindOf(err))

	availableAt := AvailableAt(err)
	assert.Equal(t, time.January, availableAt.Month())
	assert.Equal(t, 2, availableAt.Day())
	assert.Equal(t, 15, availableAt.Hour())
	assert.Equal(t, utils.MadridTZ(), availableAt.Location())
}

func TestBookWindowNotOpenWithoutPublicationTime(t *testing.T) {
	box := &boxServer{schedule: `{"Data":[]}`}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	require.Equal(t, KindWindowNotOpen, KindOf(err))
	assert.True(t, AvailableAt(err).IsZero())
}

func TestBookPenaltyMessage(t *testing.T) {
	box := &boxServer{
		schedule: scheduleJSON("18:00:00", "Reservable", 0, 10),
		claims: map[string]string{
			"/athlete/handlers/Calendario_Inscribir.ashx": `{"Res":{"EsCorrecto":false,"ErrorMsg":"Penalización activa hasta el viernes"}}`,
		},
	}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	require.Equal(t, KindBookingPenalty, KindOf(err))
	assert.Contains(t, MessageOf(err), "Penalización")
}

func TestBookRejectedClaim(t *testing.T) {
	box := &boxServer{
		schedule: scheduleJSON("18:00:00", "Reservable", 0, 10),
		claims: map[string]string{
			"/athlete/handlers/Calendario_Inscribir.ashx": `{"Res":{"EsCorrecto":false,"ErrorMsg":"No puedes reservar más clases hoy"}}`,
		},
	}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	require.Equal(t, KindBookingFailed, KindOf(err))
	assert.Equal(t, "No puedes reservar más clases hoy", MessageOf(err))
}

func TestBookLockedClaim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/athlete/handlers/LoadClass.ashx" {
			fmt.Fprint(w, scheduleJSON("18:00:00", "Reservable", 0, 10))
			return
		}
		w.WriteHeader(http.StatusLocked)
		fmt.Fprint(w, "resource locked")
	}))
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	assert.Equal(t, KindBookingLocked, KindOf(err))
}

func TestBookRedirectToLoginMeansInvalidBox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://wodbuster.com/account/login.aspx")
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	s := testScraper()
	err := s.Book(context.Background(), server.URL, bookingTime(t), 0)
	assert.Equal(t, KindInvalidBox, KindOf(err))
}

func TestSyncObservedBookings(t *testing.T) {
	schedule := `{"Data":[
		{"Hora":"10:00:00","Valores":[{"TipoEstado":"Borrable","Valor":{"Id":1,"NombreClase":"WOD","AtletasEntrenando":[],"Plazas":10}}]},
		{"Hora":"12:00:00","Valores":[{"TipoEstado":"Reservable","Valor":{"Id":2,"NombreClase":"Open","AtletasEntrenando":[{"Id":77,"NombreAtleta":"Yo"}],"Plazas":10}}]},
		{"Hora":"18:00:00","Valores":[{"TipoEstado":"Reservable","Valor":{"Id":3,"NombreClase":"WOD","AtletasEntrenando":[{"Id":5,"NombreAtleta":"Otro"}],"Plazas":10}}]}
	]}`
	box := &boxServer{schedule: schedule}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	observed, err := s.SyncObservedBookings(context.Background(), server.URL, "77", bookingTime(t))
	require.NoError(t, err)
	require.Len(t, observed, 2)

	assert.Equal(t, "1", observed[0].PortalClassID)
	assert.Equal(t, "10:00:00", observed[0].Hora)
	assert.Equal(t, "2", observed[1].PortalClassID)
	assert.Equal(t, "Open", observed[1].ClassName)
}

func TestSyncObservedBookingsWithoutAthleteID(t *testing.T) {
	schedule := `{"Data":[
		{"Hora":"12:00:00","Valores":[{"TipoEstado":"Reservable","Valor":{"Id":2,"NombreClase":"Open","AtletasEntrenando":[{"Id":77,"NombreAtleta":"Yo"}],"Plazas":10}}]}
	]}`
	box := &boxServer{schedule: schedule}
	server := httptest.NewServer(box.handler())
	defer server.Close()

	s := testScraper()
	// Without an athlete id only deletable slots count as claimed.
	observed, err := s.SyncObservedBookings(context.Background(), server.URL, "", bookingTime(t))
	require.NoError(t, err)
	assert.Empty(t, observed)
}
