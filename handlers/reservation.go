package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	eventRepo "wodbooker/database/repository/event"
	reservationRepo "wodbooker/database/repository/reservation"
	userRepo "wodbooker/database/repository/user"
	"wodbooker/models"
	"wodbooker/services/booker"
	"wodbooker/services/portal"
	"wodbooker/utils"
)

// defaultEventLimit bounds the timeline page when the client does not
// ask for a specific size.
const defaultEventLimit = 50

// ReservationHandler exposes reservation management over the API.
type ReservationHandler struct {
	Reservations reservationRepo.ReservationRepository
	Users        userRepo.UserRepository
	Events       eventRepo.EventRepository
	Supervisor   *booker.Supervisor
	Registry     *portal.Registry
}

// NewReservationHandler wires the reservation endpoints.
func NewReservationHandler(
	reservations reservationRepo.ReservationRepository,
	users userRepo.UserRepository,
	events eventRepo.EventRepository,
	supervisor *booker.Supervisor,
	registry *portal.Registry,
) *ReservationHandler {
	return &ReservationHandler{
		Reservations: reservations,
		Users:        users,
		Events:       events,
		Supervisor:   supervisor,
		Registry:     registry,
	}
}

type reservationInput struct {
	UserID      string `json:"userId" binding:"required"`
	Dow         *int   `json:"dow" binding:"required"`
	Time        string `json:"time" binding:"required"`
	// URL may be omitted: the box is then resolved from the portal
	// account, which works for users with a single box.
	URL         string `json:"url"`
	Offset      *int   `json:"offset"`
	AvailableAt string `json:"availableAt" binding:"required"`
	TypeClass   int    `json:"typeClass"`
}

func (in *reservationInput) validate() string {
	if *in.Dow < 0 || *in.Dow > 6 {
		return "dow must be between 0 (Monday) and 6 (Sunday)"
	}
	if _, _, _, err := utils.ParseClock(in.Time); err != nil {
		return "time must be HH:MM"
	}
	if _, _, _, err := utils.ParseClock(in.AvailableAt); err != nil {
		return "availableAt must be HH:MM"
	}
	if in.Offset != nil && *in.Offset < 0 {
		return "offset must not be negative"
	}
	return ""
}

// Create registers a new reservation and starts its worker.
func (h *ReservationHandler) Create(c *gin.Context) {
	var input reservationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if msg := input.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	user, err := h.Users.GetByID(input.UserID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	boxURL := input.URL
	if boxURL == "" {
		scraper := h.Registry.Get(user.Email, user.Cookie)
		resolved, err := scraper.GetBoxURL(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve box URL", "details": err.Error()})
			return
		}
		boxURL = resolved
	}

	offset := utils.DefaultOffsetsByDay[*input.Dow]
	if input.Offset != nil {
		offset = *input.Offset
	}

	now := time.Now()
	reservation := &models.Reservation{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Dow:         *input.Dow,
		Time:        input.Time,
		URL:         boxURL,
		Offset:      offset,
		AvailableAt: input.AvailableAt,
		TypeClass:   input.TypeClass,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Reservations.Create(reservation); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reservation", "details": err.Error()})
		return
	}

	h.Supervisor.Start(reservation)
	c.JSON(http.StatusCreated, reservation)
}

// Update edits a reservation and restarts its worker so the new target
// takes effect immediately.
func (h *ReservationHandler) Update(c *gin.Context) {
	id := c.Param("id")
	reservation, err := h.Reservations.GetByID(id)
	if err != nil || reservation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}

	var input reservationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if msg := input.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	reservation.Dow = *input.Dow
	reservation.Time = input.Time
	if input.URL != "" {
		reservation.URL = input.URL
	}
	reservation.AvailableAt = input.AvailableAt
	reservation.TypeClass = input.TypeClass
	if input.Offset != nil {
		reservation.Offset = *input.Offset
	}
	reservation.UpdatedAt = time.Now()

	if err := h.Reservations.Update(reservation); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update reservation", "details": err.Error()})
		return
	}

	if reservation.IsActive {
		h.Supervisor.Stop(reservation.ID, false)
		h.Supervisor.Start(reservation)
	}
	c.JSON(http.StatusOK, reservation)
}

// Delete stops the worker and removes the reservation with its timeline.
func (h *ReservationHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	reservation, err := h.Reservations.GetByID(id)
	if err != nil || reservation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}

	h.Supervisor.Stop(id, false)
	if err := h.Events.DeleteByReservation(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete reservation timeline", "details": err.Error()})
		return
	}
	if err := h.Reservations.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete reservation", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Get returns one reservation with its running state.
func (h *ReservationHandler) Get(c *gin.Context) {
	id := c.Param("id")
	reservation, err := h.Reservations.GetByID(id)
	if err != nil || reservation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservation": reservation,
		"running":     h.Supervisor.IsRunning(id),
	})
}

// List returns reservations, optionally filtered by user.
func (h *ReservationHandler) List(c *gin.Context) {
	var (
		reservations []models.Reservation
		err          error
	)
	if userID := c.Query("userId"); userID != "" {
		reservations, err = h.Reservations.GetByUser(userID)
	} else {
		reservations, err = h.Reservations.GetAll()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reservations", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// Activate resumes booking for a paused reservation.
func (h *ReservationHandler) Activate(c *gin.Context) {
	id := c.Param("id")
	reservation, err := h.Reservations.GetByID(id)
	if err != nil || reservation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}

	if err := h.Reservations.SetActive(id, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate reservation", "details": err.Error()})
		return
	}
	reservation.IsActive = true
	h.Supervisor.Start(reservation)
	c.JSON(http.StatusOK, gin.H{"id": id, "active": true})
}

// Deactivate pauses a reservation: the worker stops and the timeline
// records the pause.
func (h *ReservationHandler) Deactivate(c *gin.Context) {
	id := c.Param("id")
	reservation, err := h.Reservations.GetByID(id)
	if err != nil || reservation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}

	if err := h.Reservations.SetActive(id, false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate reservation", "details": err.Error()})
		return
	}
	h.Supervisor.Stop(id, true)
	c.JSON(http.StatusOK, gin.H{"id": id, "active": false})
}

// ListEvents returns the reservation timeline, newest first.
func (h *ReservationHandler) ListEvents(c *gin.Context) {
	id := c.Param("id")
	reservation, err := h.Reservations.GetByID(id)
	if err != nil || reservation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}

	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.Events.GetByReservation(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load timeline", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}
