package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	reservationRepo "wodbooker/database/repository/reservation"
	userRepo "wodbooker/database/repository/user"
	"wodbooker/services/booker"
	"wodbooker/services/portal"
)

// SessionHandler refreshes expired portal sessions with fresh
// credentials. Workers that stopped on expired cookies are restarted.
type SessionHandler struct {
	Users        userRepo.UserRepository
	Reservations reservationRepo.ReservationRepository
	Registry     *portal.Registry
	Supervisor   *booker.Supervisor
}

// NewSessionHandler wires the session endpoints.
func NewSessionHandler(
	users userRepo.UserRepository,
	reservations reservationRepo.ReservationRepository,
	registry *portal.Registry,
	supervisor *booker.Supervisor,
) *SessionHandler {
	return &SessionHandler{
		Users:        users,
		Reservations: reservations,
		Registry:     registry,
		Supervisor:   supervisor,
	}
}

type refreshInput struct {
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Refresh logs in to the portal with the given credentials. On success
// the stored cookie is replaced, the force-login flag cleared and the
// user's active workers restarted.
func (h *SessionHandler) Refresh(c *gin.Context) {
	var input refreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	user, err := h.Users.GetByID(input.UserID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	scraper, err := h.Registry.Refresh(c.Request.Context(), user.Email, input.Password)
	if err != nil {
		switch portal.KindOf(err) {
		case portal.KindLoginFailed, portal.KindPasswordRequired:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "portal rejected the credentials"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "portal login failed", "details": err.Error()})
		}
		return
	}

	if err := h.Users.UpdateCookie(user.ID, scraper.Cookies()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store session", "details": err.Error()})
		return
	}
	if err := h.Users.SetForceLogin(user.ID, false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear re-login flag", "details": err.Error()})
		return
	}

	restarted := 0
	reservations, err := h.Reservations.GetByUser(user.ID)
	if err == nil {
		for i := range reservations {
			if !reservations[i].IsActive {
				continue
			}
			h.Supervisor.Start(&reservations[i])
			restarted++
		}
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true, "restartedWorkers": restarted})
}
