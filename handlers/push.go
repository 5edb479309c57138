package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pushSubRepo "wodbooker/database/repository/pushsub"
	userRepo "wodbooker/database/repository/user"
	"wodbooker/models"
	"wodbooker/services/notification"
)

// PushHandler manages Web Push subscriptions.
type PushHandler struct {
	Subs     pushSubRepo.PushSubscriptionRepository
	Users    userRepo.UserRepository
	Notifier notification.Service
}

// NewPushHandler wires the push endpoints.
func NewPushHandler(subs pushSubRepo.PushSubscriptionRepository, users userRepo.UserRepository, notifier notification.Service) *PushHandler {
	return &PushHandler{Subs: subs, Users: users, Notifier: notifier}
}

type subscribeInput struct {
	UserID   string `json:"userId" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// Subscribe registers (or refreshes) a browser push subscription.
func (h *PushHandler) Subscribe(c *gin.Context) {
	var input subscribeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	user, err := h.Users.GetByID(input.UserID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	sub := &models.PushSubscription{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		Endpoint:  input.Endpoint,
		P256dh:    input.Keys.P256dh,
		Auth:      input.Keys.Auth,
		CreatedAt: time.Now(),
	}
	if err := h.Subs.Upsert(sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store subscription", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": true})
}

type unsubscribeInput struct {
	UserID   string `json:"userId" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required"`
}

// Unsubscribe removes a browser push subscription.
func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var input unsubscribeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if err := h.Subs.DeleteByEndpoint(input.UserID, input.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove subscription", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unsubscribed": true})
}

type testPushInput struct {
	UserID string `json:"userId" binding:"required"`
}

// Test sends a probe push so the user can verify their browser setup.
func (h *PushHandler) Test(c *gin.Context) {
	var input testPushInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	err := h.Notifier.SendPush(c.Request.Context(), input.UserID,
		"Notificación de prueba", "Las notificaciones push funcionan correctamente", nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send test push", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}
