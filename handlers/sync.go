package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wodbooker/services/syncer"
)

// SyncHandler triggers portal-booking synchronization on demand.
type SyncHandler struct {
	Syncer *syncer.Syncer
}

// NewSyncHandler wires the sync endpoint.
func NewSyncHandler(s *syncer.Syncer) *SyncHandler {
	return &SyncHandler{Syncer: s}
}

// Sync runs a full week synchronization and reports the counts.
func (h *SyncHandler) Sync(c *gin.Context) {
	summary, err := h.Syncer.SyncWeek(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "synchronization failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
