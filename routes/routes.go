package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"wodbooker/handlers"
)

// HandlerBundle groups the API handlers the router needs.
type HandlerBundle struct {
	Reservation *handlers.ReservationHandler
	Push        *handlers.PushHandler
	Sync        *handlers.SyncHandler
	Session     *handlers.SessionHandler
}

// RegisterReservationRoutes registers reservation management endpoints.
func RegisterReservationRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/reservations")
	{
		api.POST("", hb.Reservation.Create)
		api.GET("", hb.Reservation.List)
		api.GET("/:id", hb.Reservation.Get)
		api.PUT("/:id", hb.Reservation.Update)
		api.DELETE("/:id", hb.Reservation.Delete)
		api.POST("/:id/activate", hb.Reservation.Activate)
		api.POST("/:id/deactivate", hb.Reservation.Deactivate)
		api.GET("/:id/events", hb.Reservation.ListEvents)
	}
}

// RegisterPushRoutes registers Web Push subscription endpoints.
func RegisterPushRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/push")
	{
		api.POST("/subscribe", hb.Push.Subscribe)
		api.POST("/unsubscribe", hb.Push.Unsubscribe)
		api.POST("/test", hb.Push.Test)
	}
}

// RegisterSyncRoutes registers the portal synchronization trigger.
func RegisterSyncRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/wodbuster")
	{
		api.POST("/sync", hb.Sync.Sync)
	}
}

// RegisterSessionRoutes registers the portal session refresh endpoint.
func RegisterSessionRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/session")
	{
		api.POST("/refresh", hb.Session.Refresh)
	}
}

// RegisterHealthRoute registers the liveness endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes attaches all route groups.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterReservationRoutes(r, hb)
	RegisterPushRoutes(r, hb)
	RegisterSyncRoutes(r, hb)
	RegisterSessionRoutes(r, hb)
	RegisterHealthRoute(r)
}
