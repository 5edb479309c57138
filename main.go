package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"wodbooker/config"
	cronworker "wodbooker/cron"
	"wodbooker/database"
	eventRepoPkg "wodbooker/database/repository/event"
	notificationRepoPkg "wodbooker/database/repository/notification"
	portalBookingRepoPkg "wodbooker/database/repository/portalbooking"
	pushSubRepoPkg "wodbooker/database/repository/pushsub"
	reservationRepoPkg "wodbooker/database/repository/reservation"
	userRepoPkg "wodbooker/database/repository/user"
	"wodbooker/handlers"
	"wodbooker/middleware"
	"wodbooker/routes"
	"wodbooker/services/booker"
	"wodbooker/services/notification"
	"wodbooker/services/portal"
	"wodbooker/services/retention"
	"wodbooker/services/syncer"
	"wodbooker/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// repositories.
	users := userRepoPkg.NewMongoUserRepo()
	reservations := reservationRepoPkg.NewMongoReservationRepo()
	events := eventRepoPkg.NewMongoEventRepo()
	portalBookings := portalBookingRepoPkg.NewMongoPortalBookingRepo()
	pushSubs := pushSubRepoPkg.NewMongoPushSubscriptionRepo()
	notificationsSent := notificationRepoPkg.NewMongoNotificationSentRepo()

	// portal client registry, shared by workers and the synchronizer.
	boxMetaCache := portal.NewRedisBoxMetaCache(utils.GetCacheClient())
	registry := portal.NewRegistry(boxMetaCache)

	// services.
	mailer := notification.NewMailer()
	defer mailer.Close()
	notifier := notification.NewDefaultService(users, pushSubs, mailer)

	eventLog := booker.NewEventLog(events)
	gate := booker.NewGate(time.Duration(config.AppConfig.BookIntervalMs) * time.Millisecond)
	supervisor := booker.NewSupervisor(booker.Deps{
		Users:        users,
		Reservations: reservations,
		Events:       eventLog,
		Scrapers:     booker.RegistrySource{Registry: registry},
		Gate:         gate,
		Notifier:     notifier,
		Priority:     config.PriorityUsers(),
	}, config.BookingWhitelist())

	syncService := syncer.New(users, reservations, portalBookings,
		syncer.RegistrySource{Registry: registry})
	reminders := notification.NewReminderScanner(portalBookings, notificationsSent, users, notifier)
	sweeper := retention.NewSweeper(reservations, events)

	// Resume workers for every active reservation.
	if err := supervisor.StartAll(); err != nil {
		logger.Sugar().Fatalf("main: failed to resume booking workers: %v", err)
	}

	// Async mail consumer.
	cronworker.InitMailWorker()

	// Periodic jobs.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1m", reminders.Scan); err != nil {
		logger.Sugar().Fatalf("main: failed to schedule reminder scan: %v", err)
	}
	if _, err := scheduler.AddFunc("@every 24h", sweeper.Sweep); err != nil {
		logger.Sugar().Fatalf("main: failed to schedule retention sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	handlerBundle := &routes.HandlerBundle{
		Reservation: handlers.NewReservationHandler(reservations, users, events, supervisor, registry),
		Push:        handlers.NewPushHandler(pushSubs, users, notifier),
		Sync:        handlers.NewSyncHandler(syncService),
		Session:     handlers.NewSessionHandler(users, reservations, registry, supervisor),
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	supervisor.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
