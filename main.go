package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sarthaktajane07/DineFlow/config"
	"github.com/sarthaktajane07/DineFlow/database"
	"github.com/sarthaktajane07/DineFlow/middlewares"
	"github.com/sarthaktajane07/DineFlow/notify"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sarthaktajane07/DineFlow/router"
	"github.com/sarthaktajane07/DineFlow/services"
	"github.com/sarthaktajane07/DineFlow/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := config.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	var hubOpts []realtime.Option
	var forwarder *realtime.NATSForwarder
	if cfg.NATSURL != "" {
		forwarder, err = realtime.NewNATSForwarder(cfg.NATSURL, cfg.NATSPrefix)
		if err != nil {
			utils.ErrorLogger.Printf("NATS forwarding disabled: %v", err)
		} else {
			hubOpts = append(hubOpts, realtime.WithForwarder(forwarder))
			utils.InfoLogger.Printf("Forwarding events to NATS at %s", cfg.NATSURL)
		}
	}
	hub := realtime.NewHub(log, hubOpts...)

	recorder := services.NewActivityRecorder(db, hub, log)

	dispatcher := notify.NewDispatcher(notify.NewSender(cfg.Twilio, log), log)
	dispatcher.OnResult(recorder.NotificationHook())

	deps := services.Deps{
		DB:         db,
		Publisher:  hub,
		Recorder:   recorder,
		Notifier:   dispatcher,
		Locks:      services.NewKeyedMutex(),
		Log:        log,
		Restaurant: cfg.RestaurantName,
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	coordinator := services.NewCoordinator(deps)
	tableService := services.NewTableService(deps)
	waitlistService := services.NewWaitlistService(deps, coordinator)
	userService := services.NewUserService(deps, tokens)

	if err := userService.EnsureManager(context.Background(), cfg.SeedManager, cfg.SeedPassword); err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed manager account: %v", err)
	}

	reconciler := services.NewReconciler(deps)
	if err := reconciler.Start(cfg.ReconcileEvery); err != nil {
		utils.ErrorLogger.Fatalf("Failed to start reconciler: %v", err)
	}

	r := router.SetupRouter(router.Dependencies{
		Tables:      tableService,
		Waitlist:    waitlistService,
		Users:       userService,
		Recorder:    recorder,
		Hub:         hub,
		Tokens:      tokens,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		RateLimiter: middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}

	reconciler.Stop()
	dispatcher.Wait()
	hub.Close()
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			utils.ErrorLogger.Printf("Error draining NATS connection: %v", err)
		}
	}
	utils.InfoLogger.Println("Server exited")
}
