package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheongsim/delivery-app/board"
	"github.com/cheongsim/delivery-app/config"
	"github.com/cheongsim/delivery-app/database"
	"github.com/cheongsim/delivery-app/router"
	"github.com/cheongsim/delivery-app/services"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// application menyatukan router dan dispatcher yang berbagi database
type application struct {
	router     *gin.Engine
	dispatcher *services.Dispatcher
}

func newApplication(cfg *config.Config, db *gorm.DB, sender services.MessageSender, scheduler services.Scheduler) (*application, error) {
	dispatcher := services.NewDispatcher(db, sender, scheduler, services.DispatcherOptions{
		From:         cfg.SMSSender,
		MaxAttempts:  cfg.NotificationMaxAttempts,
		PollInterval: cfg.NotificationPollInterval,
	})

	r, err := router.SetupRouter(router.Options{
		DB:         db,
		Config:     cfg,
		Dispatcher: dispatcher,
		Hub:        board.NewHub(),
	})
	if err != nil {
		return nil, err
	}
	return &application{router: r, dispatcher: dispatcher}, nil
}

func newScheduler(cfg *config.Config, db *gorm.DB) (services.Scheduler, func(), error) {
	if cfg.RedisURL == "" {
		return services.NewDBScheduler(db), func() {}, nil
	}

	scheduler, err := services.NewRedisScheduler(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	utils.InfoLogger.Println("Using Redis notification scheduler")
	return scheduler, func() {
		if err := scheduler.Close(); err != nil {
			utils.ErrorLogger.Printf("Error closing Redis scheduler: %v", err)
		}
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)

	// Set gin mode
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate database: %v", err)
	}

	sms := services.NewSMSService(&services.SMSConfig{
		APIKey:    cfg.SMSAPIKey,
		APISecret: cfg.SMSAPISecret,
		Sender:    cfg.SMSSender,
		BaseURL:   cfg.SMSBaseURL,
	})
	if err := sms.ValidateConfig(); err != nil {
		utils.ErrorLogger.Warnf("SMS provider not configured, notifications will fail: %v", err)
	}

	scheduler, closeScheduler, err := newScheduler(cfg, db)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer closeScheduler()

	app, err := newApplication(cfg, db, sms, scheduler)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up router: %v", err)
	}

	if _, err := app.dispatcher.RecoverPending(context.Background()); err != nil {
		utils.ErrorLogger.Printf("Error recovering pending notifications: %v", err)
	}
	app.dispatcher.Start()
	defer app.dispatcher.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: app.router,
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}
}
