package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/resumai-be/internal/api"
	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/config"
	"github.com/isdelr/resumai-be/internal/database"
	"github.com/isdelr/resumai-be/internal/feedback"
	"github.com/isdelr/resumai-be/internal/logger"
	"github.com/isdelr/resumai-be/internal/monitoring"
	"github.com/isdelr/resumai-be/internal/services"
	"github.com/isdelr/resumai-be/internal/storage"
	"github.com/isdelr/resumai-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up file storage
	uploader, err := newUploader(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.UploadBackend).Msg("Failed to initialize upload storage")
	}

	if cfg.AnalyzerURL == "" {
		log.Warn().Msg("ANALYZER_URL is not set, resume analysis will fail")
	}
	analyzer := feedback.NewHTTPAnalyzer(cfg.AnalyzerURL, cfg.AnalyzerAPIKey, cfg.AnalyzerTimeout)

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)
	userService := services.NewUserService(db, hasher)
	sessionService := services.NewSessionService(db)
	eventService := services.NewEventService(db)
	resumeService := services.NewResumeService(db)
	registrationService := services.NewRegistrationService(db, hasher)
	analysisService := services.NewAnalysisService(uploader, analyzer, resumeService, eventService, hub)

	manager := auth.NewManager(userService, sessionService, hasher,
		auth.WithRegistrar(registrationService),
		auth.WithEventRecorder(eventService),
		auth.WithNotifier(hub),
	)

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(sessionService, cfg.SessionPurgeSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	go scheduler.Run()

	// Set up router
	router := api.NewRouter(api.RouterOptions{
		Manager: manager,
		Cookie: auth.CookieOptions{
			Name:     cfg.SessionCookieName,
			Secure:   cfg.IsProduction(),
			SameSite: sameSite(cfg.SessionCookieSameSite),
		},
		Resumes:        resumeService,
		Analysis:       analysisService,
		Events:         eventService,
		Uploader:       uploader,
		Hub:            hub,
		Health:         db,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop() // Stop the scheduler

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

func newUploader(cfg *config.Config) (storage.Uploader, error) {
	if cfg.UploadBackend == "s3" {
		return storage.NewS3Uploader(context.Background(), storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	}
	return storage.NewLocalUploader(cfg.UploadDir)
}

func sameSite(mode string) http.SameSite {
	if mode == "strict" {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}
