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

	"github.com/ikkim/bloodlink-backend/config"
	"github.com/ikkim/bloodlink-backend/internal/app/controller"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	"github.com/ikkim/bloodlink-backend/internal/certificate"
	"github.com/ikkim/bloodlink-backend/internal/db"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
	"github.com/ikkim/bloodlink-backend/internal/router"
	"github.com/ikkim/bloodlink-backend/internal/scheduler"
	"github.com/ikkim/bloodlink-backend/internal/storage"
	"github.com/ikkim/bloodlink-backend/internal/validation"
	ws "github.com/ikkim/bloodlink-backend/internal/websocket"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/ikkim/bloodlink-backend/pkg/mailer"
	"github.com/ikkim/bloodlink-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
		Service:     "bloodlink",
	})

	logger.Info("Starting BloodLink Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Seed the bootstrap admin (optional)
	if err := db.Seed(&cfg.Admin); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := validation.Register(); err != nil {
		logger.Fatal("Failed to register validators", err)
	}

	// Redis backs token revocation and resend cooldowns. Without it both are skipped.
	var (
		revoker    service.TokenRevoker
		cooldown   service.CooldownStore
		revocation middleware.RevocationChecker
	)
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, token revocation disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer func() {
				if err := redis.Close(); err != nil {
					logger.Error("Failed to close redis connection", err)
				}
			}()
			store := redis.NewStore(redis.GetClient())
			revoker = store
			cooldown = store
			revocation = store
		}
	}

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP)
	if smtpMailer.DevMode() {
		logger.Warn("SMTP credentials not set, emails will only be logged")
	}

	hub := ws.NewHub()
	go hub.Run()

	// Initialize repositories
	gdb := db.GetDB()
	userRepo := repository.NewUserRepository(gdb)
	donorRepo := repository.NewDonorRepository(gdb)
	hospitalRepo := repository.NewHospitalRepository(gdb)
	appointmentRepo := repository.NewAppointmentRepository(gdb)
	donationRepo := repository.NewDonationRepository(gdb)
	requestRepo := repository.NewTransfusionRequestRepository(gdb)
	otpRepo := repository.NewOTPRepository(gdb)
	notificationRepo := repository.NewNotificationRepository(gdb)

	// Initialize services
	otpService := service.NewOTPService(gdb, otpRepo, smtpMailer, cfg.OTP.TTL)
	authService := service.NewAuthService(userRepo, otpService, smtpMailer, revoker, cooldown, service.AuthConfig{
		JWTSecret:      cfg.JWT.Secret,
		AccessExpiry:   cfg.JWT.AccessTokenExpiry,
		RefreshExpiry:  cfg.JWT.RefreshTokenExpiry,
		ResendCooldown: cfg.OTP.ResendCooldown,
	})
	notificationService := service.NewNotificationService(notificationRepo, userRepo, smtpMailer, hub)
	appointmentService := service.NewAppointmentService(gdb, appointmentRepo, donorRepo, hospitalRepo, donationRepo, notificationService)
	donationService := service.NewDonationService(
		donationRepo,
		donorRepo,
		hospitalRepo,
		certificate.NewRenderer(cfg.SMTP.FromName),
		cfg.Server.PublicURL+"/api/v1/certificates",
	)
	donorService := service.NewDonorService(donorRepo, donationRepo)
	hospitalService := service.NewHospitalService(hospitalRepo, donorRepo)
	transfusionService := service.NewTransfusionService(requestRepo, hospitalRepo, userRepo, notificationService)
	adminService := service.NewAdminService(userRepo, donorRepo, hospitalRepo, requestRepo, appointmentRepo, donationRepo, notificationService)

	var presigner storage.Presigner
	if cfg.S3.AccessKeyID != "" && cfg.S3.Bucket != "" {
		presigner = storage.NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
	} else {
		logger.Warn("S3 credentials not set, uploads disabled")
	}

	// Initialize controllers
	controllers := router.Controllers{
		Auth:         controller.NewAuthController(authService),
		Donor:        controller.NewDonorController(donorService),
		Hospital:     controller.NewHospitalController(hospitalService),
		Appointment:  controller.NewAppointmentController(appointmentService),
		Donation:     controller.NewDonationController(donationService),
		Transfusion:  controller.NewTransfusionController(transfusionService),
		Notification: controller.NewNotificationController(notificationService, hub, cfg.CORS.AllowedOrigins),
		Admin:        controller.NewAdminController(adminService),
		Upload:       controller.NewUploadController(presigner),
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, revocation)
	otpLimiter := middleware.NewRateLimiter(cfg.OTP.RatePerMinute, cfg.OTP.RatePerMinute)

	// Background jobs
	jobs := scheduler.NewScheduler(scheduler.Config{
		OTPSweepSpec: cfg.Scheduler.OTPSweepSpec,
		ReminderSpec: cfg.Scheduler.ReminderSpec,
	}, otpService, appointmentService, otpLimiter)
	if err := jobs.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", err)
	}

	// Setup router
	r := router.NewRouter(controllers, authMiddleware, otpLimiter, cfg)
	engine := r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	jobs.Stop()
	hub.Stop()

	logger.Info("Server stopped successfully")
}
