package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/app"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/config"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/controllers"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/services"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	if err := repositories.Migrate(context.Background(), application.DB); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to apply schema")
	}

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	otpRepo := repositories.NewOtpCodeRepository(application.DB)
	accountRepo := repositories.NewAccountRepository(application.DB)
	profileRepo := repositories.NewProfileRepository(application.DB)
	rateLimitRepo := repositories.NewRateLimitRepository(application.DB)

	//----------------------------------------------------------------------
	// Outbound clients
	//----------------------------------------------------------------------
	twilioClient := services.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	smsSender := services.NewTwilioSMSSender(twilioClient, cfg.TwilioFromPhone)

	amqpURL := cfg.AMQPUrl
	if !cfg.LDFlag_PublishEvents {
		amqpURL = ""
	}
	publisher, err := services.NewEventPublisher(amqpURL)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to connect event publisher")
	}
	defer publisher.Close()

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, services.RateLimitsFromConfig(cfg))
	accountService := services.NewAccountService(accountRepo, profileRepo, cfg.AppDomain)
	otpService := services.NewOTPService(
		otpRepo,
		accountService,
		smsSender,
		rateLimiterService,
		publisher,
		services.OTPOptions{
			Expiry:             cfg.OTPExpiry,
			AcceptFakePhones:   cfg.LDFlag_AcceptFakePhones,
			ValidateWithTwilio: cfg.LDFlag_ValidatePhoneWithTwilio,
			Twilio:             twilioClient,
		},
	)
	jwtService := services.NewJWTService(cfg.RSAPrivateKey, accountRepo, cfg.AccessTokenTTL)

	otpCleanupService := services.NewOTPCleanupService(otpRepo)
	rateLimitCleanupService := services.NewRateLimitCleanupService(rateLimitRepo)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	handler := app.NewHandler(app.Controllers{
		OTP:    controllers.NewOTPController(otpService),
		Token:  controllers.NewTokenController(jwtService),
		Health: controllers.NewHealthController(application),
	}, cfg.CORSAllowOrigin)

	//----------------------------------------------------------------------
	// Setup daily cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()

	// otp codes
	if _, err := c.AddFunc("0 3 * * *", func() {
		if e := otpCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled OTP cleanup failed")
		}
	}); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to schedule OTP cleanup job")
	}

	// rate limit counter cleanup
	if _, err := c.AddFunc("10 3 * * *", func() {
		if e := rateLimitCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled rate limit counter cleanup failed")
		}
	}); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to schedule rate limit counter cleanup job")
	}

	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("Failed to start server:", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.WithError(err).Error("Graceful shutdown failed")
	}
	utils.Logger.Info("Server stopped")
}
