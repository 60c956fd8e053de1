package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/surdiana/auth-service/config"
	"github.com/surdiana/auth-service/internal/handler"
	"github.com/surdiana/auth-service/internal/middleware"
	"github.com/surdiana/auth-service/internal/repository"
	"github.com/surdiana/auth-service/internal/router"
	"github.com/surdiana/auth-service/internal/service"
	"github.com/surdiana/auth-service/pkg/circuit"
	"github.com/surdiana/auth-service/pkg/database"
	"github.com/surdiana/auth-service/pkg/fcm"
	"github.com/surdiana/auth-service/pkg/logger"
	"github.com/surdiana/auth-service/pkg/mail"
	redisclient "github.com/surdiana/auth-service/pkg/redis"
	"github.com/surdiana/auth-service/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize Zap logger
	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", "1.0.0"),
	)

	if err := validation.RegisterPasswordValidator(); err != nil {
		logger.GetLogger().Fatal("Failed to register validators", zap.Error(err))
	}

	// Initialize database with standardized pattern
	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	// Run auto migrations
	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	// Seed initial data
	if err := database.Seed(db); err != nil {
		logger.GetLogger().Error("Failed to seed database", zap.Error(err))
		// Don't fail - seed data may already exist
	} else {
		logger.GetLogger().Info("Database seeded successfully")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	fcmTokenRepo := repository.NewFCMTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Redis is optional; without it the service falls back to local
	// rate limiting and in-memory OAuth2 state
	var redisClient *redisclient.Client
	if config.Redis.Enabled {
		redisClient, err = redisclient.NewClient(config)
		if err != nil {
			logger.GetLogger().Warn("Redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Outbound mail
	var mailer mail.Mailer
	if config.Mail.Enabled {
		mailer = mail.NewMailer(
			config.Mail.Domain,
			config.Mail.APIKey,
			config.Mail.APIBase,
			config.Mail.Sender,
			config.Mail.SenderName,
			config.Mail.SendTimeout,
		)
	} else {
		mailer = mail.NewLogMailer()
	}

	// Push delivery
	var pushSender service.PushSender
	if config.FCM.Enabled {
		fcmCtx, fcmCancel := context.WithTimeout(context.Background(), 15*time.Second)
		sender, err := fcm.NewSender(fcmCtx, config.FCM.ProjectID, config.FCM.CredentialsPath)
		fcmCancel()
		if err != nil {
			logger.GetLogger().Warn("FCM unavailable, push notifications disabled", zap.Error(err))
		} else {
			pushSender = sender
		}
	}

	mailBreaker := circuit.NewBreaker("mailgun", circuit.DefaultConfig(), logger.GetLogger())
	pushBreaker := circuit.NewBreaker("fcm", circuit.DefaultConfig(), logger.GetLogger())

	// Services
	auditService := service.NewAuditService(auditRepo, 256)
	defer auditService.Close()

	emailService := service.NewEmailService(mailer, mailBreaker, config.App.FrontendURL)
	jwtService := service.NewJWTService(config.JWT.Secret, config.JWT.AccessTTL)
	tokenService := service.NewTokenService(refreshTokenRepo, jwtService, config.Token.RefreshTTL)
	authService := service.NewAuthService(
		userRepo,
		tokenService,
		jwtService,
		emailService,
		auditService,
		config.Token.VerificationTTL,
		config.Token.ResetTTL,
	)

	var stateStore service.StateStore
	if redisClient != nil {
		stateStore = service.NewRedisStateStore(redisClient)
	} else {
		stateStore = service.NewMemoryStateStore()
	}
	oauth2Service := service.NewOAuth2Service(
		userRepo,
		tokenService,
		jwtService,
		auditService,
		stateStore,
		&config.OAuth2,
	)

	userService := service.NewUserService(userRepo, roleRepo, tokenService, auditService)
	notificationService := service.NewNotificationService(fcmTokenRepo, pushSender, pushBreaker)

	cleanupService := service.NewCleanupService(
		userRepo,
		refreshTokenRepo,
		fcmTokenRepo,
		config.Cleanup.TokenSweepInterval,
		config.Cleanup.FCMSweepInterval,
		config.Cleanup.FCMStaleAfter,
	)
	cleanupService.Start()
	defer cleanupService.Stop()

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	oauth2Handler := handler.NewOAuth2Handler(oauth2Service)
	userHandler := handler.NewUserHandler(userService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	auditHandler := handler.NewAuditHandler(auditService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	jwtMiddleware := middleware.NewJWTMiddleware(jwtService, userRepo)

	engine := router.NewRouter(
		authHandler,
		oauth2Handler,
		userHandler,
		notificationHandler,
		auditHandler,
		healthHandler,

		jwtMiddleware,
		redisClient,
		config,
	).SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + config.App.Port,
		Handler:      engine,
		ReadTimeout:  config.App.Timeout,
		WriteTimeout: config.App.Timeout,
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error("Server shutdown failed", zap.Error(err))
	}
}
