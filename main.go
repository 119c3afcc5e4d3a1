package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/database"
	"github.com/shamsucomsoft/onv-ncne-api/events"
	"github.com/shamsucomsoft/onv-ncne-api/jobs"
	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/middleware"
	"github.com/shamsucomsoft/onv-ncne-api/routes"
	"github.com/shamsucomsoft/onv-ncne-api/services"
	"github.com/shamsucomsoft/onv-ncne-api/storage"
	ws "github.com/shamsucomsoft/onv-ncne-api/websocket"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	config.Load()
	cfg := config.AppConfig

	if err := logger.Init(cfg.Log, cfg.Server.GinMode != gin.ReleaseMode); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.L()
	if envErr != nil {
		log.Info("No .env file found, using system environment variables")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Invalid configuration", zap.Error(err))
	}

	if err := database.Initialize(cfg.Database); err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	db := database.GetDB()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal("❌ Failed to initialize storage", zap.Error(err))
	}
	log.Info("📦 Storage ready", zap.String("location", store.Location()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sync event subscribers
	hub := ws.NewHub(cfg.Server.CORSOrigins)
	go hub.Run(ctx)

	publisher, err := events.NewRabbitPublisher(cfg.Queue)
	if err != nil {
		log.Warn("⚠️ RabbitMQ unavailable, continuing without sync events", zap.Error(err))
	}
	defer publisher.Close()

	notifiers := []services.SyncNotifier{hub}
	if publisher != nil {
		notifiers = append(notifiers, publisher)
	}

	jwtService := services.NewJWTService(db, cfg.JWT)
	authService := services.NewAuthService(db, jwtService)
	powerSync, err := services.NewPowerSyncService(db, cfg.PowerSync, cfg.JWT.Issuer)
	if err != nil {
		log.Fatal("❌ Failed to initialize PowerSync keys", zap.Error(err))
	}
	userManager := services.NewUserManagerService(db, services.NewMailService(cfg.Mail))

	if err := authService.SeedDefaultUsers(ctx, cfg.Seed); err != nil {
		log.Error("❌ Failed to seed default roles and users", zap.Error(err))
	}

	limiter := middleware.NewRateLimiter()

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	router.Use(middleware.InputValidationMiddleware())
	router.Use(middleware.RateLimitMiddleware(limiter))
	router.Use(middleware.AuditLogMiddleware())

	routes.RegisterRoutes(router, routes.Dependencies{
		Auth:        authService,
		JWT:         jwtService,
		PowerSync:   powerSync,
		Users:       userManager,
		Surveys:     services.NewSurveyService(db),
		Communities: services.NewCommunityService(db),
		Dashboard:   services.NewDashboardService(db),
		Public:      services.NewPublicService(db),
		Sync:        services.NewSyncService(db, store, notifiers...),
		Store:       store,
		Hub:         hub,
		Limiter:     limiter,
	})

	if local, ok := store.(*storage.LocalStore); ok && strings.HasPrefix(cfg.Storage.PublicBasePath, "/") {
		router.Static(cfg.Storage.PublicBasePath, local.PublicDir())
	}

	// Start background jobs
	maintenance := jobs.NewRunner(
		jobs.RefreshTokenCleanup(jwtService),
		jobs.InvitationSweep(userManager),
		jobs.RateLimiterCleanup(limiter),
	)
	maintenance.Start(ctx)
	defer maintenance.Stop()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("🚀 Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ Graceful shutdown failed", zap.Error(err))
	}
}
