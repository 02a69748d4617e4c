// Package main provides the main entry point for the Friend Umbrella landing API
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/friendumbrella/landing-api/app/handlers"
	"github.com/friendumbrella/landing-api/app/middleware"
	"github.com/friendumbrella/landing-api/app/router"
	"github.com/friendumbrella/landing-api/app/services"
	businessflow "github.com/friendumbrella/landing-api/business_flow"
	"github.com/friendumbrella/landing-api/config"
	"github.com/friendumbrella/landing-api/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting landing API...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger through lumberjack when file output
// is configured so logs rotate instead of filling the disk.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output != "file" && cfg.Output != "both" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
		return
	}
	log.SetOutput(rotator)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	// TranslateError maps unique violations to gorm.ErrDuplicatedKey, which
	// the waitlist repository depends on for conflict detection
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	demoMode := !cfg.Database.Configured()
	if demoMode {
		log.Println("No database configured, running in demo mode with in-memory storage")
	}

	// Initialize database unless running in demo mode
	var db *gorm.DB
	if !demoMode {
		var err error
		db, err = initializeDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories. Demo mode swaps in the in-memory variants.
	var (
		waitlistRepo repository.WaitlistSignupRepository
		visitorRepo  repository.VisitorRepository
		sessionRepo  repository.VisitorSessionRepository
		auditRepo    repository.AuditLogRepository
	)
	if demoMode {
		waitlistRepo = repository.NewMemoryWaitlistSignupRepository()
		visitorRepo = repository.NewMemoryVisitorRepository()
		sessionRepo = repository.NewMemoryVisitorSessionRepository()
		auditRepo = repository.NewMemoryAuditLogRepository()
	} else {
		waitlistRepo = repository.NewWaitlistSignupRepository(db)
		visitorRepo = repository.NewVisitorRepository(db)
		sessionRepo = repository.NewVisitorSessionRepository(db)
		auditRepo = repository.NewAuditLogRepository(db)
	}

	// Attribution store: Redis when available, in-memory otherwise
	var attributionStore services.AttributionStore
	if rc != nil {
		attributionStore = services.NewRedisAttributionStore(rc, cfg.Waitlist.AttributionSessionTTL)
	} else {
		attributionStore = services.NewMemoryAttributionStore(cfg.Waitlist.AttributionSessionTTL)
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	attributionFlow := businessflow.NewAttributionFlow(attributionStore)

	authFlow := businessflow.NewAuthFlow(
		visitorRepo,
		sessionRepo,
		auditRepo,
		tokenService,
		db,
	)

	waitlistFlow := businessflow.NewWaitlistFlow(
		waitlistRepo,
		auditRepo,
		attributionFlow,
		businessflow.WaitlistPolicy{
			DefaultSource:   cfg.Waitlist.DefaultSource,
			DefaultVariant:  cfg.Waitlist.DefaultVariant,
			RequireIdentity: cfg.Waitlist.RequireIdentity,
			DemoMode:        demoMode,
			DemoCount:       cfg.Waitlist.DemoWaitlistCount,
		},
		db,
	)

	reportingFlow := businessflow.NewReportingFlow(waitlistRepo, cfg.Waitlist.ReportingFetchLimit, demoMode)

	// Initialize handlers
	waitlistHandler := handlers.NewWaitlistHandler(waitlistFlow)
	authHandler := handlers.NewAuthHandler(authFlow)
	analyticsHandler := handlers.NewAnalyticsHandler(reportingFlow)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, authFlow)
	attributionMiddleware := middleware.NewAttributionMiddleware(attributionFlow)

	// Initialize router
	appRouter := router.NewFiberRouter(
		waitlistHandler,
		authHandler,
		analyticsHandler,
		authMiddleware,
		attributionMiddleware,
		cfg.Security.AllowedOrigins,
	)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
