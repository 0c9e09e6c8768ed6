package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-frontdesk/config"
	deliveryHttp "clinic-frontdesk/internal/delivery/http"
	"clinic-frontdesk/internal/delivery/http/handler"
	"clinic-frontdesk/internal/delivery/http/middleware"
	domainRepo "clinic-frontdesk/internal/domain/repository"
	"clinic-frontdesk/internal/infrastructure/cache"
	"clinic-frontdesk/internal/infrastructure/database"
	"clinic-frontdesk/internal/repository"
	"clinic-frontdesk/internal/service"
	"clinic-frontdesk/internal/usecase"
	"clinic-frontdesk/pkg/metrics"
	"clinic-frontdesk/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const metricsNamespace = "clinic"

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	SlotCache   *service.SlotCacheService
}

// LoadConfig loads configuration and configures the global logger from it.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg)
	logrus.Info("Configuration loaded successfully")
	return cfg, nil
}

// New creates a new App instance with all dependencies initialized
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	// Initialize Redis; nil when the slot cache is disabled
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	log := logrus.StandardLogger()
	slotRepo := repository.NewSlotRepository(db, log)
	if redisClient != nil {
		location, err := time.LoadLocation(cfg.Clinic.TimeZone)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("invalid clinic time zone %q: %w", cfg.Clinic.TimeZone, err)
		}
		app.SlotCache = service.NewSlotCacheService(slotRepo, redisClient, location, log)
	}

	server, err := initializeServer(cfg, db, app.SlotCache, slotRepo)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Server = server

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// initializeServer creates and configures the HTTP server
func initializeServer(
	cfg *config.Config,
	db *gorm.DB,
	slotCache *service.SlotCacheService,
	slotRepo domainRepo.SlotRepository,
) (*http.Server, error) {
	log := logrus.StandardLogger()

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize metrics
	collector := metrics.NewCollector(metricsNamespace)

	// Initialize repositories
	identityRepo := repository.NewIdentityRepository(db, log)

	// Initialize services
	calculator, err := service.NewAvailabilityCalculator(cfg.Clinic)
	if err != nil {
		return nil, fmt.Errorf("invalid clinic hours: %w", err)
	}
	merger := service.NewHistoryMerger()

	// An untyped nil keeps the cache disabled in the usecase
	var cacheForUsecase usecase.SlotCache
	if slotCache != nil {
		cacheForUsecase = slotCache
	}

	// Initialize usecases
	reservationUsecase := usecase.NewReservationUsecase(log, slotRepo, calculator, cacheForUsecase, collector)
	identityUsecase := usecase.NewIdentityUsecase(log, identityRepo, merger, collector, cfg.Resolver)

	// Initialize handlers
	patientHandler := handler.NewPatientHandler(identityUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(reservationUsecase, customValidator)

	// Initialize middleware
	requestLogger := middleware.NewRequestLogger(log, collector)

	// Initialize router
	router := deliveryHttp.NewRouter(patientHandler, appointmentHandler, requestLogger, collector.Handler())
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// SyncCache rebuilds the Redis occupancy maps from the database.
func (app *App) SyncCache(ctx context.Context) error {
	if app.SlotCache == nil {
		return fmt.Errorf("slot cache is disabled")
	}
	return app.SlotCache.SyncOnStartup(ctx)
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	if app.SlotCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := app.SyncCache(ctx); err != nil {
			// Lookups fall back to the database until dates are warmed again
			logrus.Warnf("Slot cache sync failed (non-fatal): %v", err)
		}
		cancel()
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
