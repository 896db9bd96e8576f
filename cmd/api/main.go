package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carrental/internal/api"
	"carrental/internal/config"
	"carrental/internal/database"
	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/export"
	"carrental/internal/google"
	"carrental/internal/logging"
	"carrental/internal/metrics"
	"carrental/internal/models"
	"carrental/internal/repository"
	"carrental/internal/service"
	"carrental/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedCars(ctx, db, cfg.Seed.CarsFile, logger); err != nil {
		logger.Warn().Err(err).Str("cars_file", cfg.Seed.CarsFile).Msg("seed cars")
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	attempts := initAttemptStore(ctx, redisClient, cfg.Booking.Window(), logger)
	eventBus := initEventBus(logger)
	syncWorker := initSheetsSync(ctx, cfg, db, redisClient, logger)

	loc := cfg.App.Location()
	bookingService := service.NewBookingService(db, eventBus, syncWorker, logging.Component(logger, "booking-service"),
		service.WithLocation(loc))
	carService := service.NewCarService(db, eventBus, logging.Component(logger, "car-service"))
	userService := service.NewUserService(db, cfg.API.Auth.BootstrapAdmin, logging.Component(logger, "user-service"))

	httpServer := api.NewHTTPServer(&cfg.API, api.Deps{
		DB:       db,
		Bookings: bookingService,
		Cars:     carService,
		Users:    userService,
		Attempts: attempts,
		Exporter: export.NewExporter(cfg.Exports.Path, logging.Component(logger, "export")),
		Booking:  cfg.Booking,
		Location: loc,
	}, logger)

	backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup"))
	go backup.Start(ctx)

	startMetrics(ctx, cfg, logger)

	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initAttemptStore prefers Redis and falls back to process memory.
func initAttemptStore(ctx context.Context, redisClient *redis.Client, window time.Duration, logger *zerolog.Logger) domain.AttemptStore {
	memory := repository.NewMemoryAttemptRepository()
	go sweepAttempts(ctx, memory, window, logger)

	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverAttemptRepository(
		repository.NewRedisAttemptRepository(redisClient),
		memory,
		logging.Component(logger, "attempts"),
	)
}

func sweepAttempts(ctx context.Context, memory *repository.MemoryAttemptRepository, window time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := memory.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Msg("expired booking attempt counters swept")
			}
		}
	}
}

func initEventBus(logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	audit := logging.Component(logger, "events")
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingCancelled,
		events.EventCarAdded,
		events.EventCarUpdated,
		events.EventCarDeleted,
	} {
		bus.Subscribe(eventType, func(e *events.Event) error {
			audit.Info().Int64("event_id", e.ID).Str("type", e.Type).RawJSON("payload", e.Payload).Msg("domain event")
			return nil
		})
	}
	return bus
}

// initSheetsSync starts the spreadsheet mirror when configured. The return
// value is a nil interface when the mirror is off.
func initSheetsSync(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if !cfg.Google.Enabled() {
		return nil
	}

	sheetsLogger := logging.Component(logger, "sheets")
	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		sheetsLogger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		if email, emailErr := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile); emailErr == nil {
			sheetsLogger.Warn().Err(err).Str("service_account", email).Msg("spreadsheet not reachable, share it with the service account")
		} else {
			sheetsLogger.Warn().Err(err).Msg("spreadsheet not reachable")
		}
	}
	go sheetsService.StartCacheRefresh(ctx, time.Duration(models.SheetsCacheTTL)*time.Second, func(err error) {
		sheetsLogger.Warn().Err(err).Msg("sheets cache refresh failed")
	})

	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.NewRetryPolicy(cfg.Google.Retry), logging.Component(logger, "sheets-worker"))
	go sheetsWorker.Start(ctx)

	if err := sheetsWorker.EnqueueResync(ctx); err != nil {
		sheetsLogger.Warn().Err(err).Msg("initial sheets resync enqueue failed")
	}

	sheetsLogger.Info().Msg("google sheets connected")
	return sheetsWorker
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
