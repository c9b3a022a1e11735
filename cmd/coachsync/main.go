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
	"path/filepath"
	"syscall"
	"time"

	"coachsync/internal/api"
	"coachsync/internal/config"
	"coachsync/internal/database"
	"coachsync/internal/domain"
	"coachsync/internal/google"
	"coachsync/internal/jobs"
	"coachsync/internal/logging"
	"coachsync/internal/metrics"
	"coachsync/internal/models"
	"coachsync/internal/repository"
	"coachsync/internal/scheduler"
	"coachsync/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout = 30 * time.Second
	jobHistoryTTL   = 30 * 24 * time.Hour
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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncService, err := initSyncService(cfg, db, &logger)
	if err != nil {
		return err
	}

	redisClient, history := initJobHistory(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	sched := scheduler.New(history, &logger)
	deps := jobs.Deps{
		Config:    cfg,
		Store:     db,
		Reminders: db,
		Trainers:  db,
		Syncer:    syncService,
		Sender:    initTelegram(cfg, &logger),
		Logger:    &logger,
	}
	if cfg.Backup.Enabled {
		deps.Backup = database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
	}
	if err := jobs.Register(sched, deps); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	sched.StartAll()

	startMetrics(ctx, cfg, &logger)

	var httpServer *api.HTTPServer
	if cfg.API.Enabled {
		httpServer = api.NewHTTPServer(cfg.API, api.Deps{
			Jobs:    sched,
			History: history,
			Store:   db,
			Syncer:  syncService,
			Health:  db,
		}, &logger)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().Strs("jobs", sched.ListJobs()).Bool("api", cfg.API.Enabled).Msg("coachsync started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http server shutdown")
		}
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("scheduler shutdown timed out, running jobs were cancelled")
	}

	logger.Info().Msg("coachsync stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	return cfg, logger, closer, nil
}

func initSyncService(cfg *config.Config, db *database.DB, logger *zerolog.Logger) (*service.SyncService, error) {
	if cfg.Google.CredentialsFile == "" {
		return nil, errors.New("google.credentials_file is required for calendar sync")
	}

	provider, err := google.NewServiceAccountProvider(cfg.Google.CredentialsFile)
	if err != nil {
		logger.Error().Err(err).Msg("load google service account")
		return nil, err
	}

	calendarClient := google.NewCalendarClient(google.Options{
		Endpoint:          cfg.Google.Endpoint,
		RequestsPerSecond: cfg.Google.RequestsPerSecond,
		Burst:             cfg.Google.Burst,
		RequestTimeout:    cfg.Google.RequestTimeout.Std(),
		Retry: google.RetryPolicy{
			MaxRetries:    cfg.Google.Retry.MaxRetries,
			InitialDelay:  cfg.Google.Retry.InitialDelay.Std(),
			MaxDelay:      cfg.Google.Retry.MaxDelay.Std(),
			BackoffFactor: 2,
		},
	}, logger)

	logger.Info().Str("service_account", provider.ServiceAccountEmail()).Msg("google calendar client ready")
	return service.NewSyncService(db, calendarClient, provider, logger), nil
}

// initJobHistory keeps job runs in Redis when it is reachable, in memory otherwise.
func initJobHistory(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.JobRunRepository) {
	memory := repository.NewMemoryJobRunRepository(models.JobHistorySize)
	if cfg.Redis.Address == "" {
		return nil, memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, job history kept in memory")
		_ = redisClient.Close()
		return nil, memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	primary := repository.NewRedisJobRunRepository(redisClient, models.JobHistorySize, jobHistoryTTL)
	return redisClient, repository.NewFailoverJobRunRepository(primary, memory, logger)
}

func initTelegram(cfg *config.Config, logger *zerolog.Logger) domain.MessageSender {
	if cfg.Telegram.BotToken == "" {
		logger.Info().Msg("telegram token not set, reminders are stored as notifications only")
		return nil
	}
	sender, err := service.NewTelegramServiceFromToken(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, reminders are stored as notifications only")
		return nil
	}
	return sender
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
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
