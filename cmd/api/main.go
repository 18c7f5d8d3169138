package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/database"
	"github.com/noah-isme/gema-grader/internal/events"
	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/queue"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/retry"
	"github.com/noah-isme/gema-grader/internal/router"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/storage"
	"github.com/noah-isme/gema-grader/internal/worker"
	"github.com/noah-isme/gema-grader/pkg/ai"
	cloud "github.com/noah-isme/gema-grader/pkg/cloudinary"
)

const redisEventChannel = "gema:grading:events"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "gema-grader").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName), nats.MaxReconnects(-1))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	files, err := newFileStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise artifact storage")
	}

	var mirror service.FileUploader
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Enabled() {
		cloudMirror, err := cloud.New(cloudCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		mirror = cloudMirror
	}

	oracle, err := ai.NewOpenAIOracle(ai.OpenAIConfig{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.OpenAIModel,
		ExtractModel: cfg.OpenAIExtractModel,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create grading model client")
	}

	policy, err := grading.PolicyByName(cfg.GradingPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid grading policy")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	invoker := retry.NewInvoker(logger)
	submissionQueue := queue.New(logger)
	publisher := events.NewBusPublisher(events.BusConfig{
		NATS:         natsConn,
		NATSSubject:  cfg.NATSSubject,
		Redis:        redisClient,
		RedisChannel: redisEventChannel,
	}, logger)

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)
	classReportRepo := repository.NewClassReportRepository(db)
	loader := service.NewReportLoader(submissionRepo, files, logger)

	submissionService := service.NewSubmissionService(service.SubmissionServiceConfig{
		Submissions:    submissionRepo,
		Assignments:    assignmentRepo,
		Users:          userRepo,
		Files:          files,
		Mirror:         mirror,
		Queue:          submissionQueue,
		Validator:      validate,
		MaxUploadBytes: int64(cfg.MaxUploadBytes),
	}, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, files, oracle, invoker, validate, int64(cfg.MaxUploadBytes), logger)
	statisticsService := service.NewStatisticsService(assignmentRepo, userRepo, loader, logger)
	exportService := service.NewExportService(assignmentRepo, loader, logger)
	rosterService := service.NewRosterService(userRepo, validate, cfg.RosterImportEnabled, cfg.RosterImportToken, logger)
	classReportService := service.NewClassReportService(assignmentRepo, classReportRepo, loader, files, oracle, invoker, logger)

	gradingWorker := worker.New(worker.Dependencies{
		Queue:       submissionQueue,
		Submissions: submissionRepo,
		Files:       files,
		Oracle:      oracle,
		Invoker:     invoker,
		Events:      publisher,
	}, worker.Config{Policy: policy, ErrorPause: cfg.WorkerErrorPause}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := submissionService.RequeuePending(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to re-enqueue unfinished submissions")
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := gradingWorker.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("grading worker stopped")
		}
	}()

	var limiterStorage fiber.Storage
	if redisClient != nil {
		limiterStorage = middleware.NewRedisStorage(redisClient, "gema:limiter:")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.MaxUploadBytes + 1024*1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, logger),
		AssignmentHandler:  handler.NewAssignmentHandler(assignmentService, logger),
		StatisticsHandler:  handler.NewStatisticsHandler(statisticsService, exportService, logger),
		ClassReportHandler: handler.NewClassReportHandler(classReportService, logger),
		RosterHandler:      handler.NewRosterHandler(rosterService, logger),
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
		UploadLimiter:      middleware.RateLimit("submissions", cfg.UploadRateLimit, cfg.UploadRateWindow, limiterStorage),
		QueueDepth:         submissionQueue.Len,
		HealthChecks:       healthChecks(db, redisClient),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	shutdown(app, workerDone, logger)
}

func healthChecks(db *gorm.DB, redisClient *redis.Client) map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

func newFileStore(cfg config.Config, logger zerolog.Logger) (storage.FileStore, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverS3:
		return storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
	case config.StorageDriverLocal:
		if err := os.MkdirAll(cfg.StorageRoot, 0o755); err != nil {
			return nil, err
		}
		return storage.NewFSStore(cfg.StorageRoot, logger), nil
	default:
		return nil, errors.New("unsupported storage driver " + cfg.StorageDriver)
	}
}

func shutdown(app *fiber.App, workerDone <-chan struct{}, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-workerDone:
	case <-ctx.Done():
		logger.Warn().Msg("grading worker did not stop in time")
	}

	logger.Info().Msg("server stopped")
}
