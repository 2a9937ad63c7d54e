package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/penmark/hweval-api/internal/config"
	"github.com/penmark/hweval-api/internal/database"
	"github.com/penmark/hweval-api/internal/eval"
	"github.com/penmark/hweval-api/internal/handler"
	"github.com/penmark/hweval-api/internal/middleware"
	"github.com/penmark/hweval-api/internal/models"
	"github.com/penmark/hweval-api/internal/repository"
	"github.com/penmark/hweval-api/internal/router"
	"github.com/penmark/hweval-api/internal/service"
	"github.com/penmark/hweval-api/pkg/ai"
	cloud "github.com/penmark/hweval-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectMySQL(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.HomeworkSet{}, &models.AnswerRecord{}, &models.EvaluationRun{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	adjudicator, err := buildAdjudicator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create adjudicator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	setRepo := repository.NewHomeworkSetRepository(db)
	recordRepo := repository.NewAnswerRecordRepository(db)
	runRepo := repository.NewEvaluationRunRepository(db)

	evaluator := eval.NewEvaluator(eval.Config{
		Adjudicator: adjudicator,
		Concurrency: cfg.EvalConcurrency,
		Timeout:     cfg.EvalTimeout,
		Logger:      logger,
	})

	homeworkService := service.NewHomeworkSetService(setRepo, recordRepo, uploader, cfg.MaxScanSizeMB, validate, logger)
	evaluationService := service.NewEvaluationService(setRepo, recordRepo, runRepo, evaluator, cfg.AIProvider, cfg.AIModel, redisClient, cfg.SummaryCacheTTL, natsConn, logger)
	reportService := service.NewReportService(runRepo, logger)

	homeworkHandler := handler.NewHomeworkSetHandler(homeworkService, logger)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		HomeworkSetHandler: homeworkHandler,
		EvaluationHandler:  evaluationHandler,
		ReportHandler:      reportHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildAdjudicator(cfg config.Config, logger zerolog.Logger) (ai.Adjudicator, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return ai.NewAnthropicAdjudicator(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AIModel,
		})
	default:
		return ai.NewOpenAIAdjudicator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
