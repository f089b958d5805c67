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
	"github.com/rs/zerolog"

	"github.com/wenzhi-edu/report-api/internal/config"
	"github.com/wenzhi-edu/report-api/internal/database"
	"github.com/wenzhi-edu/report-api/internal/handler"
	"github.com/wenzhi-edu/report-api/internal/middleware"
	"github.com/wenzhi-edu/report-api/internal/models"
	"github.com/wenzhi-edu/report-api/internal/render"
	"github.com/wenzhi-edu/report-api/internal/repository"
	"github.com/wenzhi-edu/report-api/internal/router"
	"github.com/wenzhi-edu/report-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Assignment{}, &models.Evaluation{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluationRepo := repository.NewEvaluationRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	renderer := render.NewRenderer(cfg.TemplateDir, logger)
	reportService := service.NewReportService(evaluationRepo, assignmentRepo, renderer, service.Options{
		Placeholder:   cfg.ReportPlaceholder,
		Concurrency:   cfg.RenderConcurrency,
		RequireReview: cfg.RequireReviewBeforeExport,
	}, logger)

	reportHandler := handler.NewReportHandler(reportService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ReportHandler: reportHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
