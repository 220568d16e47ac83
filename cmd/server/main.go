package main

import (
	"alcyxob/yoga-studio/internal/api" // Import API package
	"alcyxob/yoga-studio/internal/config"
	"alcyxob/yoga-studio/internal/logger"
	"alcyxob/yoga-studio/internal/repository/mongo"
	"alcyxob/yoga-studio/internal/service"
	"alcyxob/yoga-studio/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"
)

// @title Yoga Studio API
// @version 1.0
// @description API for managing session plan templates, the class schedule, and delivered-class history.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	// Config has to load before the logger exists, so failures here go
	// through the stdlib logger.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	logg, err := logger.New(cfg.Log.JSON)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()
	logg.Infow("starting yoga studio server", "address", cfg.Server.Address)

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logg.Fatalw("could not connect to MongoDB", "error", err)
	}
	defer func() {
		logg.Infow("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logg.Errorw("failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logg.Infow("database connection established", "database", cfg.Database.Name)

	// --- Ensure Indexes ---
	// Index creation runs before the server accepts traffic. The unique
	// indexes on allocations and executions are what enforce the
	// one-per-slot-per-date rules, so the server must not start without them.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		if err := mongo.EnsureAllocationIndexes(ctx, appDB.Collection("allocations")); err != nil {
			logg.Fatalw("could not create allocation indexes", "error", err)
		}
		if err := mongo.EnsureExecutionIndexes(ctx, appDB.Collection("executions")); err != nil {
			logg.Fatalw("could not create execution indexes", "error", err)
		}
		// The catalog and template indexes only speed up reads.
		if err := mongo.EnsureExerciseIndexes(ctx, appDB.Collection("exercises")); err != nil {
			logg.Warnw("could not create exercise indexes", "error", err)
		}
		if err := mongo.EnsureSlotIndexes(ctx, appDB.Collection("slots")); err != nil {
			logg.Warnw("could not create slot indexes", "error", err)
		}
		if err := mongo.EnsureTemplateIndexes(ctx, appDB.Collection("plan_templates")); err != nil {
			logg.Warnw("could not create template indexes", "error", err)
		}
		cancel()
	}

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3, logg.Named("storage"))
	if err != nil {
		logg.Fatalw("failed to initialize S3 storage", "error", err)
	}

	// --- Initialize Repositories ---
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	slotRepo := mongo.NewMongoSlotRepository(appDB)
	templateRepo := mongo.NewMongoTemplateRepository(appDB)
	allocationRepo := mongo.NewMongoAllocationRepository(appDB)
	executionRepo := mongo.NewMongoExecutionRepository(appDB)
	attendanceReader := mongo.NewMongoAttendanceReader(appDB)

	// --- Initialize Services ---
	catalogService := service.NewCatalogService(exerciseRepo, slotRepo)
	templateService := service.NewTemplateService(templateRepo, exerciseRepo)
	scheduleService := service.NewScheduleService(allocationRepo, templateRepo, slotRepo, logg.Named("schedule"))
	executionService := service.NewExecutionService(executionRepo, templateRepo, allocationRepo, slotRepo, attendanceReader, logg.Named("execution"))
	overuseService := service.NewOveruseService(templateRepo, executionRepo, service.OverusePolicy{
		RecentUseDays:  cfg.Scheduling.OveruseRecentDays,
		WindowDays:     cfg.Scheduling.OveruseWindowDays,
		UsageThreshold: cfg.Scheduling.OveruseThreshold,
	})
	analyticsService := service.NewAnalyticsService(executionRepo, exerciseRepo, fileStorage, logg.Named("analytics"))
	reconcileService := service.NewReconcileService(allocationRepo, executionRepo, templateRepo, logg.Named("reconcile"))

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.New()
	router.Use(api.RequestLogger(logg.Named("http")), gin.Recovery())

	// --- Setup Routes ---
	api.SetupRoutes(
		router,
		cfg.JWT.Secret,
		catalogService,
		templateService,
		scheduleService,
		executionService,
		overuseService,
		analyticsService,
	)

	// --- Nightly Reconciliation ---
	// Repairs allocations and usage counters whose best-effort settlement
	// steps were lost mid-flight (crash between writes, transient Mongo errors).
	if cfg.Reconcile.Enabled {
		c := cron.New()
		err := c.AddFunc(cfg.Reconcile.Schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			summary, err := reconcileService.Run(ctx)
			if err != nil {
				logg.Errorw("reconciliation run failed", "error", err)
				return
			}
			logg.Infow("reconciliation run finished",
				"scanned", summary.ScannedAllocations,
				"allocationsRepaired", summary.AllocationsRepaired,
				"countersFixed", summary.CountersFixed,
			)
		})
		if err != nil {
			logg.Fatalw("invalid reconcile schedule", "schedule", cfg.Reconcile.Schedule, "error", err)
		}
		c.Start()
		defer c.Stop()
		logg.Infow("reconciliation scheduled", "schedule", cfg.Reconcile.Schedule)
	}

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		logg.Infow("server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatalw("listen and serve error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Infow("shutting down server")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logg.Fatalw("server forced to shutdown", "error", err)
	}

	logg.Infow("server exiting")
}
