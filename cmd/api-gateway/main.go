package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly class timetables: grid editing, teacher and room conflict detection, mass events and exports.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	checks := map[string]handler.Pinger{"postgres": db}

	var cacheRepo *repository.CacheRepository
	if cfg.GridCache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, grid cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, logr)
			checks["redis"] = handler.PingFunc(cacheRepo.Ping)
		}
	}

	classRepo := repository.NewClassRepository(db)
	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.GridCache.TTL, logr, true)
	}

	days, err := service.ParseDays(cfg.Timetable.Days)
	if err != nil {
		logr.Fatal("invalid TIMETABLE_DAYS", zap.Error(err))
	}
	classLocks := service.NewClassLocks()
	timetableSvc, err := service.NewTimetableService(classRepo, cacheSvc, metricsSvc, validate, logr, service.TimetableConfig{
		GridStart:   cfg.Timetable.GridStart,
		GridEnd:     cfg.Timetable.GridEnd,
		SlotMinutes: cfg.Timetable.SlotMinutes,
		Days:        days,
		CacheTTL:    cfg.GridCache.TTL,
		Locks:       classLocks,
	})
	if err != nil {
		logr.Fatal("invalid timetable grid", zap.Error(err))
	}

	massEventSvc := service.NewMassEventService(classRepo, cacheSvc, metricsSvc, validate, logr, service.MassEventConfig{
		Windows: service.WindowsFromConfig(
			timetable.Window{Start: cfg.MassEvent.WholeDay.Start, End: cfg.MassEvent.WholeDay.End},
			timetable.Window{Start: cfg.MassEvent.AM.Start, End: cfg.MassEvent.AM.End},
			timetable.Window{Start: cfg.MassEvent.PM.Start, End: cfg.MassEvent.PM.End},
		),
		SlotMinutes: cfg.MassEvent.SlotMinutes,
		Locks:       classLocks,
	})

	exportHandler := handler.NewExportHandler(nil)
	if cfg.Exports.Enabled {
		queue, err := startExports(ctx, cfg, db, classRepo, timetableSvc, metricsSvc, validate, logr)
		if err != nil {
			logr.Fatal("failed to start exports", zap.Error(err))
		}
		defer queue.Stop()
		exportHandler = handler.NewExportHandler(queue.service)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	routes := handler.Routes{
		Timetable:  handler.NewTimetableHandler(timetableSvc),
		MassEvents: handler.NewMassEventHandler(massEventSvc),
		Exports:    exportHandler,
		Metrics:    handler.NewMetricsHandler(metricsSvc, checks),
	}
	routes.Register(r, cfg.APIPrefix, metricsSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// exportRuntime ties the export queue to the service that feeds it.
type exportRuntime struct {
	*jobs.Queue
	service *service.ExportJobService
}

func startExports(ctx context.Context, cfg *config.Config, db *sqlx.DB, classes *repository.ClassRepository, timetableSvc *service.TimetableService, metricsSvc *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*exportRuntime, error) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	grid := timetableSvc.TimeGrid()
	exportSvc := service.NewExportService(classes, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
		Days:      grid.Days,
		TimeSlots: grid.TimeSlots,
	}, logr, nil)

	jobRepo := repository.NewExportJobRepository(db)
	jobSvc := service.NewExportJobService(jobRepo, nil, exportSvc, metricsSvc, validate, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupSchedule: cfg.Exports.CleanupSchedule,
	})
	worker := service.NewExportWorker(jobRepo, exportSvc, metricsSvc, logr)

	queue := jobs.NewQueue("timetable-exports", worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Exports.WorkerConcurrency,
		MaxRetries:  cfg.Exports.WorkerRetries,
		OnExhausted: jobSvc.MarkExhausted,
		Logger:      logr,
	})
	metricsSvc.Registry().MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "timetable_export_queue_depth",
		Help: "Export jobs waiting for a worker",
	}, func() float64 {
		return float64(queue.Depth())
	}))

	jobSvc.SetQueue(queue)
	queue.Start(ctx)
	jobSvc.RecoverPendingJobs(ctx)
	if err := jobSvc.StartCleanup(ctx); err != nil {
		queue.Stop()
		return nil, err
	}
	logr.Info("timetable exports enabled",
		zap.String("storage_dir", cfg.Exports.StorageDir),
		zap.Int("workers", cfg.Exports.WorkerConcurrency),
	)
	return &exportRuntime{Queue: queue, service: jobSvc}, nil
}
