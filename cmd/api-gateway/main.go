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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-viewer/api/swagger"
	"github.com/noah-isme/sma-timetable-viewer/internal/handler"
	"github.com/noah-isme/sma-timetable-viewer/internal/middleware"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	"github.com/noah-isme/sma-timetable-viewer/internal/repository"
	"github.com/noah-isme/sma-timetable-viewer/internal/service"
	"github.com/noah-isme/sma-timetable-viewer/pkg/cache"
	"github.com/noah-isme/sma-timetable-viewer/pkg/config"
	"github.com/noah-isme/sma-timetable-viewer/pkg/database"
	"github.com/noah-isme/sma-timetable-viewer/pkg/export"
	"github.com/noah-isme/sma-timetable-viewer/pkg/jobs"
	"github.com/noah-isme/sma-timetable-viewer/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-viewer/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-viewer/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-viewer/pkg/solver"
)

const shutdownTimeout = 10 * time.Second

// @title SMA Timetable Viewer API
// @version 0.2.0
// @description Submits timetable problems to the solver and presents their solutions
// @BasePath /
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	solverClient := solver.NewClient(solver.Config{
		BaseURL:            cfg.Solver.BaseURL,
		Timeout:            cfg.Solver.Timeout,
		BreakerFailures:    cfg.Solver.BreakerFailures,
		BreakerOpenTimeout: cfg.Solver.BreakerOpenTimeout,
		Logger:             logr,
		OnBreakerChange:    metrics.SetBreakerState,
	})
	metrics.SetBreakerState(solverClient.State())

	checks := map[string]handler.ReadinessCheck{
		"solver": func(context.Context) error {
			if state := solverClient.State(); state == "open" {
				return fmt.Errorf("circuit %s", state)
			}
			return nil
		},
	}
	deps := service.TimetableDeps{
		Metrics:  metrics,
		Exporter: service.NewExportService(export.NewCSVExporter(), export.NewPDFExporter(), logr),
	}

	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, solution cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			deps.Cache = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
			checks["redis"] = cacheRepo.Ping
		}
	}

	var queue *jobs.Queue
	if cfg.Snapshots.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close() //nolint:errcheck

		snapshots := repository.NewSnapshotRepository(db)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure snapshot schema: %w", err)
		}
		deps.Snapshots = snapshots
		checks["postgres"] = db.PingContext

		queue = jobs.NewQueue("snapshots", jobs.QueueConfig{
			Workers:    cfg.Snapshots.Workers,
			MaxRetries: cfg.Snapshots.Retries,
			RetryDelay: time.Second,
			Logger:     logr,
			OnExhausted: func(job jobs.Job, err error) {
				metrics.RecordSnapshotJob("failed")
				logr.Error("snapshot persistence gave up", zap.String("job_id", job.ID), zap.Error(err))
			},
		})
		deps.Queue = queue
	}

	svc := service.NewTimetableService(solverClient, deps, service.TimetableConfig{
		Namespace:  cfg.Poller.NamespacePrefix,
		CacheTTL:   cfg.Cache.TTL,
		RetryDelay: cfg.Poller.RetryDelay,
	}, logr)
	defer svc.Close()

	if queue != nil {
		queue.Register(service.SnapshotJobType, svc.PersistSnapshot)
		queue.Start(ctx)
		defer queue.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, metrics, svc, checks),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("solver", cfg.Solver.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logr.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, svc *service.TimetableService, checks map[string]handler.ReadinessCheck) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	health := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handler.NewTimetableHandler(svc, cfg.Upload.MaxSizeBytes)
	api := r.Group(cfg.APIPrefix + "/timetable")
	read := api.Group("")
	write := api.Group("")
	admin := api.Group("")
	if cfg.Auth.Enabled {
		tokens := service.NewTokenService(cfg.Auth.Secret)
		read.Use(middleware.OptionalJWT(tokens))
		write.Use(middleware.JWT(tokens), middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler))
		admin.Use(middleware.JWT(tokens), middleware.RequireRoles(models.RoleAdmin))
	}

	write.POST("/jobs", h.Submit)
	write.POST("/jobs/from-csv", h.SubmitCSV)
	write.POST("/jobs/:jobId/fetch", h.Fetch)
	write.DELETE("/poll", h.CancelPoll)

	read.GET("/jobs/:jobId/status", h.JobStatus)
	read.GET("/poll", h.PollStatus)
	read.GET("/solution", h.Summary)
	read.GET("/solution/diagnostics", h.Diagnostics)
	read.GET("/solution/classes/:className/grid", h.Grid)
	read.GET("/solution/classes/:className/export", h.Export)
	read.GET("/snapshots", h.Snapshots)
	read.GET("/snapshots/:jobId", h.Snapshot)

	admin.DELETE("/snapshots/cache", h.PurgeSnapshotCache)

	return r
}
