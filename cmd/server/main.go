package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/stitts-dev/dfs-lineup/internal/api/handlers"
	"github.com/stitts-dev/dfs-lineup/internal/history"
	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
	"github.com/stitts-dev/dfs-lineup/internal/websocket"
	"github.com/stitts-dev/dfs-lineup/pkg/cache"
	"github.com/stitts-dev/dfs-lineup/pkg/config"
	"github.com/stitts-dev/dfs-lineup/pkg/database"
	"github.com/stitts-dev/dfs-lineup/pkg/logger"
	"github.com/stitts-dev/dfs-lineup/pkg/metrics"
)

const service = "lineup-optimizer"

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	flags.String("port", "", "HTTP listen port")
	flags.String("env", "", "environment (development, production)")
	flags.String("log-level", "", "log level")
	flags.String("solver-backend", "", "solver backend (branch-and-bound, enumerate)")
	flags.Duration("solver-time-limit", 0, "default solve time limit")
	flags.Parse(os.Args[1:])

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger(logger.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Format:      cfg.LogFormat,
	})
	log := logger.WithService(service)
	log.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
		"backend":     cfg.SolverBackend,
		"time_limit":  cfg.SolverTimeLimit,
	}).Info("Starting lineup optimization service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	solver, err := optimizer.NewSolver(cfg.SolverBackend, log)
	if err != nil {
		log.Fatalf("Failed to create solver: %v", err)
	}
	engine := optimizer.NewEngine(solver)

	// The database only backs run history; the service runs without it.
	var db *database.DB
	var store *history.Store
	if cfg.DatabaseURL != "" {
		db, err = database.NewOptimizationServiceConnection(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		store = history.NewStore(db.DB)
		if err := store.Migrate(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		if cfg.HistoryRetention > 0 {
			pruner, err := history.NewPruner(store, cfg.HistoryRetention, cfg.HistoryPruneSchedule, structuredLogger)
			if err != nil {
				log.Fatalf("Failed to schedule history pruning: %v", err)
			}
			pruner.Start()
			defer pruner.Stop()
		}
	} else {
		log.Warn("DATABASE_URL not set, optimization history disabled")
	}

	var cacheService *cache.OptimizationCacheService
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("Redis not reachable, caching continues on a best-effort basis")
		}
		cancel()
		defer redisClient.Close()
		cacheService = cache.NewOptimizationCacheService(redisClient, structuredLogger, cfg.CacheTTL)
	} else {
		log.Warn("REDIS_URL not set, result caching disabled")
	}

	metricsManager := metrics.NewManager()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	wsHub := websocket.NewHub(structuredLogger)
	wsHub.OnCountChange = metricsManager.SetProgressClients
	go wsHub.Run(ctx)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metricsManager.Middleware())

	optimizationHandler := handlers.NewOptimizationHandler(
		engine,
		cacheService,
		store,
		wsHub,
		metricsManager,
		cfg,
		structuredLogger,
	)
	schemaHandler := handlers.NewSchemaHandler()
	historyHandler := handlers.NewHistoryHandler(store, structuredLogger)
	healthHandler := handlers.NewHealthHandler(db, cacheService, structuredLogger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/optimize", optimizationHandler.OptimizeLineup)
		apiV1.POST("/optimize/validate", optimizationHandler.ValidateOptimizationRequest)
		apiV1.GET("/optimize/cache-status", optimizationHandler.GetCacheStatus)

		apiV1.GET("/schemas", schemaHandler.ListSchemas)
		apiV1.GET("/schemas/:id", schemaHandler.GetSchema)

		apiV1.GET("/history", historyHandler.ListRuns)
		apiV1.GET("/history/:id", historyHandler.GetRun)
	}

	router.GET("/ws/optimization-progress/:client_id", wsHub.HandleWebSocket)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	router.GET("/metrics", gin.WrapH(metricsManager.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Lineup optimization service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down lineup optimization service...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Lineup optimization service forced to shutdown: %v", err)
	}

	log.Info("Lineup optimization service exited")
}
