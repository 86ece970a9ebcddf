package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/zaqqye/attendance_backend/internal/attendance"
	"github.com/zaqqye/attendance_backend/internal/config"
	"github.com/zaqqye/attendance_backend/internal/database"
	"github.com/zaqqye/attendance_backend/internal/middleware"
	"github.com/zaqqye/attendance_backend/internal/notify"
	"github.com/zaqqye/attendance_backend/internal/routes"
	"github.com/zaqqye/attendance_backend/internal/store"
	"github.com/zaqqye/attendance_backend/internal/telemetry"
	"github.com/zaqqye/attendance_backend/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}
	if err := database.SeedAdmin(db, cfg, logger); err != nil {
		logger.Fatal("admin seed failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		logger.Fatal("metrics registration failed", zap.Error(err))
	}

	st := store.New(db)
	coord := attendance.New(st,
		attendance.WithTTL(cfg.RoundTTLDuration()),
		attendance.WithMaxRounds(cfg.MaxRoundsInt()),
		attendance.WithFlushRetries(cfg.FlushRetriesInt()),
		attendance.WithStoreTimeout(cfg.StoreTimeoutDuration()),
		attendance.WithLogger(logger.Named("attendance")),
		attendance.WithMetrics(metrics),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(logger.Named("ws"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	notifier := notify.New(coord, hub, cfg.NotifyIntervalDuration(), logger.Named("notify"))
	notifier.Start(hubCtx)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	routes.Register(r, routes.Deps{
		DB:       db,
		Config:   cfg,
		Sessions: st,
		Rounds:   coord,
		Hub:      hub,
		Gatherer: reg,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited with error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Streaming listeners would hold Shutdown open, so drop them first.
	notifier.Stop()
	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	// srv.Shutdown may have used up shutdownCtx; the final flush gets its own.
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelFlush()
	if err := coord.Shutdown(flushCtx); err != nil {
		logger.Error("final attendance flush failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
