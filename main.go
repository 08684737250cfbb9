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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/swaggo/swag" // 导入 swag

	"roadmap_tutor/config"
	"roadmap_tutor/dataset"
	"roadmap_tutor/db"
	_ "roadmap_tutor/docs" // 导入 swagger 文档
	"roadmap_tutor/handlers"
	"roadmap_tutor/lock"
	"roadmap_tutor/logger"
	"roadmap_tutor/recommender"
	"roadmap_tutor/repository"
	"roadmap_tutor/scheduler"
	"roadmap_tutor/services"
)

func main() {
	cfg := config.Load()

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	logger.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format, "output", cfg.Log.Output)

	if err := db.InitMySQLWithConfig(cfg); err != nil {
		logger.Error("init mysql failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("mysql connected",
		"max_open_conns", cfg.DB.MaxOpenConns,
		"max_idle_conns", cfg.DB.MaxIdleConns,
		"conn_max_lifetime", cfg.DB.ConnMaxLifetime)

	if err := db.InitRedisWithConfig(cfg); err != nil {
		logger.Error("init redis failed", "error", err)
		os.Exit(1)
	}

	var locker lock.Locker
	if db.Redis != nil {
		locker = lock.NewRedis(db.Redis, time.Duration(cfg.Redis.LockTTL)*time.Second)
		logger.Info("using redis refresh lock", "addr", cfg.Redis.Addr, "ttl_sec", cfg.Redis.LockTTL)
	} else {
		locker = lock.NewLocal()
		logger.Info("using in-process refresh lock")
	}

	roadmaps := repository.NewRoadmapRepo(db.DB)
	profiles := repository.NewProfileRepo(db.DB)

	store := dataset.NewFileSnapshotStore(cfg.Dataset.Dir)
	exporter := dataset.NewCSVExporter(roadmaps, store)
	datasets := dataset.NewOrchestrator(store, exporter, cfg.Dataset.ModelsDir, cfg.Dataset.ModelFiles)

	rc := cfg.Recommender
	rec := recommender.NewProcessRecommender(recommender.Config{
		Python:             rc.Python,
		Script:             rc.Script,
		PersonalizedScript: rc.PersonalizedScript,
		Timeout:            time.Duration(rc.TimeoutSec) * time.Second,
		ScratchDir:         rc.ScratchDir,
		Breaker: recommender.BreakerSettings{
			MaxRequests:  rc.Breaker.MaxRequests,
			Interval:     time.Duration(rc.Breaker.IntervalSec) * time.Second,
			Timeout:      time.Duration(rc.Breaker.TimeoutSec) * time.Second,
			MinRequests:  rc.Breaker.MinRequests,
			FailureRatio: rc.Breaker.FailureRatio,
		},
	}, recommender.ExecRunner{WaitDelay: 5 * time.Second})

	tutor := services.NewTutorService(roadmaps, profiles, datasets, rec, locker)
	analytics := services.NewAnalyticsService(roadmaps)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	handlers.RegisterRoutes(r, cfg, tutor, analytics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// start cron
	sched := scheduler.NewScheduler(cfg, datasets, locker, services.RefreshLockKey)
	sched.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Timeouts.RequestSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Timeouts.ResponseSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Timeouts.IdleSec) * time.Second,
	}

	go func() {
		serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("server starting", "address", serverAddr)
		logger.Info("swagger docs available", "url", fmt.Sprintf("http://%s/swagger/index.html", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(rc.TimeoutSec+10)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	sched.Wait()
	if db.Redis != nil {
		_ = db.Redis.Close()
	}
}
