package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/contestvote/internal/adapters/accesscode"
	"github.com/vncsmyrnk/contestvote/internal/adapters/auth/jwt"
	"github.com/vncsmyrnk/contestvote/internal/adapters/handler/http"
	"github.com/vncsmyrnk/contestvote/internal/adapters/metrics"
	"github.com/vncsmyrnk/contestvote/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/contestvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/contestvote/internal/config"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"github.com/vncsmyrnk/contestvote/internal/core/services"
	"github.com/vncsmyrnk/contestvote/internal/logger"
	"github.com/vncsmyrnk/contestvote/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		zlog.Fatal("failed to open storage", zap.Error(err))
	}
	defer closeRepo()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		zlog.Fatal("failed to register metrics", zap.Error(err))
	}

	contestSvc := services.NewContestService(repo, accesscode.NewRandomGenerator(cfg.AccessCodeLen), recorder, zlog)
	accessSvc := services.NewAccessService(repo, recorder, zlog)
	tallySvc := services.NewTallyService(repo, zlog)
	voteSvc := services.NewVoteService(repo, tallySvc, recorder, zlog)

	jobs, err := scheduler.NewManager(tallySvc, zlog)
	if err != nil {
		zlog.Fatal("failed to create scheduler", zap.Error(err))
	}
	if err := jobs.RegisterAudit(cfg.AuditInterval); err != nil {
		zlog.Fatal("failed to register audit job", zap.Error(err))
	}
	jobs.Start()
	defer jobs.Stop()

	handler := http.NewHandler(
		http.NewContestHandler(contestSvc, tallySvc, cfg.PublicURL, zlog),
		http.NewVoteHandler(accessSvc, voteSvc, zlog),
		jwt.NewVerifier([]byte(cfg.JWTSecret)),
		zlog,
		http.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
			Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		},
	)
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown failed", zap.Error(err))
	}
}

func openRepository(cfg *config.Config) (ports.ContestRepository, func(), error) {
	if cfg.Storage != config.StoragePostgres {
		return memory.NewContestRepository(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewContestRepository(db), func() { db.Close() }, nil
}
