package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"spensagi/portal/internal/attendance"
	"spensagi/portal/internal/config"
	"spensagi/portal/internal/db"
	portalgrpc "spensagi/portal/internal/grpc"
	internalhttp "spensagi/portal/internal/http"
	"spensagi/portal/internal/jobs"
	"spensagi/portal/internal/logging"
	"spensagi/portal/internal/observability"
	"spensagi/portal/internal/repository"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()

	if cfg.MigrateOnRun {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	store := repository.NewStore(pool)

	var codes attendance.CodeStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		codes = attendance.NewRedisCodes(redisClient)
	} else {
		logger.Info("REDIS_ADDR not set: attendance check-in disabled")
	}

	server := internalhttp.NewServer(cfg, store, codes, logger.Named("http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer, err := portalgrpc.NewServer(portalgrpc.Options{
		ServiceToken: cfg.ServiceAuthToken,
		PublicHealth: true,
	}, logger.Named("grpc"))
	if err != nil {
		logger.Fatal("grpc server init failed", zap.Error(err))
	}

	jobs.StartSessionSweepJob(ctx, cfg, store, logger.Named("jobs"))

	go func() {
		logger.Info("portal http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("grpc listen error", zap.Error(err))
		}
		logger.Info("portal grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(listener); err != nil {
			logger.Fatal("grpc server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthServer.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()
}
