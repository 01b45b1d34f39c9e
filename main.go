package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vcrr512-lgtm/SpecScan/internal/analysis"
	"github.com/vcrr512-lgtm/SpecScan/internal/auth"
	"github.com/vcrr512-lgtm/SpecScan/internal/config"
	"github.com/vcrr512-lgtm/SpecScan/internal/handlers"
	"github.com/vcrr512-lgtm/SpecScan/internal/inference"
	"github.com/vcrr512-lgtm/SpecScan/internal/logging"
	"github.com/vcrr512-lgtm/SpecScan/internal/repository"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if !cfg.InferenceConfigured() {
		logger.Warn("inference provider is not configured; analyze requests will be rejected",
			zap.Bool("api_key_set", cfg.InferenceAPIKey != ""),
			zap.Bool("model_id_set", cfg.InferenceModelID != ""))
	}

	client := inference.NewHTTPClient(cfg.InferenceEndpoint, cfg.InferenceAPIKey, cfg.InferenceModelID, cfg.InferenceTimeout, logger)
	if err := client.CheckEndpoint(); err != nil {
		logger.Warn("inference endpoint looks invalid", zap.Error(err), zap.String("endpoint", cfg.InferenceEndpoint))
	}

	var cache analysis.Cache
	if cfg.RedisAddr != "" {
		redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
		defer redisCancel()
		cache = analysis.NewRedisCache(initRedis(redisCtx, cfg.RedisAddr, logger))
	}

	var history analysis.HistoryRepository
	if cfg.DatabaseDSN != "" {
		repo := repository.NewAnalysisRepository(initDatabase(ctx, cfg.DatabaseDSN, logger))
		if err := repo.AutoMigrate(ctx); err != nil {
			logger.Fatal("auto migrate failed", zap.Error(err))
		}
		history = repo
	}

	pipeline := analysis.NewPipeline(client, cache, history, logger, cfg.WorkerCount, cfg.InferenceModelID)

	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	var authMiddleware gin.HandlerFunc
	if cfg.JWTSecret != "" {
		authMiddleware = auth.BearerAuth(cfg.JWTSecret, cfg.JWTAudience)
	}

	handlers.RegisterRoutes(r, cfg, pipeline, authMiddleware)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	logger.Info("defect detection relay listening", zap.String("addr", server.Addr))
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initDatabase(ctx context.Context, dsn string, zapLogger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
