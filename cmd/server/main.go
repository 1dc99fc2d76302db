// Package main runs the campus events HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campus-events/backend/config"
	"github.com/campus-events/backend/internal/auth"
	"github.com/campus-events/backend/internal/comments"
	"github.com/campus-events/backend/internal/events"
	"github.com/campus-events/backend/internal/participants"
	"github.com/campus-events/backend/internal/router"
	"github.com/campus-events/backend/internal/rsos"
	"github.com/campus-events/backend/internal/universities"
	"github.com/campus-events/backend/internal/users"
	"github.com/campus-events/backend/pkg/database"
	"github.com/campus-events/backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger config comes from cfg, so fall back to a default one.
		newLogger(config.LogConfig{Level: "info"}).Fatal("load config", zap.Error(err))
	}

	logger := newLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	var revoked auth.RevocationStore
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		revoked = auth.NewRedisRevocationStore(rdb.Client)
	} else {
		logger.Warn("REDIS_ADDR not set, session revocation is kept in memory")
		revoked = auth.NewMemoryRevocationStore()
	}

	userRepo := users.NewRepository(pool)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expire())
	sessions := auth.NewSessions(jwtService, revoked, userRepo)

	eventService := events.NewService(
		events.NewStore(pool, cfg.Events.RequireApproval),
		cfg.Events.RequireApproval,
		logger,
	)

	gin.SetMode(cfg.Server.Mode)
	engine := router.New(router.Options{
		Logger:         logger,
		Sessions:       sessions,
		AllowedOrigins: cfg.Server.AllowedOrigins(),
	}, router.Handlers{
		Auth:         auth.NewHandler(auth.NewService(pool, cfg.Auth.BcryptCost, logger), sessions, logger),
		Users:        users.NewHandler(userRepo, cfg.Auth.BcryptCost, logger),
		Universities: universities.NewHandler(universities.NewRepository(pool)),
		RSOs:         rsos.NewHandler(rsos.NewRepository(pool), rsos.NewManager(pool, logger), logger),
		Events:       events.NewHandler(eventService),
		Comments:     comments.NewHandler(comments.NewRepository(pool), eventService, logger),
		Participants: participants.NewHandler(participants.NewRepository(pool), eventService),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.Bool("require_approval", cfg.Events.RequireApproval),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg config.LogConfig) *zap.Logger {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zc.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
