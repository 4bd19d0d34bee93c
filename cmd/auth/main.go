package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	myPostgresRepo "github.com/Miraines/AquaTrack/auth-service/internal/adapters/db/postgres"
	myRedisRepo "github.com/Miraines/AquaTrack/auth-service/internal/adapters/db/redis"
	myHttp "github.com/Miraines/AquaTrack/auth-service/internal/adapters/transport/http"
	"github.com/Miraines/AquaTrack/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/AquaTrack/auth-service/internal/app/auth/google"
	"github.com/Miraines/AquaTrack/auth-service/internal/app/auth/jwt"
	"github.com/Miraines/AquaTrack/auth-service/internal/app/auth/password"
	"github.com/Miraines/AquaTrack/auth-service/internal/app/auth/purge"
	appsvc "github.com/Miraines/AquaTrack/auth-service/internal/app/auth/service"
	usersvc "github.com/Miraines/AquaTrack/auth-service/internal/app/user/service"
	repo "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/repo"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/config"
	lg "github.com/Miraines/AquaTrack/auth-service/internal/infra/log"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/metrics"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/migrate"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/server"
	"golang.org/x/sync/errgroup"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger level lives in config, so fall back to a default logger
		lg.Must("").Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(cfg.LogLevel)
	defer zapLog.Sync()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLog.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := migrate.Up(sqlDB); err != nil {
		zapLog.Fatal("run migrations", zap.Error(err))
	}

	checks := map[string]myHttp.HealthCheck{"postgres": sqlDB.PingContext}

	var sessionRepo repo.SessionRepo
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()
		sessionRepo = myRedisRepo.NewRedisSessionRepo(redisCli)
		checks["redis"] = func(ctx context.Context) error { return redisCli.Ping(ctx).Err() }
	default:
		sessionRepo = myPostgresRepo.NewPostgresSessionRepo(db)
	}
	zapLog.Info("session store selected", zap.String("store", cfg.SessionStore))

	userRepo := myPostgresRepo.NewPostgresUserRepo(db)
	jwtUtil, err := jwt.NewJWTUtil(cfg)
	if err != nil {
		zapLog.Fatal("failed to init JWT util", zap.Error(err))
	}

	rootCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	validate := dto.NewValidator()
	googleVerifier := google.New(rootCtx, cfg, zapLog.Named("google"))
	authService := appsvc.New(
		userRepo, sessionRepo, jwtUtil, password.New(cfg), googleVerifier,
		cfg, validate, zapLog.Named("auth"),
	)
	userService := usersvc.New(userRepo, validate, zapLog.Named("users"))

	handler := myHttp.NewHandler(authService, userService, cfg, metrics.New(), zapLog, checks)
	router := myHttp.NewRouter(handler)

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		return server.StartHTTPServer(ctx, cfg.HTTPAddress, router, zapLog)
	})
	g.Go(func() error {
		return purge.Run(ctx, sessionRepo, cfg.SessionPurgeInterval, zapLog.Named("purge"))
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("shutdown complete")
}
