package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kitchen-api/internal/api"
	"kitchen-api/internal/core/lock"
	"kitchen-api/internal/core/store"
	"kitchen-api/internal/infrastructure/config"
	"kitchen-api/internal/infrastructure/seed"
	"kitchen-api/internal/pkg/common"
	"kitchen-api/internal/pkg/metrics"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("database_url", config.MaskDSN(cfg.Database.DSN)),
		zap.String("lock_backend", cfg.Lock.Backend),
		zap.String("seed_file", cfg.Seed.File),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStore(ctx, cfg)
	if err != nil {
		cancel()
		common.LogFatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	var redisClient *redis.Client
	if cfg.Lock.Backend == config.LockRedis {
		redisClient, err = lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			cancel()
			common.LogFatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}
	locker, err := lock.New(cfg.Lock, redisClient)
	if err != nil {
		cancel()
		common.LogFatal("Failed to initialize lock", zap.Error(err))
	}

	if cfg.Seed.File != "" {
		f, err := seed.Load(cfg.Seed.File)
		if err == nil {
			err = seed.Apply(ctx, st, f)
		}
		if err != nil {
			cancel()
			common.LogFatal("Failed to load seed data", zap.Error(err))
		}
	}
	cancel()

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		Store:   st,
		Locker:  locker,
		Metrics: recorder,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// openStore 依設定選擇儲存後端
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return store.NewPostgresStore(ctx, cfg.Database)
	default:
		common.LogWarn("使用記憶體儲存，重啟後資料會遺失")
		return store.NewMemoryStore(), nil
	}
}
