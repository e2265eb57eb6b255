package api

import (
	"context"
	"time"

	"kitchen-api/internal/api/handlers"
	"kitchen-api/internal/api/handlers/health"
	inventoryHandler "kitchen-api/internal/api/handlers/inventory"
	recipeHandler "kitchen-api/internal/api/handlers/recipe"
	shoppingHandler "kitchen-api/internal/api/handlers/shopping"
	"kitchen-api/internal/api/middleware"
	"kitchen-api/internal/core/cook"
	"kitchen-api/internal/core/inventory"
	"kitchen-api/internal/core/lock"
	recipeService "kitchen-api/internal/core/recipe"
	"kitchen-api/internal/core/shopping"
	"kitchen-api/internal/core/store"
	"kitchen-api/internal/infrastructure/config"
	"kitchen-api/internal/pkg/common"
	"kitchen-api/internal/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的外部依賴
type Dependencies struct {
	Store   store.Store
	Locker  lock.Locker
	Metrics *metrics.Recorder // 可為 nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("lock_backend", cfg.Lock.Backend),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger(deps.Metrics))

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.HouseholdHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(requestTimeout(cfg.Server.RequestTimeout))

	// 初始化服務
	recipeSvc := recipeService.NewService(deps.Store)
	cookSvc := cook.NewService(deps.Store, deps.Locker, deps.Metrics)
	shoppingSvc := shopping.NewService(deps.Store, deps.Locker, deps.Metrics)
	inventorySvc := inventory.NewService(deps.Store)

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, deps.Store)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	// API 路由組
	api := router.Group("/api/v1")
	api.Use(middleware.Household())
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)

	recipeHandler.NewHandler(recipeSvc, cookSvc, shoppingSvc).Register(api.Group("/recipes"), dedup.Middleware())
	shoppingHandler.NewHandler(shoppingSvc).Register(api.Group("/shopping-list"))
	inventoryHandler.NewHandler(inventorySvc).Register(api.Group("/inventory"))

	router.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, common.WithMessage(common.ErrNotFound, "route not found"))
	})

	common.LogInfo("Router setup completed successfully",
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	return router
}

// requestTimeout 為每個請求設置逾時
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			handlers.RespondError(c, common.ErrGatewayTimeout)
		}
	}
}
