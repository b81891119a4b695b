// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"fmt"
	"os"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/appvault/pkg/cache"
	"github.com/yeisme/appvault/pkg/configs"
	"github.com/yeisme/appvault/pkg/context"
	"github.com/yeisme/appvault/pkg/internal/jobs"
	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/storage"
	"github.com/yeisme/appvault/pkg/internal/worker"
	"github.com/yeisme/appvault/pkg/log"
	"github.com/yeisme/appvault/pkg/metrics"
	"github.com/yeisme/appvault/pkg/middleware"
	"github.com/yeisme/appvault/pkg/scheduler"
	"github.com/yeisme/appvault/pkg/tracing"
)

type App struct {
	Engine *gin.Engine
	config *configs.AppConfig
}

func NewApp(configPath string) *App {
	ctx := contextPkg.Background()
	engine := gin.New()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	// 初始化追踪
	config := configs.GetConfig()
	if err := tracing.InitTracer(config.Tracing); err != nil {
		fmt.Printf("Error initializing tracing: %v\n", err)
		os.Exit(1)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	baseCtx := context.WithStorageManager(ctx, manager)

	// 建表与部分唯一索引，启动时保证 schema 就绪
	if dbc := manager.GetDBClient(); dbc != nil && dbc.DB != nil {
		if err := model.Migrate(dbc.DB); err != nil {
			fmt.Printf("Error migrating database: %v\n", err)
			os.Exit(1)
		}
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	sched, err := scheduler.NewScheduler()
	if err != nil {
		fmt.Printf("Error initializing scheduler: %v\n", err)
		os.Exit(1)
	}

	if err := jobs.RegisterCronJobs(sched, manager); err != nil {
		fmt.Printf("Error registering cron jobs: %v\n", err)
		os.Exit(1)
	}

	sched.Start()

	// 后台分层迁移消费者，订阅写入产生的下沉请求
	go func() {
		if err := worker.NewMigrator(manager).Run(baseCtx); err != nil {
			l.Error().Err(err).Msg("content migrator stopped")
		}
	}()

	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.CircuitBreakerMiddleware(config.Breaker),
		middleware.RateLimitMiddleware(config.Limit),
		middleware.StorageMiddleware(manager),
		middleware.SchedulerMiddleware(sched),
	)

	if kvc := manager.GetKVClient(); kvc != nil {
		engine.Use(middleware.CacheMiddleware(middleware.DefaultCacheConfig(cache.NewCache(kvc))))
	}

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	return &App{
		Engine: engine,
		config: config,
	}
}

func (a *App) Run() error {
	return a.Engine.Run(fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port))
}
