package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bitfantasy/nimo-aps/internal/config"
	"github.com/bitfantasy/nimo-aps/internal/middleware"
	"github.com/bitfantasy/nimo-aps/internal/planning/entity"
	"github.com/bitfantasy/nimo-aps/internal/planning/handler"
	"github.com/bitfantasy/nimo-aps/internal/planning/repository"
	"github.com/bitfantasy/nimo-aps/internal/planning/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-aps service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 自动迁移计划模块表
	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate planning tables", zap.Error(err))
	}
	zapLogger.Info("Planning database migration completed")

	// 初始化 Redis
	rdb := initRedis(cfg.Redis)

	// 初始化 MinIO（未配置时跳过归档能力）
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("Failed to init MinIO client, archive disabled", zap.Error(err))
			minioClient = nil
		}
	}

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, minioClient, cfg.MinIO.Bucket, zapLogger)
	handlers := handler.NewHandlers(services, handler.PlanningDefaults{
		HorizonDays: cfg.Planning.DefaultHorizonDays,
		BucketDays:  cfg.Planning.DefaultBucketDays,
		LotSizing:   cfg.Planning.DefaultLotSizing,
	})

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func registerRoutes(router *gin.Engine, handlers *handler.Handlers, cfg *config.Config) {
	// 健康检查
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "nimo-aps"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "nimo-aps"})
	})

	// 版本信息
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "nimo-aps",
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 产品与库存
		products := v1.Group("/products")
		{
			products.GET("", handlers.Product.List)
			products.POST("", handlers.Product.Create)
			products.GET("/:id", handlers.Product.Get)
			products.PUT("/:id", handlers.Product.Update)
			products.POST("/:id/deactivate", handlers.Product.Deactivate)
			products.PUT("/:id/inventory", handlers.Product.SetInventory)
			products.GET("/:id/on-hand", handlers.Product.OnHand)
		}

		// BOM管理
		boms := v1.Group("/boms")
		{
			boms.POST("", handlers.BOM.Create)
			boms.GET("/:id", handlers.BOM.Get)
			boms.POST("/:id/versions", handlers.BOM.NewVersion)
			boms.POST("/:id/release", handlers.BOM.Release)
			boms.POST("/:id/obsolete", handlers.BOM.Obsolete)
			boms.POST("/:id/lines", handlers.BOM.AddLine)
			boms.PUT("/:id/lines/:lineId", handlers.BOM.UpdateLine)
			boms.DELETE("/:id/lines/:lineId", handlers.BOM.RemoveLine)
			boms.GET("/:id/explode", handlers.BOM.Explode)
			boms.GET("/:id/validate", handlers.BOM.Validate)
		}
		v1.GET("/products/:id/boms", handlers.BOM.ListVersions)
		v1.GET("/bom-effective/:productId", handlers.BOM.GetEffective)
		v1.GET("/where-used/:componentId", handlers.BOM.WhereUsed)

		// 工艺路线
		routings := v1.Group("/routings")
		{
			routings.POST("", handlers.Routing.Create)
			routings.GET("/:id", handlers.Routing.Get)
			routings.POST("/:id/versions", handlers.Routing.NewVersion)
			routings.POST("/:id/release", handlers.Routing.Release)
			routings.POST("/:id/obsolete", handlers.Routing.Obsolete)
			routings.POST("/:id/operations", handlers.Routing.AddOperation)
			routings.PUT("/:id/operations/:opId", handlers.Routing.UpdateOperation)
			routings.DELETE("/:id/operations/:opId", handlers.Routing.RemoveOperation)
			routings.GET("/:id/lead-time", handlers.Routing.LeadTime)
			routings.GET("/:id/cost", handlers.Routing.Cost)
		}
		v1.GET("/products/:id/routings", handlers.Routing.ListVersions)
		v1.GET("/routing-effective/:productId", handlers.Routing.GetEffective)

		// 工作中心
		workCenters := v1.Group("/work-centers")
		{
			workCenters.GET("", handlers.WorkCenter.List)
			workCenters.POST("", handlers.WorkCenter.Create)
			workCenters.GET("/:id", handlers.WorkCenter.Get)
			workCenters.PUT("/:id", handlers.WorkCenter.Update)
			workCenters.POST("/:id/deactivate", handlers.WorkCenter.Deactivate)
			workCenters.POST("/:id/closures", handlers.WorkCenter.AddClosure)
			workCenters.POST("/:id/overtimes", handlers.WorkCenter.AddOvertime)
			workCenters.GET("/:id/available-hours", handlers.WorkCenter.AvailableHours)

			// 产能负荷与调节
			workCenters.GET("/:id/load", handlers.Capacity.Load)
			workCenters.GET("/:id/suggestions", handlers.Capacity.Suggestions)
			workCenters.POST("/:id/auto-resolve", handlers.Capacity.AutoResolve)
		}
		v1.POST("/capacity/apply", handlers.Capacity.Apply)
		v1.POST("/capacity/validate", handlers.Capacity.Validate)

		// 需求与计划入库
		demands := v1.Group("/demands")
		{
			demands.POST("", handlers.Demand.Create)
			demands.DELETE("/:id", handlers.Demand.Delete)
			demands.POST("/import", handlers.Demand.ImportForecast)
		}
		v1.GET("/products/:id/demands", handlers.Demand.List)
		v1.POST("/receipts", handlers.Demand.AddReceipt)

		// MRP
		mrp := v1.Group("/mrp")
		{
			mrp.POST("/calculate", handlers.MRP.Calculate)
			mrp.POST("/runs", handlers.MRP.Run)
			mrp.GET("/runs", handlers.MRP.ListRuns)
			mrp.GET("/runs/:id", handlers.MRP.GetRun)
			mrp.GET("/runs/:id/result", handlers.MRP.GetRunResult)
			mrp.POST("/runs/:id/apply", handlers.MRP.Apply)
			mrp.GET("/runs/:id/export", handlers.MRP.Export)
			mrp.POST("/runs/:id/archive", handlers.MRP.Archive)
			mrp.GET("/pegging/:productId", handlers.MRP.Pegging)
			mrp.GET("/latest/:productId", handlers.MRP.Latest)
		}

		// 工单
		workOrders := v1.Group("/work-orders")
		{
			workOrders.GET("", handlers.WorkOrder.List)
			workOrders.POST("", handlers.WorkOrder.Create)
			workOrders.GET("/:id", handlers.WorkOrder.Get)
			workOrders.POST("/:id/release", handlers.WorkOrder.Release)
			workOrders.POST("/:id/start", handlers.WorkOrder.Start)
			workOrders.POST("/:id/hold", handlers.WorkOrder.Hold)
			workOrders.POST("/:id/resume", handlers.WorkOrder.Resume)
			workOrders.POST("/:id/cancel", handlers.WorkOrder.Cancel)
			workOrders.POST("/:id/close", handlers.WorkOrder.Close)
			workOrders.POST("/:id/report", handlers.WorkOrder.ReportCompletion)
			workOrders.POST("/:id/lines/:lineId/report", handlers.WorkOrder.ReportOperation)
			workOrders.POST("/:id/lines/:lineId/issue", handlers.WorkOrder.IssueMaterial)
			workOrders.PUT("/:id/quantity", handlers.WorkOrder.ChangeQuantity)
			workOrders.PUT("/:id/schedule", handlers.WorkOrder.Reschedule)
		}
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
