package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repairhub/internal/database"
	"repairhub/internal/router"
	"repairhub/internal/services"
	"repairhub/pkg/config"
	"repairhub/pkg/logger"
	"repairhub/pkg/queue"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting RepairHub...")

	// 初始化控制平面数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize control plane database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close control plane database:", err)
		}
	}()

	// 执行控制平面迁移
	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate control plane: %v", err)
	}

	// 租户库连接注册表：全进程唯一，停机时统一断开
	registry := database.NewTenantRegistry(cfg.TenantStore.Dir)
	defer registry.DisconnectAll()

	// 通知队列（投递由外部Worker消费）
	notifyQueue := queue.NewNotifyQueue(&queue.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	defer func() {
		if notifyQueue == nil {
			return
		}
		if err := notifyQueue.Close(); err != nil {
			appLogger.Error("Failed to close notify queue:", err)
		}
	}()
	if err := notifyQueue.Ping(); err != nil {
		appLogger.Warnf("Notify queue unreachable, notifications disabled: %v", err)
		if closeErr := notifyQueue.Close(); closeErr != nil {
			appLogger.Error("Failed to close notify queue:", closeErr)
		}
		notifyQueue = nil
	}

	// 装配服务
	db := database.GetDB()
	userService := services.NewUserService(db)
	tenantService := services.NewTenantService(db)
	resolverService := services.NewResolverService(db, registry, notifyQueue)
	scannerService := services.NewScannerService(db, registry, cfg.TenantStore.ScanLimit)
	settingsCache := services.NewSettingsCache()
	urlService := services.NewURLService(db, registry, scannerService, settingsCache, cfg.BaseURL)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	r := router.SetupRouter(cfg, &router.Services{
		Users:      userService,
		Tenants:    tenantService,
		Resolver:   resolverService,
		Settings:   settingsCache,
		URLService: urlService,
		Notify:     notifyQueue,
	})

	// 每日租户库模式收敛巡检
	maintenance := cron.New()
	if _, err := maintenance.AddFunc("0 4 * * *", func() {
		ids, err := tenantService.ListActiveIDs(0)
		if err != nil {
			appLogger.Errorf("Schema sweep: list tenants failed: %v", err)
			return
		}
		for _, id := range ids {
			if err := registry.Converge(id); err != nil {
				appLogger.Warnf("Schema sweep: %v", err)
			}
		}
	}); err != nil {
		appLogger.Errorf("Failed to register schema sweep: %v", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
