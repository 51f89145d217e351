package router

import (
	"time"

	"repairhub/internal/handlers"
	"repairhub/internal/middleware"
	"repairhub/internal/services"
	"repairhub/pkg/config"
	"repairhub/pkg/jwt"
	"repairhub/pkg/queue"
	"repairhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// Services 路由依赖的服务集合，由main装配
type Services struct {
	Users      *services.UserService
	Tenants    *services.TenantService
	Resolver   *services.ResolverService
	Settings   *services.SettingsCache
	URLService *services.URLService
	Notify     *queue.NotifyQueue // 可为nil
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, svcs *Services) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS(cfg))

	registerRoutes(router, svcs)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, svcs *Services) {

	auth := middleware.NewAuthMiddleware(svcs.Users, jwt.GetJWTManager())

	shortLinkHandler := handlers.NewShortLinkHandler(svcs.Resolver, svcs.URLService)

	// 匿名短链跳转（无任何租户上下文）
	router.GET("/s/:code", shortLinkHandler.Redirect)

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 短链管理
		shortLinks := api.Group("/short-links")
		{
			shortLinks.POST("", auth.RequireLogin(), shortLinkHandler.Create)
			shortLinks.GET("/:code", auth.RequireLogin(), shortLinkHandler.Resolve)
		}

		// 租户设置
		settingsHandler := handlers.NewSettingsHandler(svcs.Resolver, svcs.Settings, svcs.URLService, svcs.Notify)
		settings := api.Group("/settings")
		{
			settings.GET("", auth.RequireLogin(), settingsHandler.List)
			settings.GET("/tax-rate", auth.RequireLogin(), settingsHandler.TaxRate)
			settings.PUT("/:key", auth.RequireLogin(), settingsHandler.Update)
		}

		// 租户目录（仅平台管理员）
		tenantHandler := handlers.NewTenantHandler(svcs.Tenants)
		tenants := api.Group("/tenants")
		{
			tenants.GET("", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.List)
			tenants.GET("/stats", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.Stats)
			tenants.GET("/:id", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.GetByID)
		}
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "RepairHub",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
