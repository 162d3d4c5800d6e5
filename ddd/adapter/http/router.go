package http

import (
	"github.com/gin-gonic/gin"

	"audio-convert-service/ddd/application/app"
	"audio-convert-service/pkg/config"
	"audio-convert-service/pkg/middleware"
)

// Router 路由配置
type Router struct {
	convertApp app.ConvertApp
	cfg        *config.Config
	limiter    *middleware.RateLimiter
}

// NewRouter 创建路由配置
func NewRouter(convertApp app.ConvertApp, cfg *config.Config, limiter *middleware.RateLimiter) *Router {
	return &Router{
		convertApp: convertApp,
		cfg:        cfg,
		limiter:    limiter,
	}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes(engine *gin.Engine) {
	convertController := NewConvertController(r.convertApp)

	// API v1 路由组
	v1 := engine.Group("/api/v1")
	{
		conversions := v1.Group("/conversions")
		{
			conversions.POST("", convertController.SubmitConversion)          // 提交转换任务
			conversions.GET("/:job_id", convertController.GetConversion)      // 查询任务状态
			conversions.GET("/:job_id/file", convertController.DownloadOutput) // 下载转换产物
		}

		metadata := v1.Group("/metadata")
		{
			metadata.POST("/preview", convertController.PreviewMetadata) // 元数据预览
		}

		// 管理端路由，JWT鉴权
		admin := v1.Group("/admin", middleware.AdminAuthMiddleware(&r.cfg.JWT))
		{
			admin.GET("/conversions", convertController.ListConversions) // 按状态列出任务
		}
	}

	// 健康检查路由
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "audio-convert-service",
			"version": "1.0.0",
		})
	})
}

// SetupMiddleware 设置中间件
func (r *Router) SetupMiddleware(engine *gin.Engine) {
	// CORS中间件
	engine.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	engine.Use(middleware.RequestContextMiddleware())

	if r.limiter != nil {
		engine.Use(middleware.RateLimitMiddleware(r.limiter))
	}

	// 请求日志中间件
	engine.Use(gin.Logger())

	// 恢复中间件
	engine.Use(gin.Recovery())
}
