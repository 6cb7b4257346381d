package app

import (
	"botforge_backend/docs"
	"botforge_backend/internal/config"
	"botforge_backend/internal/middleware"
	"botforge_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.Profile)

		// 会话标识
		authGroup.GET("/sessions/current", c.session.Current)
		authGroup.POST("/sessions/rotate", c.session.Rotate)

		// 会话记录（session / endpoint / sidebar）
		authGroup.GET("/conversations/:variant", c.conversation.List)
		authGroup.POST("/conversations/:variant", c.conversation.Append)

		// 机器人创建与对话
		authGroup.POST("/chatbots", c.chatbot.Create)
		authGroup.POST("/chatbots/chat", c.chatbot.Chat)

		// 历史聚合
		authGroup.GET("/history/sessions", c.history.Sessions)
		authGroup.GET("/history/bots", c.history.Bots)
		authGroup.GET("/history/transcript", c.history.Transcript)
	}
}
