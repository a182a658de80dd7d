package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes 在 r 上注册中继端点的全部路由。
func RegisterRoutes(r *gin.Engine, chat *ChatHandler) {
	r.GET("/healthz", Health)

	api := r.Group("/api")
	{
		api.POST("/chat", chat.Relay)
		api.GET("/chat/ws", chat.RelayWebSocket)
	}
}
