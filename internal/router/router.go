package router

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/johannth/imdb-watchlist/internal/handler"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// CORS 挂在引擎上，未匹配路由的 OPTIONS 预检也能得到应答
	r.Use(corsMiddleware(h))

	// 健康检查
	r.GET("/health", h.Health)

	// ==================== JSON API ====================
	api := r.Group("/api")
	{
		api.POST("/watchlist", h.Watchlist)
		api.GET("/bechdel", h.Bechdel)
		api.POST("/justwatch", h.JustWatch)
		api.GET("/netflix", h.Netflix)
		api.POST("/enrich", h.Enrich)
	}

	// ==================== WebSocket ====================
	r.GET("/ws", h.WebSocket)
}

func corsMiddleware(h *handler.Handler) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if h.Config == nil || slices.Contains(h.Config.CORSAllowOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = h.Config.CORSAllowOrigins
	}
	return cors.New(cfg)
}
