package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/johannth/imdb-watchlist/internal/utils"
	log "github.com/sirupsen/logrus"
)

// Logger 请求日志中间件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// 处理请求
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"ip":      c.ClientIP(),
			"status":  status,
			"latency": time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("[HTTP]")
		case status >= 400:
			entry.Warn("[HTTP]")
		default:
			entry.Info("[HTTP]")
		}
	}
}

// Recovery panic 时记录日志并返回 500
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithField("path", c.Request.URL.Path).Errorf("[HTTP] panic: %v", recovered)
		utils.InternalServerError(c, "")
		c.Abort()
	})
}
