package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/storagehub/internal/logger"
	"go.uber.org/zap"
)

// Logger 日志中间件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		method := c.Request.Method
		ip := c.ClientIP()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", ip),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if requestID := c.GetString("requestID"); requestID != "" {
			fields = append(fields, zap.String("requestID", requestID))
		}
		if userID, exists := c.Get("userID"); exists {
			fields = append(fields, zap.Any("userID", userID))
		}

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				fields = append(fields, zap.String("error", e.Error()))
			}
			logger.Error("请求处理失败", fields...)
			return
		}

		switch {
		case status >= 500:
			logger.Error("服务器错误", fields...)
		case status >= 400:
			logger.Warn("客户端错误", fields...)
		default:
			logger.Info("请求处理成功", fields...)
		}
	}
}
