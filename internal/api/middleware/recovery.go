package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/storagehub/internal/logger"
	"github.com/myysophia/storagehub/internal/utils"
	"go.uber.org/zap"
)

// Recovery 错误恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("服务发生panic",
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("ip", c.ClientIP()),
				)

				utils.ResponseError(c, utils.CodeInternalError, nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
