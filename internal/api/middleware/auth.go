package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/storagehub/internal/auth"
	"github.com/myysophia/storagehub/internal/config"
	"github.com/myysophia/storagehub/internal/logger"
	"github.com/myysophia/storagehub/internal/utils"
	"go.uber.org/zap"
)

// JWT 认证中间件
func JWT(jwtConfig *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ResponseError(c, utils.CodeUnauthorized, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ResponseError(c, utils.CodeUnauthorized, nil)
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(parts[1], jwtConfig)
		if err != nil {
			logger.Warn("解析令牌失败", zap.Error(err))
			utils.ResponseUnauthorized(c, err)
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)

		c.Next()
	}
}
