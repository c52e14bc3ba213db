package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/premium_bot/internal/pkg/jwt"
	"github.com/qs3c/premium_bot/internal/pkg/response"
)

const (
	AdminIDKey   = "adminID"
	AdminNameKey = "adminName"
)

// TokenValidator 校验管理员 token（签名、过期、白名单）
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// Auth JWT 认证中间件
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, response.CodeAuthFailed, "请提供认证信息")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.Abort(c, response.CodeAuthFailed, "认证格式错误")
			return
		}

		claims, err := validator.ValidateToken(tokenString)
		if err != nil {
			response.Abort(c, response.CodeAuthFailed, "认证失败或已过期")
			return
		}

		c.Set(AdminIDKey, claims.AdminID)
		c.Set(AdminNameKey, claims.Username)
		c.Next()
	}
}

// GetAdminID 从上下文获取管理员 Discord ID
func GetAdminID(c *gin.Context) (string, bool) {
	adminID, exists := c.Get(AdminIDKey)
	if !exists {
		return "", false
	}
	id, ok := adminID.(string)
	return id, ok && id != ""
}
