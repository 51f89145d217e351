package middleware

import (
	"strings"

	"repairhub/internal/models"
	"repairhub/internal/services"
	"repairhub/pkg/jwt"
	"repairhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 权限中间件
// 会话由外部认证服务签发，这里只验证令牌并取出调用方身份
type AuthMiddleware struct {
	userService *services.UserService
	jwtManager  *jwt.JWTManager
}

func NewAuthMiddleware(userService *services.UserService, jwtManager *jwt.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// RequireLogin 要求携带有效令牌
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		// 检查Bearer格式
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "认证头格式错误")
			c.Abort()
			return
		}

		tokenString := authHeader[7:] // 去掉 "Bearer "

		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		// 获取用户信息
		user, err := m.userService.GetByID(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}

		// 检查用户状态
		if !m.userService.IsActive(user) {
			response.Forbidden(c, "用户未审核或已停用")
			c.Abort()
			return
		}

		// 将调用方身份保存到上下文
		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("role", user.Role)
		if user.HasTenant() {
			c.Set("tenant_id", *user.TenantID)
		} else {
			c.Set("tenant_id", uint(0))
		}

		c.Next()
	}
}

// RequirePlatformAdmin 要求平台管理员
func (m *AuthMiddleware) RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsPlatformAdmin() {
			response.Forbidden(c, "需要平台管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文取出当前用户，未登录返回nil
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// CurrentTenantID 从上下文取出当前租户ID，无租户上下文返回0
func CurrentTenantID(c *gin.Context) uint {
	value, exists := c.Get("tenant_id")
	if !exists {
		return 0
	}
	tenantID, ok := value.(uint)
	if !ok {
		return 0
	}
	return tenantID
}
