package handlers

import (
	"errors"

	"repairhub/internal/middleware"
	"repairhub/internal/services"
	"repairhub/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// resolveTenantStore 解析当前调用方的租户库
// 返回的租户ID以解析结果为准（懒开通会在这里回写用户归属）
// ok为false时响应已写出；store为nil表示平台管理员无租户上下文
func resolveTenantStore(c *gin.Context, resolver *services.ResolverService) (store *gorm.DB, tenantID uint, ok bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "请先登录")
		return nil, 0, false
	}

	store, err := resolver.ResolveUser(user)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccessDenied):
			response.Forbidden(c, "无访问资格")
		case errors.Is(err, services.ErrProvisioning):
			response.ServerError(c, "租户开通失败，请稍后重试")
		default:
			response.ServerError(c, "租户解析失败")
		}
		return nil, 0, false
	}

	if user.HasTenant() {
		tenantID = *user.TenantID
	}
	return store, tenantID, true
}
