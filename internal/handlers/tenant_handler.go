package handlers

import (
	"errors"
	"strconv"

	"repairhub/internal/services"
	"repairhub/pkg/pagination"
	"repairhub/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TenantHandler 租户目录视图（平台管理员，控制平面直查，跨租户不过滤）
type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(service *services.TenantService) *TenantHandler {
	return &TenantHandler{
		service: service,
	}
}

// List 租户列表（分页+过滤）
func (h *TenantHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	status := c.Query("status")
	keyword := c.Query("keyword")

	tenants, total, err := h.service.GetWithFiltersAndPage(status, keyword, params.Page, params.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.SuccessWithPage(c, tenants, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// GetByID 获取租户
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	tenant, err := h.service.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "租户不存在")
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, tenant)
}

// Stats 租户状态统计
func (h *TenantHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats()
	if err != nil {
		response.ServerError(c, "统计失败")
		return
	}

	response.Success(c, stats)
}
