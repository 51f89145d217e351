package handlers

import (
	"repairhub/internal/models"
	"repairhub/internal/services"
	"repairhub/pkg/logger"
	"repairhub/pkg/queue"
	"repairhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// UpdateSettingRequest 更新设置请求
type UpdateSettingRequest struct {
	Value string `json:"value" binding:"max=2000"`
}

type SettingsHandler struct {
	resolver   *services.ResolverService
	settings   *services.SettingsCache
	urlService *services.URLService
	notify     *queue.NotifyQueue // 可为nil
}

func NewSettingsHandler(resolver *services.ResolverService, settings *services.SettingsCache, urlService *services.URLService, notify *queue.NotifyQueue) *SettingsHandler {
	return &SettingsHandler{
		resolver:   resolver,
		settings:   settings,
		urlService: urlService,
		notify:     notify,
	}
}

// List 读取当前租户全部设置
func (h *SettingsHandler) List(c *gin.Context) {
	store, tenantID, ok := resolveTenantStore(c, h.resolver)
	if !ok {
		return
	}
	if store == nil {
		response.Forbidden(c, "无租户上下文")
		return
	}

	response.Success(c, h.settings.Get(tenantID, store))
}

// TaxRate 读取当前租户税率（带领域默认值的派生读取）
func (h *SettingsHandler) TaxRate(c *gin.Context) {
	store, tenantID, ok := resolveTenantStore(c, h.resolver)
	if !ok {
		return
	}
	if store == nil {
		response.Forbidden(c, "无租户上下文")
		return
	}

	response.Success(c, gin.H{"tax_rate": h.settings.TaxRate(tenantID, store)})
}

// Update 写入单个设置项并立即失效相关缓存
func (h *SettingsHandler) Update(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		response.BadRequest(c, "设置键不能为空")
		return
	}

	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	store, tenantID, ok := resolveTenantStore(c, h.resolver)
	if !ok {
		return
	}
	if store == nil {
		response.Forbidden(c, "无租户上下文")
		return
	}

	if err := h.settings.Set(tenantID, store, key, req.Value); err != nil {
		response.ServerError(c, "设置保存失败")
		return
	}

	// 基础URL相关缓存一并失效，后续读取立即观察到新值
	if key == models.SettingKeyBaseURL {
		h.urlService.InvalidateBaseURL(tenantID)
	}

	// 变更通知入队，失败不影响写入结果
	if h.notify != nil {
		if _, err := h.notify.Enqueue(tenantID, 0, "email", queue.TemplateSettingsChanged, map[string]interface{}{
			"key": key,
		}); err != nil {
			logger.GetLogger().Warnf("Failed to enqueue settings-changed notification: %v", err)
		}
	}

	response.SuccessWithMessage(c, "设置已保存", gin.H{"key": key, "value": req.Value})
}
