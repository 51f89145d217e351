package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"repairhub/internal/services"
	"repairhub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CreateShortLinkRequest 创建短链请求
type CreateShortLinkRequest struct {
	URL string `json:"url" binding:"required,url,max=2000"`
}

type ShortLinkHandler struct {
	resolver   *services.ResolverService
	urlService *services.URLService
}

func NewShortLinkHandler(resolver *services.ResolverService, urlService *services.URLService) *ShortLinkHandler {
	return &ShortLinkHandler{
		resolver:   resolver,
		urlService: urlService,
	}
}

// Redirect 匿名短链跳转
// 访问者没有任何租户上下文，解析走有界跨租户扫描
func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	longURL, err := h.urlService.ResolveCode(0, code)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			response.NotFound(c, "短链不存在")
			return
		}
		response.ServerError(c, "短链解析失败")
		return
	}

	c.Redirect(http.StatusFound, longURL)
}

// Create 为当前租户创建短链
func (h *ShortLinkHandler) Create(c *gin.Context) {
	var req CreateShortLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 解析验证错误，提供更友好的提示
		if validationErr, ok := err.(validator.ValidationErrors); ok {
			errorMsg := "参数验证失败"
			for _, fieldErr := range validationErr {
				switch fieldErr.Field() {
				case "URL":
					errorMsg = "url必须是合法链接，且长度不超过2000"
				default:
					errorMsg = fmt.Sprintf("字段 %s 验证失败", fieldErr.Field())
				}
				break // 只返回第一个错误
			}
			response.BadRequest(c, errorMsg)
			return
		}
		response.BadRequest(c, "参数错误")
		return
	}

	store, tenantID, ok := resolveTenantStore(c, h.resolver)
	if !ok {
		return
	}
	if store == nil {
		response.Forbidden(c, "无租户上下文，无法创建短链")
		return
	}

	code, err := h.urlService.Shorten(tenantID, req.URL)
	if err != nil {
		response.ServerError(c, "短链创建失败")
		return
	}

	response.Success(c, gin.H{
		"code":      code,
		"short_url": fmt.Sprintf("%s/s/%s", h.urlService.BaseURL(tenantID), code),
	})
}

// Resolve 在当前租户内还原短链码
// 有租户上下文时只查本租户库，不做跨租户扫描
func (h *ShortLinkHandler) Resolve(c *gin.Context) {
	store, tenantID, ok := resolveTenantStore(c, h.resolver)
	if !ok {
		return
	}
	if store == nil {
		response.Forbidden(c, "无租户上下文")
		return
	}

	code := c.Param("code")
	longURL, err := h.urlService.ResolveCode(tenantID, code)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			response.NotFound(c, "短链不存在")
			return
		}
		response.ServerError(c, "短链解析失败")
		return
	}

	response.Success(c, gin.H{"code": code, "url": longURL})
}
