package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
	"github.com/gin-gonic/gin"
)

// ProviderHandler 供应商 HTTP 处理器
type ProviderHandler struct {
	service *registry.Service
}

// NewProviderHandler 创建 ProviderHandler 实例
func NewProviderHandler(service *registry.Service) *ProviderHandler {
	return &ProviderHandler{service: service}
}

// CreateProvider 创建供应商
func (h *ProviderHandler) CreateProvider(c *gin.Context) {
	var req registry.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request parameters", err.Error())
		return
	}

	provider, err := h.service.CreateProvider(req)
	if err != nil {
		writeRegistryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registry.ToProviderResponse(provider))
}

// GetProvider 获取单个供应商
func (h *ProviderHandler) GetProvider(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	provider, err := h.service.GetProvider(id)
	if err != nil {
		writeRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, registry.ToProviderResponse(provider))
}

// ListProviders 获取供应商列表
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	filter := registry.ListFilter{
		Type:        models.ProviderType(c.Query("type")),
		EnabledOnly: c.Query("enabled_only") == "true",
	}

	providers, err := h.service.ListProviders(filter)
	if err != nil {
		internalError(c, "Failed to list providers")
		return
	}

	responses := make([]*registry.ProviderResponse, 0, len(providers))
	for _, p := range providers {
		responses = append(responses, registry.ToProviderResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{"data": responses, "total": len(responses)})
}

// UpdateProvider 更新供应商
func (h *ProviderHandler) UpdateProvider(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req registry.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request parameters", err.Error())
		return
	}

	provider, err := h.service.UpdateProvider(id, req)
	if err != nil {
		writeRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, registry.ToProviderResponse(provider))
}

// ToggleProvider 启用/禁用供应商
func (h *ProviderHandler) ToggleProvider(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "enabled field is required", err.Error())
		return
	}

	if err := h.service.ToggleProvider(id, *req.Enabled); err != nil {
		writeRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "enabled": *req.Enabled})
}

// SetPriority 设置供应商优先级
func (h *ProviderHandler) SetPriority(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Priority *int `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "priority field is required", err.Error())
		return
	}

	if err := h.service.SetPriority(id, *req.Priority); err != nil {
		writeRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "priority": *req.Priority})
}

// DeleteProvider 删除供应商
func (h *ProviderHandler) DeleteProvider(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteProvider(id); err != nil {
		writeRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "provider deleted"})
}

// parseID 解析路径中的供应商 ID
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid provider ID", nil)
		return 0, false
	}
	return uint(id), true
}

// writeRegistryError 将注册表错误映射为 HTTP 响应
func writeRegistryError(c *gin.Context, err error) {
	var validationErr *registry.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, registry.ErrorResponse{
			Error: registry.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Provider config is invalid",
				Details: validationErr.Violations,
			},
		})
	case errors.Is(err, registry.ErrProviderNotFound):
		c.JSON(http.StatusNotFound, registry.ErrorResponse{
			Error: registry.ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Provider not found",
			},
		})
	case errors.Is(err, registry.ErrProviderNameExists):
		c.JSON(http.StatusConflict, registry.ErrorResponse{
			Error: registry.ErrorDetail{
				Code:    "NAME_CONFLICT",
				Message: "Provider name already exists",
			},
		})
	default:
		internalError(c, "Internal error")
	}
}

// badRequest 写入 400 响应
func badRequest(c *gin.Context, message string, details interface{}) {
	c.JSON(http.StatusBadRequest, registry.ErrorResponse{
		Error: registry.ErrorDetail{
			Code:    "BAD_REQUEST",
			Message: message,
			Details: details,
		},
	})
}

// internalError 写入 500 响应
func internalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, registry.ErrorResponse{
		Error: registry.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: message,
		},
	})
}
