package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mizarx/Mizarx-Gateway/internal/health"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
	"github.com/gin-gonic/gin"
)

// HealthHandler 健康检查 HTTP 处理器
type HealthHandler struct {
	checker *health.Checker
	repo    *registry.Repository
}

// NewHealthHandler 创建 HealthHandler 实例
func NewHealthHandler(checker *health.Checker, repo *registry.Repository) *HealthHandler {
	return &HealthHandler{checker: checker, repo: repo}
}

// CheckOne 按需探测单个供应商
func (h *HealthHandler) CheckOne(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid provider ID", nil)
		return
	}

	result, err := h.checker.CheckOneByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, registry.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, registry.ErrorResponse{
				Error: registry.ErrorDetail{Code: "NOT_FOUND", Message: "Provider not found"},
			})
			return
		}
		internalError(c, "Health check failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// CheckAll 按需并发探测所有供应商
func (h *HealthHandler) CheckAll(c *gin.Context) {
	providers, err := h.repo.FindAll(registry.ListFilter{})
	if err != nil {
		internalError(c, "Failed to list providers")
		return
	}

	results := h.checker.CheckMany(c.Request.Context(), providers)
	c.JSON(http.StatusOK, gin.H{"data": results, "total": len(results)})
}

// GetStatus 读取缓存的健康状态
func (h *HealthHandler) GetStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid provider ID", nil)
		return
	}

	status, err := h.checker.GetHealthStatus(uint(id))
	if err != nil {
		if errors.Is(err, registry.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, registry.ErrorResponse{
				Error: registry.ErrorDetail{Code: "NOT_FOUND", Message: "Provider not found"},
			})
			return
		}
		internalError(c, "Failed to read health status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider_id": uint(id),
		"status":      status,
		"history":     h.checker.RecentResults(uint(id)),
	})
}

// RefreshAll 批量校验 + 探测所有供应商（部分成功语义）
func (h *HealthHandler) RefreshAll(c *gin.Context) {
	report, err := h.checker.RefreshAll(c.Request.Context())
	if err != nil {
		internalError(c, "Bulk refresh failed")
		return
	}

	statusCode := http.StatusOK
	if report.Outcome == health.RefreshPartial {
		statusCode = http.StatusMultiStatus
	} else if report.Outcome == health.RefreshFailed {
		statusCode = http.StatusBadGateway
	}

	c.JSON(statusCode, report)
}
