package handlers

import (
	"errors"
	"net/http"

	"github.com/Mizarx/Mizarx-Gateway/internal/ledger"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
	"github.com/Mizarx/Mizarx-Gateway/internal/selector"
	"github.com/gin-gonic/gin"
)

// UsageHandler 选择与记账 HTTP 处理器
// 真实补全调用由外部执行器完成，这里只提供决策和记账入口
type UsageHandler struct {
	selector *selector.Selector
	ledger   *ledger.Ledger
}

// NewUsageHandler 创建 UsageHandler 实例
func NewUsageHandler(sel *selector.Selector, l *ledger.Ledger) *UsageHandler {
	return &UsageHandler{selector: sel, ledger: l}
}

// SelectCandidates 产出故障转移候选列表
// 候选经脱敏 DTO 输出，存储的密钥（无论明文还是密文）绝不上线
func (h *UsageHandler) SelectCandidates(c *gin.Context) {
	constraints := selector.Constraints{
		Model: c.Query("model"),
	}

	selection, err := h.selector.SelectCandidates(constraints)
	if err != nil {
		if errors.Is(err, selector.ErrNoEligibleProvider) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "no eligible provider",
				"skipped": selection.Skipped,
			})
			return
		}
		internalError(c, "Selection failed")
		return
	}

	candidates := make([]*registry.ProviderResponse, 0, len(selection.Candidates))
	for _, p := range selection.Candidates {
		candidates = append(candidates, registry.ToProviderResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
		"skipped":    selection.Skipped,
	})
}

// RecordAttempt 记录一次调用尝试
func (h *UsageHandler) RecordAttempt(c *gin.Context) {
	var record models.UsageRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		badRequest(c, "Invalid usage record", err.Error())
		return
	}

	if record.ProviderID == 0 {
		badRequest(c, "provider_id is required", nil)
		return
	}

	if err := h.ledger.RecordAttempt(&record); err != nil {
		internalError(c, "Failed to record attempt")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request_id": record.RequestID})
}
