package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/analytics"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 用量分析 HTTP 处理器
type AnalyticsHandler struct {
	aggregator    *analytics.Aggregator
	defaultLimits analytics.AlertLimits // 请求未携带限额时使用的全局配置
}

// NewAnalyticsHandler 创建 AnalyticsHandler 实例
func NewAnalyticsHandler(aggregator *analytics.Aggregator, defaultLimits analytics.AlertLimits) *AnalyticsHandler {
	return &AnalyticsHandler{aggregator: aggregator, defaultLimits: defaultLimits}
}

// GetAnalytics 聚合查询
// start/end 采用 RFC3339 或 2006-01-02 格式，缺省为最近 7 天
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)

	if s := c.Query("start"); s != "" {
		parsed, err := parseTime(s)
		if err != nil {
			badRequest(c, "Invalid start time", s)
			return
		}
		start = parsed
	}
	if e := c.Query("end"); e != "" {
		parsed, err := parseTime(e)
		if err != nil {
			badRequest(c, "Invalid end time", e)
			return
		}
		end = parsed
	}

	filter := analytics.Filter{
		UserID: c.Query("user_id"),
		Start:  start,
		End:    end,
	}
	if pid := c.Query("provider_id"); pid != "" {
		id, err := strconv.ParseUint(pid, 10, 32)
		if err != nil {
			badRequest(c, "Invalid provider_id", pid)
			return
		}
		filter.ProviderID = uint(id)
	}

	report, err := h.aggregator.GetAnalytics(filter)
	if err != nil {
		internalError(c, "Aggregation failed")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetCostAlerts 成本告警查询
// 请求体省略时采用启动配置的全局限额
func (h *AnalyticsHandler) GetCostAlerts(c *gin.Context) {
	limits := h.defaultLimits
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&limits); err != nil {
			badRequest(c, "Invalid alert limits", err.Error())
			return
		}
	}

	alerts, err := h.aggregator.GetCostAlerts(limits)
	if err != nil {
		internalError(c, "Alert evaluation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts, "total": len(alerts)})
}

// GetRecommendations 优化建议查询
func (h *AnalyticsHandler) GetRecommendations(c *gin.Context) {
	limits := h.defaultLimits
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&limits); err != nil {
			badRequest(c, "Invalid alert limits", err.Error())
			return
		}
	}

	recs, err := h.aggregator.GetRecommendations(limits)
	if err != nil {
		internalError(c, "Recommendation evaluation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": recs, "total": len(recs)})
}

// parseTime 解析时间参数
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
