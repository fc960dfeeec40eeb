package analytics

import (
	"fmt"
	"sort"
	"time"
)

// Thresholds 分析层可调参数
// 集中在聚合器边缘，避免散落在建议逻辑里的魔法数字
type Thresholds struct {
	AlertWarningRatio  float64 // 达到限额的该比例产生 warning，默认 0.80
	CostDominanceShare float64 // 单供应商成本占比超过该值给出分散建议，默认 0.60
	MinSuccessRate     float64 // 成功率低于该值给出排查建议，默认 0.95
	WeekCostJumpRatio  float64 // 周环比成本涨幅超过该值给出告警建议，默认 0.50
	MaxCostPerToken    float64 // 单 token 成本超过该值给出换模型建议，默认 0.0002
}

// DefaultThresholds 默认分析参数
func DefaultThresholds() Thresholds {
	return Thresholds{
		AlertWarningRatio:  0.80,
		CostDominanceShare: 0.60,
		MinSuccessRate:     0.95,
		WeekCostJumpRatio:  0.50,
		MaxCostPerToken:    0.0002,
	}
}

// 建议优先级（越大越靠前）
const (
	priorityCritical   = 100
	priorityHigh       = 80
	priorityMedium     = 60
	priorityLow        = 40
	maxRecommendations = 5
)

// Recommendation 优化建议（尽力而为，纯建议性质）
type Recommendation struct {
	Priority int    `json:"priority"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
}

// GetRecommendations 基于最近 14 天用量产出优化建议
// 按优先级降序，最多 5 条
func (a *Aggregator) GetRecommendations(limits AlertLimits) ([]Recommendation, error) {
	now := a.now()
	report, err := a.GetAnalytics(Filter{
		Start: now.AddDate(0, 0, -14),
		End:   now,
	})
	if err != nil {
		return nil, err
	}

	alerts, err := a.GetCostAlerts(limits)
	if err != nil {
		return nil, err
	}

	var recs []Recommendation

	// critical 告警直通为最高优先级建议
	for _, alert := range alerts {
		if alert.Severity == SeverityCritical {
			recs = append(recs, Recommendation{
				Priority: priorityCritical,
				Title:    "成本超限",
				Detail:   alert.Message,
			})
		}
	}

	// 单供应商成本占比过高
	if report.TotalCost > 0 {
		for name, entry := range report.ProviderBreakdown {
			share := entry.Cost / report.TotalCost
			if share > a.thresholds.CostDominanceShare {
				recs = append(recs, Recommendation{
					Priority: priorityHigh,
					Title:    "成本集中于单一供应商",
					Detail: fmt.Sprintf("供应商 %s 占了最近 14 天成本的 %.0f%%，考虑调整优先级分散流量",
						name, share*100),
				})
			}
		}
	}

	// 成功率偏低
	if report.TotalRequests > 0 {
		successRate := float64(report.SuccessfulRequests) / float64(report.TotalRequests)
		if successRate < a.thresholds.MinSuccessRate {
			recs = append(recs, Recommendation{
				Priority: priorityHigh,
				Title:    "成功率偏低",
				Detail: fmt.Sprintf("最近 14 天成功率 %.1f%%，低于 %.0f%%，检查供应商健康状态和超时配置",
					successRate*100, a.thresholds.MinSuccessRate*100),
			})
		}
	}

	// 周环比成本跳涨
	if jump, ok := a.weekOverWeekJump(now); ok && jump > a.thresholds.WeekCostJumpRatio {
		recs = append(recs, Recommendation{
			Priority: priorityMedium,
			Title:    "周成本跳涨",
			Detail:   fmt.Sprintf("本周成本环比上涨 %.0f%%，核对是否符合预期", jump*100),
		})
	}

	// 单 token 成本过高
	if report.TotalTokens > 0 {
		costPerToken := report.TotalCost / float64(report.TotalTokens)
		if costPerToken > a.thresholds.MaxCostPerToken {
			recs = append(recs, Recommendation{
				Priority: priorityLow,
				Title:    "单 token 成本偏高",
				Detail: fmt.Sprintf("最近 14 天平均每 token 成本 $%.6f，考虑把低价值流量切到更便宜的模型",
					costPerToken),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority > recs[j].Priority
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}

	return recs, nil
}

// weekOverWeekJump 计算本周与上一周的成本涨幅
// 上一周无开销时无法计算，返回 ok=false
func (a *Aggregator) weekOverWeekJump(now time.Time) (float64, bool) {
	thisWeekStart := now.AddDate(0, 0, -7)
	lastWeekStart := now.AddDate(0, 0, -14)

	thisWeek, err := a.usage.SumCost(0, thisWeekStart, now)
	if err != nil {
		return 0, false
	}
	lastWeek, err := a.usage.SumCost(0, lastWeekStart, thisWeekStart)
	if err != nil || lastWeek == 0 {
		return 0, false
	}

	return (thisWeek - lastWeek) / lastWeek, true
}
