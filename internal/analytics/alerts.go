package analytics

import (
	"fmt"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/ledger"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
)

// AlertSeverity 告警严重级别
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertScope 告警作用域
type AlertScope string

const (
	ScopeGlobal   AlertScope = "global"
	ScopeProvider AlertScope = "provider"
)

// CostAlert 成本告警（派生数据，不落库）
// 纯建议性质，与账本的预算硬闸门相互独立
type CostAlert struct {
	Severity   AlertSeverity `json:"severity"`
	Scope      AlertScope    `json:"scope"`
	ProviderID uint          `json:"provider_id,omitempty"`
	Message    string        `json:"message"`
	Threshold  float64       `json:"threshold"` // 美元
	Current    float64       `json:"current"`   // 美元
}

// AlertLimits 运维配置的告警阈值
// 未设置的限额不产生对应作用域的告警
type AlertLimits struct {
	UserID         string           `json:"user_id,omitempty"`
	DailyLimit     float64          `json:"daily_limit,omitempty"`
	MonthlyLimit   float64          `json:"monthly_limit,omitempty"`
	ProviderLimits map[uint]float64 `json:"provider_limits,omitempty"` // providerID -> 每日限额
}

// GetCostAlerts 对照阈值检查当日与当月开销
// 达到限额的 WarningRatio（默认 80%）产生 warning，达到或超过限额产生 critical
func (a *Aggregator) GetCostAlerts(limits AlertLimits) ([]CostAlert, error) {
	now := a.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var alerts []CostAlert

	if limits.DailyLimit > 0 {
		spent, err := a.usage.SumCostBy(ledger.RangeFilter{
			UserID: limits.UserID,
			Start:  dayStart,
			End:    dayStart.AddDate(0, 0, 1),
		})
		if err != nil {
			return nil, err
		}
		if alert := a.evaluate(spent, limits.DailyLimit, ScopeGlobal, 0, "今日"); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	if limits.MonthlyLimit > 0 {
		spent, err := a.usage.SumCostBy(ledger.RangeFilter{
			UserID: limits.UserID,
			Start:  monthStart,
			End:    monthStart.AddDate(0, 1, 0),
		})
		if err != nil {
			return nil, err
		}
		if alert := a.evaluate(spent, limits.MonthlyLimit, ScopeGlobal, 0, "本月"); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	for providerID, limit := range limits.ProviderLimits {
		if limit <= 0 {
			continue
		}
		spent, err := a.usage.SumCostBy(ledger.RangeFilter{
			UserID:     limits.UserID,
			ProviderID: providerID,
			Start:      dayStart,
			End:        dayStart.AddDate(0, 0, 1),
		})
		if err != nil {
			return nil, err
		}
		if alert := a.evaluate(spent, limit, ScopeProvider, providerID, "今日"); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	a.logAlerts(alerts)
	return alerts, nil
}

// logAlerts 告警落事件留痕，critical 记 error 级别
func (a *Aggregator) logAlerts(alerts []CostAlert) {
	if a.events == nil {
		return
	}
	for _, alert := range alerts {
		metadata := map[string]interface{}{
			"scope":     alert.Scope,
			"threshold": alert.Threshold,
			"current":   alert.Current,
		}
		if alert.Scope == ScopeProvider {
			metadata["provider_id"] = alert.ProviderID
		}
		if alert.Severity == SeverityCritical {
			_ = a.events.LogError(models.EventTypeCostAlert, alert.Message, metadata)
		} else {
			_ = a.events.LogWarning(models.EventTypeCostAlert, alert.Message, metadata)
		}
	}
}

// evaluate 对照单个阈值评估开销，未达预警线返回 nil
func (a *Aggregator) evaluate(spent, limit float64, scope AlertScope, providerID uint, period string) *CostAlert {
	alert := &CostAlert{
		Scope:      scope,
		ProviderID: providerID,
		Threshold:  limit,
		Current:    spent,
	}

	switch {
	case spent >= limit:
		alert.Severity = SeverityCritical
		alert.Message = fmt.Sprintf("%s开销 $%.2f 已超出限额 $%.2f", period, spent, limit)
	case spent >= limit*a.thresholds.AlertWarningRatio:
		alert.Severity = SeverityWarning
		alert.Message = fmt.Sprintf("%s开销 $%.2f 已达限额 $%.2f 的 %.0f%%",
			period, spent, limit, spent/limit*100)
	default:
		return nil
	}

	return alert
}
