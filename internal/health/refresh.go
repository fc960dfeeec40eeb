package health

import (
	"context"

	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
)

// RefreshOutcome 整体刷新结论（三元，不是布尔）
type RefreshOutcome string

const (
	RefreshOK      RefreshOutcome = "ok"      // 全部供应商通过
	RefreshPartial RefreshOutcome = "partial" // 部分供应商失败
	RefreshFailed  RefreshOutcome = "failed"  // 全部供应商失败
)

// RefreshEntry 单个供应商的刷新结果
// 校验失败时 Violations 非空且不探测；否则携带探测结果
type RefreshEntry struct {
	ProviderID   uint     `json:"provider_id"`
	ProviderName string   `json:"provider_name"`
	Violations   []string `json:"violations,omitempty"`
	Probe        *Result  `json:"probe,omitempty"`
	OK           bool     `json:"ok"`
}

// RefreshReport 批量刷新报告
type RefreshReport struct {
	Outcome RefreshOutcome `json:"outcome"`
	Entries []RefreshEntry `json:"entries"`
}

// RefreshAll 对所有供应商做一次配置校验 + 健康探测
// 部分成功语义：每个供应商单独报告校验错误或探测结果，
// 整体结论区分全部成功 / 部分失败 / 全部失败
func (c *Checker) RefreshAll(ctx context.Context) (*RefreshReport, error) {
	providers, err := c.repo.FindAll(registry.ListFilter{})
	if err != nil {
		return nil, err
	}

	report := &RefreshReport{
		Entries: make([]RefreshEntry, 0, len(providers)),
	}

	okCount := 0
	for _, provider := range providers {
		entry := RefreshEntry{
			ProviderID:   provider.ID,
			ProviderName: provider.Name,
		}

		if violations := registry.ValidateProvider(provider); len(violations) > 0 {
			entry.Violations = violations
		} else {
			entry.Probe = c.CheckOne(ctx, provider)
			entry.OK = entry.Probe.Error == ""
		}

		if entry.OK {
			okCount++
		}
		report.Entries = append(report.Entries, entry)
	}

	switch {
	case len(report.Entries) == 0 || okCount == len(report.Entries):
		report.Outcome = RefreshOK
	case okCount == 0:
		report.Outcome = RefreshFailed
	default:
		report.Outcome = RefreshPartial
	}

	return report, nil
}
