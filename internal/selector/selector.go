package selector

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/Mizarx/Mizarx-Gateway/internal/events"
	"github.com/Mizarx/Mizarx-Gateway/internal/ledger"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
)

var (
	// ErrNoEligibleProvider 没有任何可用供应商
	// 显式结论，不是伪装成供应商的异常
	ErrNoEligibleProvider = errors.New("no eligible provider")
)

// SkipReason 供应商被排除的原因
type SkipReason string

const (
	SkipUnhealthy         SkipReason = "unhealthy"
	SkipDisabled          SkipReason = "disabled"
	SkipMaintenance       SkipReason = "maintenance"
	SkipRateLimited       SkipReason = "rate_limited"
	SkipBudgetExhausted   SkipReason = "budget_exhausted"
	SkipBudgetCheckFailed SkipReason = "budget_check_failed"
	SkipModelMismatch     SkipReason = "model_mismatch"
)

// Skip 被排除供应商的诊断信息
type Skip struct {
	ProviderID   uint       `json:"provider_id"`
	ProviderName string     `json:"provider_name"`
	Reason       SkipReason `json:"reason"`
}

// Constraints 选择约束
type Constraints struct {
	Model string // 非空时只保留支持该模型的供应商
}

// Selection 一次选择的完整结果
// Candidates 按故障转移顺序排列：调用方依次尝试，
// 每个供应商先按自身 RetryAttempts 重试，耗尽后转移到下一个
type Selection struct {
	Candidates []*models.Provider `json:"candidates"`
	Skipped    []Skip             `json:"skipped"`
}

// Selector 供应商选择器
// 综合注册表配置、缓存健康状态和账本准入状态，产出确定有序的候选列表
type Selector struct {
	providers *registry.Repository
	ledger    *ledger.Ledger
	events    *events.Service // 可为 nil
}

// NewSelector 创建选择器
func NewSelector(providers *registry.Repository, usageLedger *ledger.Ledger, eventLog *events.Service) *Selector {
	return &Selector{
		providers: providers,
		ledger:    usageLedger,
		events:    eventLog,
	}
}

// SelectCandidates 产出故障转移候选列表
// 流程：启用过滤 → 健康过滤（unknown 乐观放行）→ 速率/预算准入 →
// 按优先级升序、ID 升序排序
// 候选为空时返回 ErrNoEligibleProvider，Skipped 仍然有效
func (s *Selector) SelectCandidates(constraints Constraints) (*Selection, error) {
	enabled, err := s.providers.FindAll(registry.ListFilter{EnabledOnly: true})
	if err != nil {
		return nil, err
	}

	selection := &Selection{}

	for _, provider := range enabled {
		if reason, ok := s.eligible(provider, constraints); !ok {
			selection.Skipped = append(selection.Skipped, Skip{
				ProviderID:   provider.ID,
				ProviderName: provider.Name,
				Reason:       reason,
			})
			continue
		}
		selection.Candidates = append(selection.Candidates, provider)
	}

	// 优先级升序，ID 升序兜底，保证顺序确定
	sort.Slice(selection.Candidates, func(i, j int) bool {
		a, b := selection.Candidates[i], selection.Candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	// 有供应商被绕过说明发生了故障转移，落一条事件留痕
	if len(selection.Skipped) > 0 && s.events != nil {
		_ = s.events.LogWarning(models.EventTypeFailover,
			fmt.Sprintf("选择时跳过 %d 个供应商", len(selection.Skipped)),
			map[string]interface{}{"skipped": selection.Skipped})
	}

	if len(selection.Candidates) == 0 {
		return selection, ErrNoEligibleProvider
	}

	return selection, nil
}

// eligible 单个供应商的资格判定
func (s *Selector) eligible(provider *models.Provider, constraints Constraints) (SkipReason, bool) {
	switch provider.HealthStatus {
	case models.HealthStatusUnhealthy:
		return SkipUnhealthy, false
	case models.HealthStatusDisabled:
		return SkipDisabled, false
	case models.HealthStatusMaintenance:
		return SkipMaintenance, false
	}

	if constraints.Model != "" && !supportsModel(provider, constraints.Model) {
		return SkipModelMismatch, false
	}

	if !s.ledger.CheckRateLimit(provider) {
		return SkipRateLimited, false
	}

	remaining, err := s.ledger.CheckBudget(provider, s.ledger.Now())
	if err != nil {
		// 预算查不出来 ≠ 预算耗尽：保守跳过，但在诊断里如实标注
		log.Printf("⚠️ 供应商 %s 预算检查失败: %v", provider.Name, err)
		return SkipBudgetCheckFailed, false
	}
	if remaining <= 0 {
		return SkipBudgetExhausted, false
	}

	return "", true
}

// supportsModel 供应商是否支持指定模型
func supportsModel(provider *models.Provider, model string) bool {
	for _, m := range provider.ModelList() {
		if m == model {
			return true
		}
	}
	return false
}
