package ledger

import (
	"fmt"
	"log"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
	"github.com/google/uuid"
)

// Ledger 用量账本
// 准入控制（速率/预算）和调用记账的唯一入口
// 速率和预算是硬性闸门，与分析层的成本告警（纯建议）相互独立
type Ledger struct {
	repo      *Repository
	providers *registry.Repository
	limiter   *RateLimiter
	now       func() time.Time
}

// NewLedger 创建账本实例
func NewLedger(repo *Repository, providers *registry.Repository) *Ledger {
	return &Ledger{
		repo:      repo,
		providers: providers,
		limiter:   NewRateLimiter(),
		now:       time.Now,
	}
}

// NewLedgerWithClock 创建带注入时钟的账本（测试用）
func NewLedgerWithClock(repo *Repository, providers *registry.Repository, now func() time.Time) *Ledger {
	l := NewLedger(repo, providers)
	l.now = now
	l.limiter = NewRateLimiterWithClock(now)
	return l
}

// RecordAttempt 记录一次调用尝试（成功或失败）
// 追加用量记录并原子累加供应商生命周期统计
// 记录携带供应商名称/类型快照，供应商删除后历史依然完整
func (l *Ledger) RecordAttempt(record *models.UsageRecord) error {
	if record.RequestID == "" {
		record.RequestID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = l.now()
	}

	// 快照字段缺失时从注册表补齐
	if record.ProviderName == "" || record.ProviderType == "" {
		provider, err := l.providers.FindByID(record.ProviderID)
		if err == nil {
			record.ProviderName = provider.Name
			record.ProviderType = provider.Type
		}
	}

	if err := l.repo.Create(record); err != nil {
		return fmt.Errorf("写入用量记录失败: %w", err)
	}

	if err := l.providers.IncrementUsage(record.ProviderID, record.Cost); err != nil {
		// 记录已落库，累计统计失败只记日志
		log.Printf("⚠️ 累加供应商 %d 生命周期统计失败: %v", record.ProviderID, err)
	}

	return nil
}

// CheckRateLimit 速率准入检查
// 通过即占用一个本窗口配额；拒绝是常态结果，不是错误
func (l *Ledger) CheckRateLimit(provider *models.Provider) bool {
	return l.limiter.Allow(provider.ID, provider.MaxRequestsPerMinute)
}

// CheckBudget 预算准入检查
// 返回当日剩余预算（可为负）；<= 0 时供应商不应再被提供
func (l *Ledger) CheckBudget(provider *models.Provider, day time.Time) (float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	spent, err := l.repo.SumCost(provider.ID, start, end)
	if err != nil {
		return 0, fmt.Errorf("汇总当日成本失败: %w", err)
	}

	return provider.MaxCostPerDay - spent, nil
}

// Repo 暴露底层数据访问层（分析层只读聚合用）
func (l *Ledger) Repo() *Repository {
	return l.repo
}

// Now 账本当前时刻（与注入时钟一致）
func (l *Ledger) Now() time.Time {
	return l.now()
}
