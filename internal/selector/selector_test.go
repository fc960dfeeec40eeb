package selector

import (
	"testing"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/events"
	"github.com/Mizarx/Mizarx-Gateway/internal/ledger"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
	"github.com/Mizarx/Mizarx-Gateway/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	selector *Selector
	registry *registry.Service
	repo     *registry.Repository
	ledger   *ledger.Ledger
	events   *events.Service
	db       *gorm.DB
}

// setupSelector 创建带内存数据库的测试选择器
func setupSelector(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Provider{}, &models.UsageRecord{}, &models.SystemEvent{}))

	repo := registry.NewRepository(db)
	vault, err := secrets.NewVault(nil)
	require.NoError(t, err)

	eventLog := events.NewService(db)
	usageLedger := ledger.NewLedger(ledger.NewRepository(db), repo)
	return &fixture{
		selector: NewSelector(repo, usageLedger, eventLog),
		registry: registry.NewService(repo, vault, eventLog),
		repo:     repo,
		ledger:   usageLedger,
		events:   eventLog,
		db:       db,
	}
}

// seed 落库一个供应商并返回
func (f *fixture) seed(t *testing.T, name string, priority int, mutate func(*models.Provider)) *models.Provider {
	p := &models.Provider{
		Name:                  name,
		Type:                  models.ProviderTypeOpenAI,
		APIKey:                "sk-test",
		Enabled:               true,
		Priority:              priority,
		MaxRequestsPerMinute:  60,
		MaxCostPerDay:         10,
		TimeoutMs:             30000,
		RetryAttempts:         3,
		HealthCheckIntervalMs: 60000,
		HealthStatus:          models.HealthStatusUnknown,
	}
	_ = p.SetModelList([]string{"gpt-4o"})
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, f.repo.Create(p))
	return p
}

func names(providers []*models.Provider) []string {
	out := make([]string, len(providers))
	for i, p := range providers {
		out[i] = p.Name
	}
	return out
}

// TestSelectCandidates_PriorityOrder 三个 unknown 供应商按优先级 1/2/3 排序
func TestSelectCandidates_PriorityOrder(t *testing.T) {
	f := setupSelector(t)
	f.seed(t, "p2", 2, nil)
	f.seed(t, "p3", 3, nil)
	f.seed(t, "p1", 1, nil)

	selection, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p3"}, names(selection.Candidates))
}

// TestSelectCandidates_TieBreakByID 同优先级按 ID 升序，顺序确定
func TestSelectCandidates_TieBreakByID(t *testing.T) {
	f := setupSelector(t)
	a := f.seed(t, "a", 1, nil)
	b := f.seed(t, "b", 1, nil)

	selection, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	require.Len(t, selection.Candidates, 2)
	assert.Equal(t, a.ID, selection.Candidates[0].ID)
	assert.Equal(t, b.ID, selection.Candidates[1].ID)
}

// TestSelectCandidates_UnhealthyExcluded 连续探测失败的供应商被剔除
func TestSelectCandidates_UnhealthyExcluded(t *testing.T) {
	f := setupSelector(t)
	p1 := f.seed(t, "p1", 1, nil)
	f.seed(t, "p2", 2, nil)
	f.seed(t, "p3", 3, nil)

	// p1 探测失败，状态已持久化
	require.NoError(t, f.repo.UpdateHealth(p1.ID, models.HealthStatusUnhealthy, time.Now(), "HTTP 500"))

	selection, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	assert.Equal(t, []string{"p2", "p3"}, names(selection.Candidates))
	require.Len(t, selection.Skipped, 1)
	assert.Equal(t, SkipUnhealthy, selection.Skipped[0].Reason)
}

// TestSelectCandidates_ToggleOverridesHealth 禁用瞬间生效，无需探测
func TestSelectCandidates_ToggleOverridesHealth(t *testing.T) {
	f := setupSelector(t)
	p1 := f.seed(t, "p1", 1, func(p *models.Provider) {
		p.HealthStatus = models.HealthStatusHealthy
	})
	f.seed(t, "p2", 2, nil)

	selection, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, names(selection.Candidates))

	// 禁用当前首选
	require.NoError(t, f.registry.ToggleProvider(p1.ID, false))

	selection, err = f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, names(selection.Candidates),
		"disabled provider must be ineligible immediately, no probe required")
}

// TestSelectCandidates_Monotonic 剔除首选不改变其余候选的相对顺序
func TestSelectCandidates_Monotonic(t *testing.T) {
	f := setupSelector(t)
	p1 := f.seed(t, "p1", 1, nil)
	f.seed(t, "p2", 2, nil)
	f.seed(t, "p3", 3, nil)

	before, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	require.NoError(t, f.registry.ToggleProvider(p1.ID, false))

	after, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	assert.Equal(t, names(before.Candidates)[1:], names(after.Candidates))
}

// TestSelectCandidates_MaintenanceExcluded 维护中的供应商被剔除
func TestSelectCandidates_MaintenanceExcluded(t *testing.T) {
	f := setupSelector(t)
	f.seed(t, "p1", 1, func(p *models.Provider) {
		p.HealthStatus = models.HealthStatusMaintenance
	})
	f.seed(t, "p2", 2, nil)

	selection, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	assert.Equal(t, []string{"p2"}, names(selection.Candidates))
	assert.Equal(t, SkipMaintenance, selection.Skipped[0].Reason)
}

// TestSelectCandidates_RateLimited 速率配额耗尽的供应商被剔除
func TestSelectCandidates_RateLimited(t *testing.T) {
	f := setupSelector(t)
	f.seed(t, "p1", 1, func(p *models.Provider) {
		p.MaxRequestsPerMinute = 1
	})
	f.seed(t, "p2", 2, nil)

	// 第一次选择消耗 p1 的唯一配额
	selection, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, names(selection.Candidates))

	selection, err = f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, names(selection.Candidates))
	assert.Equal(t, SkipRateLimited, selection.Skipped[0].Reason)
}

// TestSelectCandidates_BudgetExhausted 当日预算耗尽的供应商被剔除（硬闸门）
func TestSelectCandidates_BudgetExhausted(t *testing.T) {
	f := setupSelector(t)
	p1 := f.seed(t, "p1", 1, func(p *models.Provider) {
		p.MaxCostPerDay = 1
	})
	f.seed(t, "p2", 2, nil)

	require.NoError(t, f.ledger.RecordAttempt(&models.UsageRecord{
		ProviderID: p1.ID,
		Model:      "gpt-4o",
		Cost:       1.5,
		Success:    true,
	}))

	selection, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	assert.Equal(t, []string{"p2"}, names(selection.Candidates))
	assert.Equal(t, SkipBudgetExhausted, selection.Skipped[0].Reason)
}

// TestSelectCandidates_BudgetCheckFailed 账本查询出错时跳过原因如实标注，
// 不能伪装成预算耗尽
func TestSelectCandidates_BudgetCheckFailed(t *testing.T) {
	f := setupSelector(t)
	f.seed(t, "p1", 1, nil)

	// 删掉用量表，让 CheckBudget 的求和查询真实报错
	require.NoError(t, f.db.Migrator().DropTable(&models.UsageRecord{}))

	selection, err := f.selector.SelectCandidates(Constraints{})
	assert.ErrorIs(t, err, ErrNoEligibleProvider)
	require.NotNil(t, selection)
	require.Len(t, selection.Skipped, 1)
	assert.Equal(t, SkipBudgetCheckFailed, selection.Skipped[0].Reason)
}

// TestSelectCandidates_ModelConstraint 模型约束过滤
func TestSelectCandidates_ModelConstraint(t *testing.T) {
	f := setupSelector(t)
	f.seed(t, "p1", 1, nil)
	f.seed(t, "p2", 2, func(p *models.Provider) {
		_ = p.SetModelList([]string{"claude-sonnet-4-20250514"})
	})

	selection, err := f.selector.SelectCandidates(Constraints{Model: "claude-sonnet-4-20250514"})
	require.NoError(t, err)

	assert.Equal(t, []string{"p2"}, names(selection.Candidates))
	assert.Equal(t, SkipModelMismatch, selection.Skipped[0].Reason)
}

// TestSelectCandidates_NoEligible 无可用供应商返回显式结论
func TestSelectCandidates_NoEligible(t *testing.T) {
	f := setupSelector(t)
	f.seed(t, "p1", 1, func(p *models.Provider) {
		p.HealthStatus = models.HealthStatusUnhealthy
	})

	selection, err := f.selector.SelectCandidates(Constraints{})
	assert.ErrorIs(t, err, ErrNoEligibleProvider)
	require.NotNil(t, selection)
	assert.Empty(t, selection.Candidates)
	assert.Len(t, selection.Skipped, 1, "skip diagnostics must survive the no-eligible case")
}

// TestSelectCandidates_EmptyRegistry 空注册表同样返回显式结论
func TestSelectCandidates_EmptyRegistry(t *testing.T) {
	f := setupSelector(t)

	_, err := f.selector.SelectCandidates(Constraints{})
	assert.ErrorIs(t, err, ErrNoEligibleProvider)
}

// TestSelectCandidates_FailoverEventLogged 跳过供应商时落故障转移事件
func TestSelectCandidates_FailoverEventLogged(t *testing.T) {
	f := setupSelector(t)
	p1 := f.seed(t, "p1", 1, nil)
	f.seed(t, "p2", 2, nil)
	require.NoError(t, f.repo.UpdateHealth(p1.ID, models.HealthStatusUnhealthy, time.Now(), "HTTP 500"))

	_, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	logged, err := f.events.GetEventsByType(models.EventTypeFailover, 10)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, models.EventLevelWarning, logged[0].Level)
	assert.Contains(t, logged[0].Metadata, "unhealthy")
}

// TestSelectCandidates_NoEventWhenNoneSkipped 全员入选不落事件
func TestSelectCandidates_NoEventWhenNoneSkipped(t *testing.T) {
	f := setupSelector(t)
	f.seed(t, "p1", 1, nil)

	_, err := f.selector.SelectCandidates(Constraints{})
	require.NoError(t, err)

	logged, err := f.events.GetEventsByType(models.EventTypeFailover, 10)
	require.NoError(t, err)
	assert.Empty(t, logged)
}
