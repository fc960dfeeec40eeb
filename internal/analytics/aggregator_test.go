package analytics

import (
	"testing"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/ledger"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testNow 固定的测试时钟，避免跨日边界的偶发失败
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// setupAggregator 创建带内存数据库和固定时钟的聚合器
func setupAggregator(t *testing.T) (*Aggregator, *ledger.Repository) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UsageRecord{}))

	repo := ledger.NewRepository(db)
	agg := NewAggregatorWithClock(repo, DefaultThresholds(), nil, func() time.Time { return testNow })
	return agg, repo
}

// record 一条用量记录的测试参数
type record struct {
	providerID uint
	provider   string
	model      string
	userID     string
	cost       float64
	tokensIn   int
	tokensOut  int
	latencyMs  int64
	success    bool
	at         time.Time
}

// insert 落库一条用量记录
func insert(t *testing.T, repo *ledger.Repository, rec record) {
	if rec.providerID == 0 {
		rec.providerID = 1
	}
	if rec.provider == "" {
		rec.provider = "openai-main"
	}
	if rec.model == "" {
		rec.model = "gpt-4o"
	}
	// 范围查询右边界开区间，默认时间戳落在时钟之前
	if rec.at.IsZero() {
		rec.at = testNow.Add(-time.Hour)
	}
	require.NoError(t, repo.Create(&models.UsageRecord{
		RequestID:    uuid.NewString(),
		UserID:       rec.userID,
		ProviderID:   rec.providerID,
		ProviderName: rec.provider,
		ProviderType: models.ProviderTypeOpenAI,
		Model:        rec.model,
		TokensIn:     rec.tokensIn,
		TokensOut:    rec.tokensOut,
		Cost:         rec.cost,
		LatencyMs:    rec.latencyMs,
		Success:      rec.success,
		Timestamp:    rec.at,
	}))
}

// weekRange 返回覆盖最近 n 天的查询范围
func weekRange(days int) Filter {
	return Filter{
		Start: testNow.AddDate(0, 0, -days),
		End:   testNow.Add(time.Hour),
	}
}

// TestGetAnalytics_Totals 汇总请求数、成功数、成本、token 和平均延迟
func TestGetAnalytics_Totals(t *testing.T) {
	agg, repo := setupAggregator(t)
	insert(t, repo, record{cost: 0.5, tokensIn: 100, tokensOut: 200, latencyMs: 400, success: true})
	insert(t, repo, record{cost: 0.3, tokensIn: 50, tokensOut: 50, latencyMs: 200, success: true})
	insert(t, repo, record{cost: 0, latencyMs: 30000, success: false})

	report, err := agg.GetAnalytics(weekRange(7))
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.TotalRequests)
	assert.Equal(t, int64(2), report.SuccessfulRequests)
	assert.InDelta(t, 0.8, report.TotalCost, 1e-9)
	assert.Equal(t, int64(400), report.TotalTokens)
	assert.InDelta(t, float64(400+200+30000)/3, report.AvgResponseTimeMs, 1e-9)
}

// TestGetAnalytics_Breakdowns 按供应商名称快照和模型细分
func TestGetAnalytics_Breakdowns(t *testing.T) {
	agg, repo := setupAggregator(t)
	insert(t, repo, record{provider: "openai-main", model: "gpt-4o", cost: 1.0, latencyMs: 300, success: true})
	insert(t, repo, record{provider: "openai-main", model: "gpt-4o-mini", cost: 0.1, latencyMs: 100, success: true})
	insert(t, repo, record{provider: "anthropic-main", model: "claude-sonnet-4-20250514", cost: 0.9, latencyMs: 500, success: true})

	report, err := agg.GetAnalytics(weekRange(7))
	require.NoError(t, err)

	require.Len(t, report.ProviderBreakdown, 2)
	openai := report.ProviderBreakdown["openai-main"]
	require.NotNil(t, openai)
	assert.Equal(t, int64(2), openai.Requests)
	assert.InDelta(t, 1.1, openai.Cost, 1e-9)
	assert.InDelta(t, 200, openai.AvgLatencyMs, 1e-9)

	require.Len(t, report.ModelBreakdown, 3)
	assert.Equal(t, int64(1), report.ModelBreakdown["claude-sonnet-4-20250514"].Requests)
}

// TestGetAnalytics_DailyBuckets 按自然日分桶并按日期升序
func TestGetAnalytics_DailyBuckets(t *testing.T) {
	agg, repo := setupAggregator(t)
	insert(t, repo, record{cost: 1.0, success: true, at: testNow.AddDate(0, 0, -2)})
	insert(t, repo, record{cost: 2.0, success: true, at: testNow.AddDate(0, 0, -1)})
	insert(t, repo, record{cost: 0.5, success: true, at: testNow.AddDate(0, 0, -1)})
	insert(t, repo, record{cost: 4.0, success: true})

	report, err := agg.GetAnalytics(weekRange(7))
	require.NoError(t, err)

	require.Len(t, report.DailyUsage, 3)
	assert.Equal(t, "2025-06-13", report.DailyUsage[0].Date)
	assert.Equal(t, "2025-06-14", report.DailyUsage[1].Date)
	assert.Equal(t, "2025-06-15", report.DailyUsage[2].Date)
	assert.Equal(t, int64(2), report.DailyUsage[1].Requests)
	assert.InDelta(t, 2.5, report.DailyUsage[1].Cost, 1e-9)
}

// TestGetAnalytics_FilterByUser 按用户过滤
func TestGetAnalytics_FilterByUser(t *testing.T) {
	agg, repo := setupAggregator(t)
	insert(t, repo, record{userID: "alice", cost: 1.0, success: true})
	insert(t, repo, record{userID: "bob", cost: 2.0, success: true})

	filter := weekRange(7)
	filter.UserID = "alice"
	report, err := agg.GetAnalytics(filter)
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.TotalRequests)
	assert.InDelta(t, 1.0, report.TotalCost, 1e-9)
}

// TestGetAnalytics_CostTrend 日成本序列驱动走势分类
func TestGetAnalytics_CostTrend(t *testing.T) {
	agg, repo := setupAggregator(t)
	// 前 7 天每日 1.0，后 7 天每日 2.0
	for i := 13; i >= 7; i-- {
		insert(t, repo, record{cost: 1.0, success: true, at: testNow.AddDate(0, 0, -i)})
	}
	for i := 6; i >= 0; i-- {
		insert(t, repo, record{cost: 2.0, success: true, at: testNow.AddDate(0, 0, -i)})
	}

	report, err := agg.GetAnalytics(weekRange(14))
	require.NoError(t, err)

	assert.Equal(t, TrendIncreasing, report.CostTrend)
}

// TestGetAnalytics_Empty 空范围返回零值报告
func TestGetAnalytics_Empty(t *testing.T) {
	agg, _ := setupAggregator(t)

	report, err := agg.GetAnalytics(weekRange(7))
	require.NoError(t, err)

	assert.Equal(t, int64(0), report.TotalRequests)
	assert.Zero(t, report.AvgResponseTimeMs)
	assert.Empty(t, report.DailyUsage)
	assert.Equal(t, TrendStable, report.CostTrend)
}
