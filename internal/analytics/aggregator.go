package analytics

import (
	"sort"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/events"
	"github.com/Mizarx/Mizarx-Gateway/internal/ledger"
)

// Filter 聚合查询条件
type Filter struct {
	UserID     string    `json:"user_id,omitempty"`
	ProviderID uint      `json:"provider_id,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// BreakdownEntry 按供应商/模型维度的细分统计
type BreakdownEntry struct {
	Requests     int64   `json:"requests"`
	Cost         float64 `json:"cost"`
	Tokens       int64   `json:"tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	totalLatency int64
}

// DailyBucket 按自然日分桶的用量
type DailyBucket struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Requests int64   `json:"requests"`
	Cost     float64 `json:"cost"`
	Tokens   int64   `json:"tokens"`
}

// Report 聚合报告
type Report struct {
	TotalRequests      int64                      `json:"total_requests"`
	SuccessfulRequests int64                      `json:"successful_requests"`
	TotalCost          float64                    `json:"total_cost"`
	TotalTokens        int64                      `json:"total_tokens"`
	AvgResponseTimeMs  float64                    `json:"avg_response_time_ms"`
	ProviderBreakdown  map[string]*BreakdownEntry `json:"provider_breakdown"` // 按供应商名称快照
	ModelBreakdown     map[string]*BreakdownEntry `json:"model_breakdown"`
	DailyUsage         []DailyBucket              `json:"daily_usage"` // 日期升序
	CostTrend          Trend                      `json:"cost_trend"`
}

// Aggregator 用量分析聚合器
// 对账本记录做纯聚合，产出仪表盘数据、成本告警和优化建议
type Aggregator struct {
	usage      *ledger.Repository
	thresholds Thresholds
	events     *events.Service // 可为 nil
	now        func() time.Time
}

// NewAggregator 创建聚合器
func NewAggregator(usage *ledger.Repository, thresholds Thresholds, eventLog *events.Service) *Aggregator {
	return &Aggregator{
		usage:      usage,
		thresholds: thresholds,
		events:     eventLog,
		now:        time.Now,
	}
}

// NewAggregatorWithClock 创建带注入时钟的聚合器（测试用）
func NewAggregatorWithClock(usage *ledger.Repository, thresholds Thresholds, eventLog *events.Service, now func() time.Time) *Aggregator {
	agg := NewAggregator(usage, thresholds, eventLog)
	agg.now = now
	return agg
}

// GetAnalytics 聚合时间范围内的用量
func (a *Aggregator) GetAnalytics(filter Filter) (*Report, error) {
	records, err := a.usage.FindRange(ledger.RangeFilter{
		UserID:     filter.UserID,
		ProviderID: filter.ProviderID,
		Start:      filter.Start,
		End:        filter.End,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		ProviderBreakdown: make(map[string]*BreakdownEntry),
		ModelBreakdown:    make(map[string]*BreakdownEntry),
	}

	dailyMap := make(map[string]*DailyBucket)
	var totalLatency int64

	for _, rec := range records {
		report.TotalRequests++
		if rec.Success {
			report.SuccessfulRequests++
		}
		report.TotalCost += rec.Cost
		report.TotalTokens += int64(rec.TotalTokens())
		totalLatency += rec.LatencyMs

		accumulate(report.ProviderBreakdown, rec.ProviderName, rec.Cost, int64(rec.TotalTokens()), rec.LatencyMs)
		accumulate(report.ModelBreakdown, rec.Model, rec.Cost, int64(rec.TotalTokens()), rec.LatencyMs)

		day := rec.Timestamp.Format("2006-01-02")
		bucket, ok := dailyMap[day]
		if !ok {
			bucket = &DailyBucket{Date: day}
			dailyMap[day] = bucket
		}
		bucket.Requests++
		bucket.Cost += rec.Cost
		bucket.Tokens += int64(rec.TotalTokens())
	}

	if report.TotalRequests > 0 {
		report.AvgResponseTimeMs = float64(totalLatency) / float64(report.TotalRequests)
	}

	for _, entry := range report.ProviderBreakdown {
		finalize(entry)
	}
	for _, entry := range report.ModelBreakdown {
		finalize(entry)
	}

	report.DailyUsage = make([]DailyBucket, 0, len(dailyMap))
	for _, bucket := range dailyMap {
		report.DailyUsage = append(report.DailyUsage, *bucket)
	}
	sort.Slice(report.DailyUsage, func(i, j int) bool {
		return report.DailyUsage[i].Date < report.DailyUsage[j].Date
	})

	costs := make([]float64, len(report.DailyUsage))
	for i, bucket := range report.DailyUsage {
		costs[i] = bucket.Cost
	}
	report.CostTrend = ClassifyTrend(costs)

	return report, nil
}

// accumulate 向细分统计累加一条记录
func accumulate(breakdown map[string]*BreakdownEntry, key string, cost float64, tokens, latencyMs int64) {
	entry, ok := breakdown[key]
	if !ok {
		entry = &BreakdownEntry{}
		breakdown[key] = entry
	}
	entry.Requests++
	entry.Cost += cost
	entry.Tokens += tokens
	entry.totalLatency += latencyMs
}

// finalize 计算细分统计的平均延迟
func finalize(entry *BreakdownEntry) {
	if entry.Requests > 0 {
		entry.AvgLatencyMs = float64(entry.totalLatency) / float64(entry.Requests)
	}
}
