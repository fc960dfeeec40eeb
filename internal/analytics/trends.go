package analytics

// Trend 日分桶指标的走势分类
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// 走势判定参数
const (
	// TrendWindowDays 参与比较的窗口天数
	TrendWindowDays = 7
	// TrendChangeThreshold 相对变化超过 ±10% 才视为趋势
	TrendChangeThreshold = 0.10
)

// ClassifyTrend 对按日分桶的指标序列做走势分类
// 比较最近 7 桶与其前 7 桶的均值：变化 ≥ +10% 为上升，≤ -10% 为下降，否则平稳
// 不足 2 桶时按定义返回平稳
func ClassifyTrend(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}

	recentStart := len(values) - TrendWindowDays
	if recentStart < 0 {
		recentStart = len(values) / 2
	}
	earlierStart := recentStart - TrendWindowDays
	if earlierStart < 0 {
		earlierStart = 0
	}

	recent := mean(values[recentStart:])
	earlier := mean(values[earlierStart:recentStart])

	if earlier == 0 {
		if recent > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}

	change := (recent - earlier) / earlier
	switch {
	case change >= TrendChangeThreshold:
		return TrendIncreasing
	case change <= -TrendChangeThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// mean 均值，空切片返回 0
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
