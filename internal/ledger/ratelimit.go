package ledger

import (
	"sync"
	"time"
)

// WindowDuration 速率限制窗口长度
const WindowDuration = 60 * time.Second

// RateLimiter 每供应商固定窗口计数器
// 检查与计数在同一临界区内完成：限额为 N 时恰好放行 N 个并发请求，
// 第 N+1 个一定被拒绝，窗口滚动后重新放行
type RateLimiter struct {
	mu      sync.Mutex
	windows map[uint]*window
	now     func() time.Time // 可注入时钟，测试用
}

// window 单供应商的计数窗口
type window struct {
	count     int
	startTime time.Time
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[uint]*window),
		now:     time.Now,
	}
}

// NewRateLimiterWithClock 创建带注入时钟的速率限制器（测试用）
func NewRateLimiterWithClock(now func() time.Time) *RateLimiter {
	return &RateLimiter{
		windows: make(map[uint]*window),
		now:     now,
	}
}

// Allow 检查并占用一个请求配额
// 返回 false 表示当前窗口配额已用完
func (rl *RateLimiter) Allow(providerID uint, limit int) bool {
	if limit < 1 {
		return false
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	w, ok := rl.windows[providerID]
	if !ok || now.Sub(w.startTime) >= WindowDuration {
		// 新窗口
		rl.windows[providerID] = &window{count: 1, startTime: now}
		return true
	}

	if w.count >= limit {
		return false
	}
	w.count++
	return true
}

// Remaining 当前窗口剩余配额（只读，不占用）
func (rl *RateLimiter) Remaining(providerID uint, limit int) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[providerID]
	if !ok || rl.now().Sub(w.startTime) >= WindowDuration {
		return limit
	}

	remaining := limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset 清空供应商的窗口（供应商删除时调用）
func (rl *RateLimiter) Reset(providerID uint) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.windows, providerID)
}
