package ledger

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRateLimiter_Exactness 限额 N 时恰好放行 N 次，第 N+1 次拒绝
func TestRateLimiter_Exactness(t *testing.T) {
	limiter := NewRateLimiter()
	const limit = 5

	for i := 0; i < limit; i++ {
		if !limiter.Allow(1, limit) {
			t.Errorf("Allow() call %d should be admitted", i+1)
		}
	}

	if limiter.Allow(1, limit) {
		t.Error("Allow() call beyond limit should be denied")
	}
}

// TestRateLimiter_WindowRollover 窗口滚动后重新放行
func TestRateLimiter_WindowRollover(t *testing.T) {
	current := time.Now()
	limiter := NewRateLimiterWithClock(func() time.Time { return current })

	assert.True(t, limiter.Allow(1, 1))
	assert.False(t, limiter.Allow(1, 1))

	// 时间推进 60 秒，窗口滚动
	current = current.Add(WindowDuration)
	assert.True(t, limiter.Allow(1, 1))
	assert.False(t, limiter.Allow(1, 1))
}

// TestRateLimiter_PerProvider 各供应商窗口独立
func TestRateLimiter_PerProvider(t *testing.T) {
	limiter := NewRateLimiter()

	assert.True(t, limiter.Allow(1, 1))
	assert.False(t, limiter.Allow(1, 1))
	assert.True(t, limiter.Allow(2, 1), "provider 2 has its own window")
}

// TestRateLimiter_ConcurrentExactness 并发下不超放：N 个并发请求对限额 N 恰好放行 N 个
func TestRateLimiter_ConcurrentExactness(t *testing.T) {
	limiter := NewRateLimiter()
	const limit = 50
	const attempts = 200

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(1, limit) {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), atomic.LoadInt64(&admitted),
		"exactly %d of %d concurrent requests must be admitted", limit, attempts)
}

// TestRateLimiter_Remaining 只读剩余配额不占用
func TestRateLimiter_Remaining(t *testing.T) {
	limiter := NewRateLimiter()

	assert.Equal(t, 3, limiter.Remaining(1, 3))
	limiter.Allow(1, 3)
	assert.Equal(t, 2, limiter.Remaining(1, 3))
	assert.Equal(t, 2, limiter.Remaining(1, 3), "Remaining must not consume quota")
}

// TestRateLimiter_ZeroLimit 非法限额一律拒绝
func TestRateLimiter_ZeroLimit(t *testing.T) {
	limiter := NewRateLimiter()
	assert.False(t, limiter.Allow(1, 0))
}

// TestRateLimiter_Reset 清空窗口
func TestRateLimiter_Reset(t *testing.T) {
	limiter := NewRateLimiter()

	limiter.Allow(1, 1)
	assert.False(t, limiter.Allow(1, 1))

	limiter.Reset(1)
	assert.True(t, limiter.Allow(1, 1))
}
