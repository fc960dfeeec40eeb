package health

import "sync"

// History 每个供应商的有界探测历史环
// 只用于展示最近探测记录，不参与选择决策
type History struct {
	mu      sync.RWMutex
	size    int
	entries map[uint][]*Result
}

// NewHistory 创建历史环
func NewHistory(size int) *History {
	return &History{
		size:    size,
		entries: make(map[uint][]*Result),
	}
}

// Append 追加一条探测记录，超出容量时丢弃最旧的
func (h *History) Append(providerID uint, result *Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ring := append(h.entries[providerID], result)
	if len(ring) > h.size {
		ring = ring[len(ring)-h.size:]
	}
	h.entries[providerID] = ring
}

// Recent 返回最近的探测记录（新到旧）
func (h *History) Recent(providerID uint) []*Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ring := h.entries[providerID]
	out := make([]*Result, len(ring))
	for i, r := range ring {
		out[len(ring)-1-i] = r
	}
	return out
}

// Forget 删除供应商的历史（供应商删除时调用）
func (h *History) Forget(providerID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.entries, providerID)
}
