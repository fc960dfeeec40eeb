package health

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
)

// DefaultResyncInterval 调度器重新同步供应商列表的周期
const DefaultResyncInterval = 30 * time.Second

// Scheduler 后台健康检查调度器
// 每个供应商独立调度：各自按自己的 HealthCheckIntervalMs 周期探测，互不锁步
type Scheduler struct {
	checker        *Checker
	repo           *registry.Repository
	resyncInterval time.Duration

	mu      sync.Mutex
	runners map[uint]*runner
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// runner 单个供应商的探测循环句柄
type runner struct {
	interval time.Duration
	cancel   context.CancelFunc
}

// NewScheduler 创建调度器
func NewScheduler(checker *Checker, repo *registry.Repository, resyncInterval time.Duration) *Scheduler {
	if resyncInterval <= 0 {
		resyncInterval = DefaultResyncInterval
	}
	return &Scheduler{
		checker:        checker,
		repo:           repo,
		resyncInterval: resyncInterval,
		runners:        make(map[uint]*runner),
	}
}

// Start 启动调度器
// 立即同步一次，然后周期性对齐注册表（新增/删除/禁用/间隔变更）
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.resync(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.resyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.resync(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Println("🩺 健康检查调度器已启动")
}

// Stop 停止调度器和所有探测循环
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Println("🩺 健康检查调度器已停止")
}

// resync 对齐注册表：为启用的供应商维护探测循环
func (s *Scheduler) resync(ctx context.Context) {
	providers, err := s.repo.FindAll(registry.ListFilter{EnabledOnly: true})
	if err != nil {
		log.Printf("⚠️ 调度器读取供应商列表失败: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[uint]bool, len(providers))
	for _, p := range providers {
		active[p.ID] = true
		interval := time.Duration(p.HealthCheckIntervalMs) * time.Millisecond

		if existing, ok := s.runners[p.ID]; ok {
			if existing.interval == interval {
				continue
			}
			// 间隔变更：重启该供应商的探测循环
			existing.cancel()
		}

		runnerCtx, cancel := context.WithCancel(ctx)
		s.runners[p.ID] = &runner{interval: interval, cancel: cancel}

		s.wg.Add(1)
		go s.runLoop(runnerCtx, p.ID, interval)
	}

	// 停掉已删除或已禁用的供应商
	for id, r := range s.runners {
		if !active[id] {
			r.cancel()
			delete(s.runners, id)
		}
	}
}

// runLoop 单个供应商的周期探测循环
// 每轮重新读取配置，保证探测的是最新的记录
func (s *Scheduler) runLoop(ctx context.Context, providerID uint, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			provider, err := s.repo.FindByID(providerID)
			if err != nil {
				log.Printf("⚠️ 调度器读取供应商 %d 失败: %v", providerID, err)
				continue
			}
			s.checker.CheckOne(ctx, provider)
		case <-ctx.Done():
			return
		}
	}
}
