package health

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/events"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
	"github.com/Mizarx/Mizarx-Gateway/internal/secrets"
)

// 探测错误消息（缺失必填配置时不发起任何网络调用）
const (
	ErrMsgMissingBaseURL = "Missing base URL"
	ErrMsgMissingAPIKey  = "Missing API key"
)

// Result 健康检查结果
type Result struct {
	ProviderID     uint                `json:"provider_id"`
	Status         models.HealthStatus `json:"status"`
	ResponseTimeMs int64               `json:"response_time_ms"`
	StatusCode     int                 `json:"status_code,omitempty"`
	Error          string              `json:"error,omitempty"`
	CheckedAt      time.Time           `json:"checked_at"`
}

// Checker 供应商健康检查器
// 按类型探测轻量端点，结论回写 Provider 记录
type Checker struct {
	client      *http.Client
	repo        *registry.Repository
	vault       *secrets.Vault
	events      *events.Service
	ceiling     time.Duration // 单次探测超时上限
	maxParallel int           // CheckMany 并发上限
	history     *History
}

// Options 检查器配置
type Options struct {
	Ceiling     time.Duration // 默认 10s
	MaxParallel int           // 默认 8
	HistorySize int           // 默认 20
}

// NewChecker 创建健康检查器
func NewChecker(repo *registry.Repository, vault *secrets.Vault, evts *events.Service, opts Options) *Checker {
	if opts.Ceiling <= 0 {
		opts.Ceiling = 10 * time.Second
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 8
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 20
	}

	return &Checker{
		client:      &http.Client{},
		repo:        repo,
		vault:       vault,
		events:      evts,
		ceiling:     opts.Ceiling,
		maxParallel: opts.MaxParallel,
		history:     NewHistory(opts.HistorySize),
	}
}

// CheckOne 探测单个供应商并回写结果
// 任何探测错误都折叠进结果的 Status/Error，不向外抛出
func (c *Checker) CheckOne(ctx context.Context, provider *models.Provider) *Result {
	result := c.probe(ctx, provider)
	c.persist(provider, result)
	return result
}

// CheckOneByID 按 ID 探测（按需检查入口）
func (c *Checker) CheckOneByID(ctx context.Context, id uint) (*Result, error) {
	provider, err := c.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	return c.CheckOne(ctx, provider), nil
}

// CheckMany 并发探测多个供应商
// 有界并发；单个供应商的失败或超时不影响其他结果，永远返回完整的部分结果
func (c *Checker) CheckMany(ctx context.Context, providers []*models.Provider) []*Result {
	results := make([]*Result, len(providers))

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.maxParallel)

	for i, provider := range providers {
		wg.Add(1)
		go func(idx int, p *models.Provider) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = c.CheckOne(ctx, p)
		}(i, provider)
	}

	wg.Wait()
	return results
}

// GetHealthStatus 读取缓存的健康状态（最后一次回写的值）
// 需要新鲜结论的调用方应显式调用 CheckOne
func (c *Checker) GetHealthStatus(id uint) (models.HealthStatus, error) {
	provider, err := c.repo.FindByID(id)
	if err != nil {
		return "", err
	}
	return provider.HealthStatus, nil
}

// RecentResults 最近探测历史（展示用）
func (c *Checker) RecentResults(id uint) []*Result {
	return c.history.Recent(id)
}

// probe 执行一次探测，所有错误折叠进 Result
func (c *Checker) probe(ctx context.Context, provider *models.Provider) *Result {
	startTime := time.Now()
	result := &Result{
		ProviderID: provider.ID,
		CheckedAt:  startTime,
	}

	// 禁用的供应商不探测
	if !provider.Enabled {
		result.Status = models.HealthStatusDisabled
		return result
	}

	// 必填配置缺失：立即 unhealthy，零网络调用
	if provider.Type.IsLocalType() && provider.BaseURL == "" {
		result.Status = models.HealthStatusUnhealthy
		result.Error = ErrMsgMissingBaseURL
		return result
	}
	if !provider.Type.IsLocalType() && provider.APIKey == "" {
		result.Status = models.HealthStatusUnhealthy
		result.Error = ErrMsgMissingAPIKey
		return result
	}

	apiKey := provider.APIKey
	if apiKey != "" {
		opened, err := c.vault.Open(apiKey)
		if err != nil {
			result.Status = models.HealthStatusUnhealthy
			result.Error = fmt.Sprintf("解密 API Key 失败: %v", err)
			return result
		}
		apiKey = opened
	}

	req, err := buildProbeRequest(provider, apiKey)
	if err != nil {
		result.Status = models.HealthStatusUnhealthy
		result.Error = err.Error()
		return result
	}

	// 探测超时取 供应商自身超时 与 全局上限 的较小值
	timeout := c.ceiling
	if providerTimeout := time.Duration(provider.TimeoutMs) * time.Millisecond; providerTimeout < timeout {
		timeout = providerTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.Do(req.WithContext(probeCtx))
	result.ResponseTimeMs = time.Since(startTime).Milliseconds()
	if err != nil {
		result.Status = models.HealthStatusUnhealthy
		if errors.Is(err, context.DeadlineExceeded) || probeCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Sprintf("probe timeout after %s", timeout)
		} else {
			result.Error = fmt.Sprintf("request failed: %v", err)
		}
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	healthy, message := classifyStatusCode(resp.StatusCode)
	if healthy {
		result.Status = models.HealthStatusHealthy
	} else {
		result.Status = models.HealthStatusUnhealthy
		result.Error = message
	}

	return result
}

// persist 回写探测结论并记录历史
// 回写失败只记日志，不影响返回给调用方的结果
func (c *Checker) persist(provider *models.Provider, result *Result) {
	c.history.Append(provider.ID, result)

	if err := c.repo.UpdateHealth(provider.ID, result.Status, result.CheckedAt, result.Error); err != nil {
		log.Printf("⚠️ 回写供应商 %d 健康状态失败: %v", provider.ID, err)
		return
	}

	// 状态变化落事件日志
	if c.events != nil && provider.HealthStatus != result.Status {
		level := models.EventLevelInfo
		if result.Status == models.HealthStatusUnhealthy {
			level = models.EventLevelWarning
		}
		_ = c.events.LogEvent(models.EventTypeHealthChange,
			fmt.Sprintf("供应商 %s 健康状态: %s -> %s", provider.Name, provider.HealthStatus, result.Status),
			level,
			map[string]interface{}{
				"provider_id": provider.ID,
				"error":       result.Error,
			})
	}
}
