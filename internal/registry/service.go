package registry

import (
	"fmt"

	"github.com/Mizarx/Mizarx-Gateway/internal/events"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/secrets"
)

// 新建供应商的默认值
const (
	DefaultPriority              = 50
	DefaultMaxRequestsPerMinute  = 60
	DefaultMaxCostPerDay         = 10.0
	DefaultTimeoutMs             = 30000
	DefaultRetryAttempts         = 3
	DefaultHealthCheckIntervalMs = 60000
)

// Service 供应商注册表业务逻辑层
// API Key 经 Vault 加密后落库
type Service struct {
	repo   *Repository
	vault  *secrets.Vault
	events *events.Service // 可为 nil
}

// NewService 创建 Service 实例
func NewService(repo *Repository, vault *secrets.Vault, eventLog *events.Service) *Service {
	return &Service{repo: repo, vault: vault, events: eventLog}
}

// logConfigChange 配置变更落事件留痕，元数据绝不包含密钥
func (s *Service) logConfigChange(action string, id uint) {
	if s.events == nil {
		return
	}
	_ = s.events.LogInfo(models.EventTypeConfigChange,
		fmt.Sprintf("供应商 #%d 配置变更: %s", id, action),
		map[string]interface{}{"provider_id": id, "action": action})
}

// CreateProvider 创建供应商
// 校验失败返回携带完整违规列表的 ValidationError
func (s *Service) CreateProvider(req CreateProviderRequest) (*models.Provider, error) {
	provider := &models.Provider{
		Name:                  req.Name,
		Type:                  req.Type,
		APIKey:                req.APIKey,
		BaseURL:               req.BaseURL,
		Enabled:               true,
		Priority:              DefaultPriority,
		MaxRequestsPerMinute:  DefaultMaxRequestsPerMinute,
		MaxCostPerDay:         DefaultMaxCostPerDay,
		TimeoutMs:             DefaultTimeoutMs,
		RetryAttempts:         DefaultRetryAttempts,
		HealthCheckIntervalMs: DefaultHealthCheckIntervalMs,
		HealthStatus:          models.HealthStatusUnknown,
	}

	if err := provider.SetModelList(req.Models); err != nil {
		return nil, fmt.Errorf("序列化模型列表失败: %w", err)
	}

	if req.Enabled != nil {
		provider.Enabled = *req.Enabled
	}
	if req.Priority != nil {
		provider.Priority = *req.Priority
	}
	if req.MaxRequestsPerMinute != nil {
		provider.MaxRequestsPerMinute = *req.MaxRequestsPerMinute
	}
	if req.MaxCostPerDay != nil {
		provider.MaxCostPerDay = *req.MaxCostPerDay
	}
	if req.TimeoutMs != nil {
		provider.TimeoutMs = *req.TimeoutMs
	}
	if req.RetryAttempts != nil {
		provider.RetryAttempts = *req.RetryAttempts
	}
	if req.HealthCheckIntervalMs != nil {
		provider.HealthCheckIntervalMs = *req.HealthCheckIntervalMs
	}

	// 禁用的供应商不参与选择，健康状态直接置为 disabled
	if !provider.Enabled {
		provider.HealthStatus = models.HealthStatusDisabled
	}

	if violations := ValidateProvider(provider); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	exists, err := s.repo.CheckNameExists(provider.Name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrProviderNameExists
	}

	// 加密 API Key 后落库
	plaintextKey := provider.APIKey
	if provider.APIKey != "" {
		sealed, err := s.vault.Seal(provider.APIKey)
		if err != nil {
			return nil, fmt.Errorf("加密 API Key 失败: %w", err)
		}
		provider.APIKey = sealed
	}

	if err := s.repo.Create(provider); err != nil {
		return nil, err
	}

	provider.APIKey = plaintextKey
	return provider, nil
}

// GetProvider 获取单个供应商（API Key 已解密，调用方负责脱敏）
func (s *Service) GetProvider(id uint) (*models.Provider, error) {
	provider, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if provider.APIKey != "" {
		key, err := s.vault.Open(provider.APIKey)
		if err != nil {
			return nil, fmt.Errorf("解密 API Key 失败: %w", err)
		}
		provider.APIKey = key
	}

	return provider, nil
}

// ListProviders 按过滤条件列出供应商（API Key 保持密文，仅用于展示和选择）
func (s *Service) ListProviders(filter ListFilter) ([]*models.Provider, error) {
	return s.repo.FindAll(filter)
}

// UpdateProvider 部分更新供应商
// 合并后的完整配置重新做全量校验
func (s *Service) UpdateProvider(id uint, req UpdateProviderRequest) (*models.Provider, error) {
	provider, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != provider.Name {
		exists, err := s.repo.CheckNameExists(*req.Name, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrProviderNameExists
		}
		provider.Name = *req.Name
	}

	if req.Models != nil {
		if err := provider.SetModelList(*req.Models); err != nil {
			return nil, fmt.Errorf("序列化模型列表失败: %w", err)
		}
	}
	if req.BaseURL != nil {
		provider.BaseURL = *req.BaseURL
	}
	if req.Priority != nil {
		provider.Priority = *req.Priority
	}
	if req.MaxRequestsPerMinute != nil {
		provider.MaxRequestsPerMinute = *req.MaxRequestsPerMinute
	}
	if req.MaxCostPerDay != nil {
		provider.MaxCostPerDay = *req.MaxCostPerDay
	}
	if req.TimeoutMs != nil {
		provider.TimeoutMs = *req.TimeoutMs
	}
	if req.RetryAttempts != nil {
		provider.RetryAttempts = *req.RetryAttempts
	}
	if req.HealthCheckIntervalMs != nil {
		provider.HealthCheckIntervalMs = *req.HealthCheckIntervalMs
	}
	if req.Enabled != nil {
		provider.Enabled = *req.Enabled
		if !provider.Enabled {
			provider.HealthStatus = models.HealthStatusDisabled
		} else if provider.HealthStatus == models.HealthStatusDisabled {
			provider.HealthStatus = models.HealthStatusUnknown
		}
	}

	// 校验用明文视角：存量密文 Key 在校验时视为"已配置"
	var plaintextKey string
	keyUpdated := req.APIKey != nil
	if keyUpdated {
		plaintextKey = *req.APIKey
		provider.APIKey = *req.APIKey
	}

	if violations := ValidateProvider(provider); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	if keyUpdated && plaintextKey != "" {
		sealed, err := s.vault.Seal(plaintextKey)
		if err != nil {
			return nil, fmt.Errorf("加密 API Key 失败: %w", err)
		}
		provider.APIKey = sealed
	}

	if err := s.repo.Update(provider); err != nil {
		return nil, err
	}

	if keyUpdated {
		provider.APIKey = plaintextKey
	}
	s.logConfigChange("update", provider.ID)
	return provider, nil
}

// ToggleProvider 启用/禁用供应商
// 禁用立即将健康状态置为 disabled，无需探测；启用后置为 unknown 等待下次探测
func (s *Service) ToggleProvider(id uint, enabled bool) error {
	status := models.HealthStatusDisabled
	action := "disable"
	if enabled {
		status = models.HealthStatusUnknown
		action = "enable"
	}
	if err := s.repo.UpdateToggle(id, enabled, status); err != nil {
		return err
	}
	s.logConfigChange(action, id)
	return nil
}

// SetPriority 设置优先级
func (s *Service) SetPriority(id uint, priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return &ValidationError{Violations: []string{
			fmt.Sprintf("priority must be between %d and %d", MinPriority, MaxPriority),
		}}
	}
	if err := s.repo.UpdatePriority(id, priority); err != nil {
		return err
	}
	s.logConfigChange("priority", id)
	return nil
}

// DeleteProvider 删除供应商
// 用量历史通过快照字段保留，不受删除影响；常规运维建议用禁用代替删除
func (s *Service) DeleteProvider(id uint) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.logConfigChange("delete", id)
	return nil
}
