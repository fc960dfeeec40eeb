package registry

import (
	"fmt"
	"log"
	"sync"

	"github.com/Mizarx/Mizarx-Gateway/internal/config"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
)

// seedMutex 串行化播种，防止并发启动时重复插入默认供应商
var seedMutex sync.Mutex

// SeedDefaults 幂等播种默认供应商
// 已有任何供应商时不做任何事，直接返回现有数量
// 存在性检查和插入在同一事务内完成，配合互斥锁保证并发启动安全
func (s *Service) SeedDefaults(seedCfg config.SeedConfig) (int64, error) {
	seedMutex.Lock()
	defer seedMutex.Unlock()

	var count int64
	err := s.repo.Transaction(func(txRepo *Repository) error {
		existing, err := txRepo.Count()
		if err != nil {
			return err
		}
		if existing > 0 {
			count = existing
			return nil
		}

		defaults, err := s.buildDefaults(seedCfg)
		if err != nil {
			return err
		}

		for _, provider := range defaults {
			if err := txRepo.Create(provider); err != nil {
				return fmt.Errorf("插入默认供应商 %s 失败: %w", provider.Name, err)
			}
		}

		count = int64(len(defaults))
		if count > 0 {
			log.Printf("🌱 已播种 %d 个默认供应商", count)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// buildDefaults 根据启动配置构建默认供应商集合
// 只为配置了凭证/端点的类型生成记录，凭证经 Vault 加密
func (s *Service) buildDefaults(seedCfg config.SeedConfig) ([]*models.Provider, error) {
	var defaults []*models.Provider

	if seedCfg.OpenAIKey != "" {
		p, err := s.defaultProvider("OpenAI", models.ProviderTypeOpenAI, seedCfg.OpenAIKey, "", 1,
			[]string{"gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"})
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, p)
	}

	if seedCfg.AnthropicKey != "" {
		p, err := s.defaultProvider("Anthropic", models.ProviderTypeAnthropic, seedCfg.AnthropicKey, "", 2,
			[]string{"claude-sonnet-4-20250514", "claude-3-5-haiku-20241022"})
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, p)
	}

	if seedCfg.OllamaBaseURL != "" {
		p, err := s.defaultProvider("Ollama", models.ProviderTypeOllama, "", seedCfg.OllamaBaseURL, 3,
			[]string{"llama3.1", "qwen2.5"})
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, p)
	}

	return defaults, nil
}

// defaultProvider 构建单个默认供应商记录
func (s *Service) defaultProvider(name string, typ models.ProviderType, apiKey, baseURL string, priority int, modelList []string) (*models.Provider, error) {
	provider := &models.Provider{
		Name:                  name,
		Type:                  typ,
		BaseURL:               baseURL,
		Enabled:               true,
		Priority:              priority,
		MaxRequestsPerMinute:  DefaultMaxRequestsPerMinute,
		MaxCostPerDay:         DefaultMaxCostPerDay,
		TimeoutMs:             DefaultTimeoutMs,
		RetryAttempts:         DefaultRetryAttempts,
		HealthCheckIntervalMs: DefaultHealthCheckIntervalMs,
		HealthStatus:          models.HealthStatusUnknown,
	}

	if err := provider.SetModelList(modelList); err != nil {
		return nil, err
	}

	if apiKey != "" {
		sealed, err := s.vault.Seal(apiKey)
		if err != nil {
			return nil, fmt.Errorf("加密默认供应商 API Key 失败: %w", err)
		}
		provider.APIKey = sealed
	}

	return provider, nil
}
