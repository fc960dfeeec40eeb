package models

import (
	"encoding/json"
	"time"
)

// ProviderType 供应商类型
// 封闭集合，类型决定健康检查探测方式和必填字段
type ProviderType string

const (
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeGoogle     ProviderType = "google"
	ProviderTypeMistral    ProviderType = "mistral"
	ProviderTypeOllama     ProviderType = "ollama" // 本地部署，无需 API Key，必须配置 BaseURL
	ProviderTypeGroq       ProviderType = "groq"
	ProviderTypePerplexity ProviderType = "perplexity"
)

// KnownProviderTypes 所有合法的供应商类型
var KnownProviderTypes = []ProviderType{
	ProviderTypeOpenAI,
	ProviderTypeAnthropic,
	ProviderTypeGoogle,
	ProviderTypeMistral,
	ProviderTypeOllama,
	ProviderTypeGroq,
	ProviderTypePerplexity,
}

// IsKnownProviderType 检查供应商类型是否合法
func IsKnownProviderType(t ProviderType) bool {
	for _, known := range KnownProviderTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsLocalType 是否为本地部署类型（无需 API Key，必须配置 BaseURL）
func (t ProviderType) IsLocalType() bool {
	return t == ProviderTypeOllama
}

// HealthStatus 健康状态
type HealthStatus string

const (
	HealthStatusUnknown     HealthStatus = "unknown"
	HealthStatusHealthy     HealthStatus = "healthy"
	HealthStatusUnhealthy   HealthStatus = "unhealthy"
	HealthStatusDisabled    HealthStatus = "disabled"
	HealthStatusMaintenance HealthStatus = "maintenance"
)

// EligibleForSelection 该健康状态是否允许参与供应商选择
// unknown 视为可用：从未探测过的供应商仍应被尝试
func (s HealthStatus) EligibleForSelection() bool {
	return s == HealthStatusHealthy || s == HealthStatusUnknown
}

// Provider 供应商模型
// 存储 AI 服务供应商的配置、限额和健康状态
type Provider struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	Name     string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Type     ProviderType `gorm:"type:varchar(20);not null;index" json:"type"`
	Enabled  bool         `gorm:"not null" json:"enabled"`
	Priority int          `gorm:"not null;default:50" json:"priority"` // 1-100，数字越小优先级越高

	// Models 支持的模型列表，JSON 数组存储
	Models string `gorm:"type:text;not null" json:"models"`

	// APIKey 加密存储，本地类型可为空
	// 永不参与 JSON 序列化：对外展示一律走脱敏 DTO
	APIKey  string `gorm:"type:text" json:"-"`
	BaseURL string `gorm:"type:varchar(255)" json:"base_url"`

	// 限额配置
	MaxRequestsPerMinute int     `gorm:"not null;default:60" json:"max_requests_per_minute"`
	MaxCostPerDay        float64 `gorm:"not null;default:10" json:"max_cost_per_day"` // 美元

	// 调用配置
	TimeoutMs             int `gorm:"not null;default:30000" json:"timeout_ms"`
	RetryAttempts         int `gorm:"not null;default:3" json:"retry_attempts"`
	HealthCheckIntervalMs int `gorm:"not null;default:60000" json:"health_check_interval_ms"`

	// 健康状态（由 HealthChecker 回写）
	HealthStatus      HealthStatus `gorm:"type:varchar(20);not null;default:'unknown'" json:"health_status"`
	LastHealthCheckAt *time.Time   `json:"last_health_check_at,omitempty"`
	LastHealthError   string       `gorm:"type:text" json:"last_health_error,omitempty"`

	// 生命周期累计统计（由 UsageLedger 回写）
	TotalRequests int64   `gorm:"not null;default:0" json:"total_requests"`
	TotalCost     float64 `gorm:"not null;default:0" json:"total_cost"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Provider) TableName() string {
	return "providers"
}

// ModelList 解析 Models 字段为字符串切片
func (p *Provider) ModelList() []string {
	var list []string
	if err := json.Unmarshal([]byte(p.Models), &list); err != nil {
		return nil
	}
	return list
}

// SetModelList 序列化模型列表到 Models 字段
func (p *Provider) SetModelList(list []string) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	p.Models = string(data)
	return nil
}
