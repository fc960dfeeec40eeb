package registry

import (
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/secrets"
)

// CreateProviderRequest 创建供应商请求
type CreateProviderRequest struct {
	Name                  string              `json:"name" binding:"required"`
	Type                  models.ProviderType `json:"type" binding:"required"`
	Models                []string            `json:"models" binding:"required"`
	APIKey                string              `json:"api_key"`
	BaseURL               string              `json:"base_url" binding:"omitempty,url"`
	Enabled               *bool               `json:"enabled"`
	Priority              *int                `json:"priority"`
	MaxRequestsPerMinute  *int                `json:"max_requests_per_minute"`
	MaxCostPerDay         *float64            `json:"max_cost_per_day"`
	TimeoutMs             *int                `json:"timeout_ms"`
	RetryAttempts         *int                `json:"retry_attempts"`
	HealthCheckIntervalMs *int                `json:"health_check_interval_ms"`
}

// UpdateProviderRequest 更新供应商请求（部分更新，nil 字段不修改）
type UpdateProviderRequest struct {
	Name                  *string   `json:"name"`
	Models                *[]string `json:"models"`
	APIKey                *string   `json:"api_key"`
	BaseURL               *string   `json:"base_url" binding:"omitempty,url"`
	Enabled               *bool     `json:"enabled"`
	Priority              *int      `json:"priority"`
	MaxRequestsPerMinute  *int      `json:"max_requests_per_minute"`
	MaxCostPerDay         *float64  `json:"max_cost_per_day"`
	TimeoutMs             *int      `json:"timeout_ms"`
	RetryAttempts         *int      `json:"retry_attempts"`
	HealthCheckIntervalMs *int      `json:"health_check_interval_ms"`
}

// ProviderResponse 供应商响应
// API Key 永远脱敏，只暴露 has_api_key 布尔值
type ProviderResponse struct {
	ID                    uint                `json:"id"`
	Name                  string              `json:"name"`
	Type                  models.ProviderType `json:"type"`
	Enabled               bool                `json:"enabled"`
	Priority              int                 `json:"priority"`
	Models                []string            `json:"models"`
	HasAPIKey             bool                `json:"has_api_key"`
	APIKey                string              `json:"api_key,omitempty"` // 固定占位格式
	BaseURL               string              `json:"base_url,omitempty"`
	MaxRequestsPerMinute  int                 `json:"max_requests_per_minute"`
	MaxCostPerDay         float64             `json:"max_cost_per_day"`
	TimeoutMs             int                 `json:"timeout_ms"`
	RetryAttempts         int                 `json:"retry_attempts"`
	HealthCheckIntervalMs int                 `json:"health_check_interval_ms"`
	HealthStatus          models.HealthStatus `json:"health_status"`
	LastHealthCheckAt     *time.Time          `json:"last_health_check_at,omitempty"`
	LastHealthError       string              `json:"last_health_error,omitempty"`
	TotalRequests         int64               `json:"total_requests"`
	TotalCost             float64             `json:"total_cost"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ToProviderResponse 转换为响应（API Key 脱敏）
func ToProviderResponse(p *models.Provider) *ProviderResponse {
	hasKey := p.APIKey != ""
	return &ProviderResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		Type:                  p.Type,
		Enabled:               p.Enabled,
		Priority:              p.Priority,
		Models:                p.ModelList(),
		HasAPIKey:             hasKey,
		APIKey:                secrets.MaskKey(hasKey),
		BaseURL:               p.BaseURL,
		MaxRequestsPerMinute:  p.MaxRequestsPerMinute,
		MaxCostPerDay:         p.MaxCostPerDay,
		TimeoutMs:             p.TimeoutMs,
		RetryAttempts:         p.RetryAttempts,
		HealthCheckIntervalMs: p.HealthCheckIntervalMs,
		HealthStatus:          p.HealthStatus,
		LastHealthCheckAt:     p.LastHealthCheckAt,
		LastHealthError:       p.LastHealthError,
		TotalRequests:         p.TotalRequests,
		TotalCost:             p.TotalCost,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}
