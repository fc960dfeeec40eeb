package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
)

var (
	// ErrValidation 配置校验失败
	ErrValidation = errors.New("invalid provider config")
)

// 配置取值范围
const (
	MinPriority      = 1
	MaxPriority      = 100
	MinTimeoutMs     = 1000
	MinRetryAttempts = 0
	MaxRetryAttempts = 10
	MinHealthCheckMs = 10000
)

// ValidationError 配置校验错误
// 携带完整的违规列表，绝不只返回第一条
type ValidationError struct {
	Violations []string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(e.Violations, "; "))
}

// Unwrap 支持 errors.Is(err, ErrValidation)
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidateProvider 校验供应商配置，返回所有违规项
// 空切片表示配置合法
func ValidateProvider(p *models.Provider) []string {
	var violations []string

	if strings.TrimSpace(p.Name) == "" {
		violations = append(violations, "name is required")
	}

	if !models.IsKnownProviderType(p.Type) {
		violations = append(violations, fmt.Sprintf("unknown provider type %q", p.Type))
	}

	if p.Priority < MinPriority || p.Priority > MaxPriority {
		violations = append(violations, fmt.Sprintf("priority must be between %d and %d", MinPriority, MaxPriority))
	}

	if len(p.ModelList()) == 0 {
		violations = append(violations, "models must be a non-empty list")
	}

	if p.MaxRequestsPerMinute < 1 {
		violations = append(violations, "max_requests_per_minute must be at least 1")
	}

	if p.MaxCostPerDay < 0 {
		violations = append(violations, "max_cost_per_day must not be negative")
	}

	if p.TimeoutMs < MinTimeoutMs {
		violations = append(violations, fmt.Sprintf("timeout_ms must be at least %d", MinTimeoutMs))
	}

	if p.RetryAttempts < MinRetryAttempts || p.RetryAttempts > MaxRetryAttempts {
		violations = append(violations, fmt.Sprintf("retry_attempts must be between %d and %d", MinRetryAttempts, MaxRetryAttempts))
	}

	if p.HealthCheckIntervalMs < MinHealthCheckMs {
		violations = append(violations, fmt.Sprintf("health_check_interval_ms must be at least %d", MinHealthCheckMs))
	}

	// 类型决定必填字段：本地类型必须有 BaseURL，云端类型必须有 API Key
	if models.IsKnownProviderType(p.Type) {
		if p.Type.IsLocalType() {
			if strings.TrimSpace(p.BaseURL) == "" {
				violations = append(violations, "base_url is required for locally-hosted providers")
			}
		} else {
			if strings.TrimSpace(p.APIKey) == "" {
				violations = append(violations, "api_key is required for cloud providers")
			}
		}
	}

	if p.BaseURL != "" {
		if err := validateBaseURL(p.BaseURL); err != nil {
			violations = append(violations, err.Error())
		}
	}

	return violations
}

// validateBaseURL 校验 BaseURL 格式
func validateBaseURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("base_url is not a valid URL: %v", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("base_url must use http or https")
	}

	if parsedURL.Host == "" {
		return errors.New("base_url must have a host")
	}

	if strings.HasSuffix(urlStr, "/") {
		return errors.New("base_url should not end with /")
	}

	return nil
}
