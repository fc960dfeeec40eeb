package registry

import (
	"testing"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/stretchr/testify/assert"
)

// validConfig 构建一个完全合法的配置
func validConfig(typ models.ProviderType) *models.Provider {
	p := &models.Provider{
		Name:                  "Test",
		Type:                  typ,
		APIKey:                "sk-test",
		Enabled:               true,
		Priority:              50,
		MaxRequestsPerMinute:  60,
		MaxCostPerDay:         10,
		TimeoutMs:             30000,
		RetryAttempts:         3,
		HealthCheckIntervalMs: 60000,
	}
	if typ.IsLocalType() {
		p.APIKey = ""
		p.BaseURL = "http://localhost:11434"
	}
	_ = p.SetModelList([]string{"gpt-4o"})
	return p
}

// TestValidateProvider_Valid 合法配置没有任何违规项
func TestValidateProvider_Valid(t *testing.T) {
	for _, typ := range models.KnownProviderTypes {
		violations := ValidateProvider(validConfig(typ))
		assert.Empty(t, violations, "type %s should be valid", typ)
	}
}

// TestValidateProvider_Rules 逐条校验规则
func TestValidateProvider_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Provider)
	}{
		{"empty name", func(p *models.Provider) { p.Name = "  " }},
		{"unknown type", func(p *models.Provider) { p.Type = "aws" }},
		{"priority too low", func(p *models.Provider) { p.Priority = 0 }},
		{"priority too high", func(p *models.Provider) { p.Priority = 101 }},
		{"empty models", func(p *models.Provider) { p.Models = "[]" }},
		{"rpm below 1", func(p *models.Provider) { p.MaxRequestsPerMinute = 0 }},
		{"negative budget", func(p *models.Provider) { p.MaxCostPerDay = -1 }},
		{"timeout too small", func(p *models.Provider) { p.TimeoutMs = 999 }},
		{"retry negative", func(p *models.Provider) { p.RetryAttempts = -1 }},
		{"retry too large", func(p *models.Provider) { p.RetryAttempts = 11 }},
		{"interval too small", func(p *models.Provider) { p.HealthCheckIntervalMs = 9999 }},
		{"cloud missing key", func(p *models.Provider) { p.APIKey = "" }},
		{"bad url scheme", func(p *models.Provider) { p.BaseURL = "ftp://example.com" }},
		{"url trailing slash", func(p *models.Provider) { p.BaseURL = "https://example.com/" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validConfig(models.ProviderTypeOpenAI)
			tt.mutate(p)
			violations := ValidateProvider(p)
			assert.NotEmpty(t, violations, "expected violation for %s", tt.name)
		})
	}
}

// TestValidateProvider_LocalRequiresBaseURL 本地类型必须配置 BaseURL
func TestValidateProvider_LocalRequiresBaseURL(t *testing.T) {
	p := validConfig(models.ProviderTypeOllama)
	p.BaseURL = ""

	violations := ValidateProvider(p)
	assert.Contains(t, violations, "base_url is required for locally-hosted providers")
}

// TestValidateProvider_LocalNoKeyRequired 本地类型无需 API Key
func TestValidateProvider_LocalNoKeyRequired(t *testing.T) {
	p := validConfig(models.ProviderTypeOllama)
	p.APIKey = ""

	violations := ValidateProvider(p)
	assert.Empty(t, violations)
}

// TestValidateProvider_CollectsAllViolations 校验返回完整违规列表而不只是第一条
func TestValidateProvider_CollectsAllViolations(t *testing.T) {
	p := validConfig(models.ProviderTypeOpenAI)
	p.Name = ""
	p.Priority = 0
	p.TimeoutMs = 0
	p.RetryAttempts = 99
	p.Models = "[]"

	violations := ValidateProvider(p)
	assert.GreaterOrEqual(t, len(violations), 5, "all violations must be reported, got %v", violations)
}

// TestValidationError_Unwrap ValidationError 可用 errors.Is 匹配
func TestValidationError_Unwrap(t *testing.T) {
	err := &ValidationError{Violations: []string{"name is required"}}
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "name is required")
}
