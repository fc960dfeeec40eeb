package health

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
)

// 未配置 BaseURL 时各云端类型使用的官方端点
var defaultBaseURLs = map[models.ProviderType]string{
	models.ProviderTypeOpenAI:     "https://api.openai.com",
	models.ProviderTypeAnthropic:  "https://api.anthropic.com",
	models.ProviderTypeGoogle:     "https://generativelanguage.googleapis.com",
	models.ProviderTypeMistral:    "https://api.mistral.ai",
	models.ProviderTypeGroq:       "https://api.groq.com/openai",
	models.ProviderTypePerplexity: "https://api.perplexity.ai",
}

// buildProbeRequest 按供应商类型构建探测请求
// 探测使用轻量的模型列表端点，绝不发起真实补全调用
func buildProbeRequest(provider *models.Provider, apiKey string) (*http.Request, error) {
	baseURL := strings.TrimRight(provider.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURLs[provider.Type]
	}

	var req *http.Request
	var err error

	switch provider.Type {
	case models.ProviderTypeOllama:
		// 本地部署：无需认证的标签列表端点
		req, err = http.NewRequest(http.MethodGet, baseURL+"/api/tags", nil)

	case models.ProviderTypeAnthropic:
		req, err = http.NewRequest(http.MethodGet, baseURL+"/v1/models", nil)
		if err == nil {
			req.Header.Set("x-api-key", apiKey)
			req.Header.Set("anthropic-version", "2023-06-01")
		}

	case models.ProviderTypeGoogle:
		// key 走请求头而不是查询参数：URL 会出现在传输错误消息里，
		// 进而落到 last_health_error 等诊断面，绝不能携带凭证
		req, err = http.NewRequest(http.MethodGet, baseURL+"/v1beta/models", nil)
		if err == nil {
			req.Header.Set("x-goog-api-key", apiKey)
		}

	default:
		// OpenAI 兼容类型（openai/mistral/groq/perplexity）
		req, err = http.NewRequest(http.MethodGet, baseURL+"/v1/models", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("创建探测请求失败: %w", err)
	}

	req.Header.Set("User-Agent", "Mizarx-Gateway/1.0")
	return req, nil
}

// classifyStatusCode 将 HTTP 状态码归类为健康结论
// 认证失败单独标注，避免运维误以为重试就能恢复
func classifyStatusCode(statusCode int) (healthy bool, message string) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return true, ""
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return false, fmt.Sprintf("authentication failed (HTTP %d): check API key", statusCode)
	default:
		return false, fmt.Sprintf("HTTP %d", statusCode)
	}
}
