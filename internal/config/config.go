package config

import (
	"fmt"
	"os"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`              // 数据库文件路径
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大生命周期
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 是否自动迁移
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// HealthConfig 健康检查配置
type HealthConfig struct {
	ProbeTimeoutCeiling time.Duration `mapstructure:"probe_timeout_ceiling"` // 单次探测超时上限
	MaxConcurrentProbes int           `mapstructure:"max_concurrent_probes"` // 批量探测并发上限
	HistorySize         int           `mapstructure:"history_size"`          // 每个供应商保留的最近探测记录数
}

// SeedConfig 默认供应商播种配置
// 凭证来自环境变量，绝不写入代码或日志
type SeedConfig struct {
	OpenAIKey     string
	AnthropicKey  string
	OllamaBaseURL string
}

// CostConfig 成本告警配置
type CostConfig struct {
	DailyLimit   float64 `mapstructure:"daily_limit"`   // 全局每日成本上限（美元），0 表示不告警
	MonthlyLimit float64 `mapstructure:"monthly_limit"` // 全局每月成本上限（美元），0 表示不告警
}

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Health   HealthConfig   `mapstructure:"health"`
	Seed     SeedConfig
	Cost     CostConfig `mapstructure:"cost"`
}

// LoadConfig 加载配置（默认值 + 环境变量覆盖）
func LoadConfig() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:     8080,
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Path:            "./data/mizarx.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
		Health: HealthConfig{
			ProbeTimeoutCeiling: 10 * time.Second,
			MaxConcurrentProbes: 8,
			HistorySize:         20,
		},
		Cost: CostConfig{
			DailyLimit:   0,
			MonthlyLimit: 0,
		},
	}

	// 环境变量覆盖
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}

	if limit := os.Getenv("COST_DAILY_LIMIT"); limit != "" {
		var v float64
		if _, err := fmt.Sscanf(limit, "%f", &v); err == nil {
			config.Cost.DailyLimit = v
		}
	}

	if limit := os.Getenv("COST_MONTHLY_LIMIT"); limit != "" {
		var v float64
		if _, err := fmt.Sscanf(limit, "%f", &v); err == nil {
			config.Cost.MonthlyLimit = v
		}
	}

	// 播种凭证
	config.Seed = SeedConfig{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:  os.Getenv("ANTHROPIC_API_KEY"),
		OllamaBaseURL: os.Getenv("OLLAMA_BASE_URL"),
	}

	return config, nil
}
