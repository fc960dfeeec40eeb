package models

import "time"

// SystemEvent 系统事件日志
// 记录编排层的重要事件：默认供应商播种、健康状态变化、故障转移、成本告警等
type SystemEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(50);not null;index" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Level     string    `gorm:"type:varchar(20);not null;default:'info'" json:"level"` // info, warning, error
	Metadata  string    `gorm:"type:json" json:"metadata,omitempty"`                   // 额外元数据（JSON 格式）
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SystemEvent) TableName() string {
	return "system_events"
}

// EventType 事件类型常量
const (
	EventTypeProviderSeeded = "provider_seeded" // 默认供应商播种
	EventTypeConfigChange   = "config_change"   // 供应商配置变更
	EventTypeHealthChange   = "health_change"   // 健康状态变化
	EventTypeFailover       = "failover"        // 故障转移
	EventTypeCostAlert      = "cost_alert"      // 成本告警
	EventTypeProviderError  = "provider_error"  // 供应商错误
)

// EventLevel 事件级别常量
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)
