package models

import "time"

// UsageRecord 用量记录
// 每次补全调用（无论成功失败）写入一条；只追加，写入后不再修改
// 冗余保存供应商名称和类型快照，供应商删除后历史记录仍然完整
type UsageRecord struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	RequestID string `gorm:"type:varchar(36);uniqueIndex;not null" json:"request_id"` // UUID
	UserID    string `gorm:"type:varchar(100);index" json:"user_id,omitempty"`

	ProviderID   uint         `gorm:"not null;index" json:"provider_id"`
	ProviderName string       `gorm:"type:varchar(100);not null" json:"provider_name"` // 快照
	ProviderType ProviderType `gorm:"type:varchar(20);not null" json:"provider_type"`  // 快照
	Model        string       `gorm:"type:varchar(100);not null" json:"model"`

	TokensIn  int     `gorm:"not null;default:0" json:"tokens_in"`
	TokensOut int     `gorm:"not null;default:0" json:"tokens_out"`
	Cost      float64 `gorm:"not null;default:0" json:"cost"` // 美元
	LatencyMs int64   `gorm:"not null;default:0" json:"latency_ms"`

	Success   bool      `gorm:"not null" json:"success"`
	ErrorKind string    `gorm:"type:varchar(50)" json:"error_kind,omitempty"` // timeout/rate_limit/auth/server_error 等
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

// TableName 指定表名
func (UsageRecord) TableName() string {
	return "usage_records"
}

// TotalTokens 输入输出 token 总数
func (r *UsageRecord) TotalTokens() int {
	return r.TokensIn + r.TokensOut
}
