package ledger

import (
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"gorm.io/gorm"
)

// RangeFilter 用量记录范围查询条件
type RangeFilter struct {
	UserID     string // 为空表示不过滤
	ProviderID uint   // 0 表示不过滤
	Start      time.Time
	End        time.Time
}

// Repository 用量记录数据访问层
// 记录只追加，写入后不再修改
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 追加一条用量记录
func (r *Repository) Create(record *models.UsageRecord) error {
	return r.db.Create(record).Error
}

// FindRange 按条件查询时间范围内的记录（时间升序）
func (r *Repository) FindRange(filter RangeFilter) ([]*models.UsageRecord, error) {
	var records []*models.UsageRecord

	query := r.db.Model(&models.UsageRecord{}).
		Where("timestamp >= ? AND timestamp < ?", filter.Start, filter.End)
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ProviderID != 0 {
		query = query.Where("provider_id = ?", filter.ProviderID)
	}

	err := query.Order("timestamp ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

// SumCost 汇总时间范围内的成本
func (r *Repository) SumCost(providerID uint, start, end time.Time) (float64, error) {
	return r.SumCostBy(RangeFilter{ProviderID: providerID, Start: start, End: end})
}

// SumCostBy 按过滤条件汇总成本
func (r *Repository) SumCostBy(filter RangeFilter) (float64, error) {
	var total float64

	query := r.db.Model(&models.UsageRecord{}).
		Where("timestamp >= ? AND timestamp < ?", filter.Start, filter.End)
	if filter.ProviderID != 0 {
		query = query.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	err := query.Select("COALESCE(SUM(cost), 0)").Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return total, nil
}
