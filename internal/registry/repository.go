package registry

import (
	"errors"
	"time"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrProviderNotFound 供应商不存在
	ErrProviderNotFound = errors.New("provider not found")
	// ErrProviderNameExists 供应商名称已存在
	ErrProviderNameExists = errors.New("provider name already exists")
)

// ListFilter 列表查询过滤条件
type ListFilter struct {
	Type        models.ProviderType // 为空表示不过滤类型
	EnabledOnly bool
}

// Repository 供应商数据访问层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 创建供应商
func (r *Repository) Create(provider *models.Provider) error {
	return r.db.Create(provider).Error
}

// FindByID 根据 ID 查找供应商
func (r *Repository) FindByID(id uint) (*models.Provider, error) {
	var provider models.Provider
	err := r.db.First(&provider, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &provider, nil
}

// FindByName 根据名称查找供应商
func (r *Repository) FindByName(name string) (*models.Provider, error) {
	var provider models.Provider
	err := r.db.Where("name = ?", name).First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &provider, nil
}

// FindAll 按过滤条件查找供应商
// 结果按 priority 升序、id 升序排列，保证顺序确定
func (r *Repository) FindAll(filter ListFilter) ([]*models.Provider, error) {
	var providers []*models.Provider

	query := r.db.Model(&models.Provider{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.EnabledOnly {
		query = query.Where("enabled = ?", true)
	}

	err := query.Order("priority ASC, id ASC").Find(&providers).Error
	if err != nil {
		return nil, err
	}

	return providers, nil
}

// Count 统计供应商总数
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Provider{}).Count(&count).Error
	return count, err
}

// Update 更新供应商（整行保存）
func (r *Repository) Update(provider *models.Provider) error {
	return r.db.Save(provider).Error
}

// UpdateToggle 更新启用状态和对应的健康状态（单条 UPDATE，读者不会看到中间态）
func (r *Repository) UpdateToggle(id uint, enabled bool, status models.HealthStatus) error {
	result := r.db.Model(&models.Provider{}).Where("id = ?", id).Updates(map[string]interface{}{
		"enabled":       enabled,
		"health_status": status,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// UpdatePriority 仅更新优先级
func (r *Repository) UpdatePriority(id uint, priority int) error {
	result := r.db.Model(&models.Provider{}).Where("id = ?", id).Update("priority", priority)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// UpdateHealth 回写健康检查结果
func (r *Repository) UpdateHealth(id uint, status models.HealthStatus, checkedAt time.Time, healthErr string) error {
	result := r.db.Model(&models.Provider{}).Where("id = ?", id).Updates(map[string]interface{}{
		"health_status":        status,
		"last_health_check_at": checkedAt,
		"last_health_error":    healthErr,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// IncrementUsage 累加生命周期统计（原子 SQL 表达式，避免读改写竞争）
func (r *Repository) IncrementUsage(id uint, cost float64) error {
	return r.db.Model(&models.Provider{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_requests": gorm.Expr("total_requests + 1"),
		"total_cost":     gorm.Expr("total_cost + ?", cost),
	}).Error
}

// Delete 删除供应商（硬删除；历史用量靠快照字段保留）
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&models.Provider{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// CheckNameExists 检查名称是否存在（排除指定 ID）
func (r *Repository) CheckNameExists(name string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&models.Provider{}).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id != ?", excludeID)
	}
	err := query.Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Transaction 在事务中执行回调（播种用）
func (r *Repository) Transaction(fn func(txRepo *Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}
