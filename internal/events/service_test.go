package events

import (
	"testing"

	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = database.AutoMigrate(&models.SystemEvent{})
	require.NoError(t, err)

	return database
}

func TestEventService_LogEvent(t *testing.T) {
	database := setupTestDB(t)
	service := NewService(database)

	// 测试记录事件
	err := service.LogInfo(models.EventTypeHealthChange, "健康状态变化", map[string]interface{}{
		"provider_id": 1,
		"status":      "healthy",
	})
	require.NoError(t, err)

	// 验证事件已保存
	var count int64
	database.Model(&models.SystemEvent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEventService_GetRecentEvents(t *testing.T) {
	database := setupTestDB(t)
	service := NewService(database)

	// 插入多个事件
	for i := 0; i < 15; i++ {
		service.LogInfo(models.EventTypeHealthChange, "测试事件", nil)
	}

	// 获取最近 10 条
	events, err := service.GetRecentEvents(10)
	require.NoError(t, err)
	assert.Equal(t, 10, len(events))
}

func TestEventService_GetEventsByType(t *testing.T) {
	database := setupTestDB(t)
	service := NewService(database)

	// 插入不同类型的事件
	service.LogInfo(models.EventTypeHealthChange, "健康状态变化1", nil)
	service.LogInfo(models.EventTypeHealthChange, "健康状态变化2", nil)
	service.LogWarning(models.EventTypeFailover, "故障转移", nil)

	// 按类型查询
	events, err := service.GetEventsByType(models.EventTypeHealthChange, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, len(events))

	for _, evt := range events {
		assert.Equal(t, models.EventTypeHealthChange, evt.Type)
	}
}

func TestEventService_Levels(t *testing.T) {
	database := setupTestDB(t)
	service := NewService(database)

	// 插入不同级别的事件
	service.LogInfo(models.EventTypeHealthChange, "信息事件", nil)
	service.LogWarning(models.EventTypeFailover, "警告事件", nil)
	service.LogError(models.EventTypeProviderError, "错误事件", nil)

	events, err := service.GetRecentEvents(10)
	require.NoError(t, err)
	require.Equal(t, 3, len(events))

	levels := make(map[string]int)
	for _, evt := range events {
		levels[evt.Level]++
	}
	assert.Equal(t, 1, levels[models.EventLevelInfo])
	assert.Equal(t, 1, levels[models.EventLevelWarning])
	assert.Equal(t, 1, levels[models.EventLevelError])
}

func TestEventService_CleanupOldEvents(t *testing.T) {
	database := setupTestDB(t)
	service := NewService(database)

	// 插入事件
	for i := 0; i < 5; i++ {
		service.LogInfo(models.EventTypeHealthChange, "测试事件", nil)
	}

	// 清理旧事件（保留最近 0 天，即全部清理）
	deleted, err := service.CleanupOldEvents(0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)

	// 验证已清理
	var count int64
	database.Model(&models.SystemEvent{}).Count(&count)
	assert.Equal(t, int64(0), count)
}
