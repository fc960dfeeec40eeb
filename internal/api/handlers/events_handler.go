package handlers

import (
	"net/http"
	"strconv"

	"github.com/Mizarx/Mizarx-Gateway/internal/events"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/gin-gonic/gin"
)

// 事件查询的条数上限
const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventsHandler 系统事件 HTTP 处理器
type EventsHandler struct {
	events *events.Service
}

// NewEventsHandler 创建 EventsHandler 实例
func NewEventsHandler(eventLog *events.Service) *EventsHandler {
	return &EventsHandler{events: eventLog}
}

// ListEvents 查询最近事件，可按类型过滤
func (h *EventsHandler) ListEvents(c *gin.Context) {
	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(c, "Invalid limit", raw)
			return
		}
		if parsed > maxEventLimit {
			parsed = maxEventLimit
		}
		limit = parsed
	}

	eventType := c.Query("type")

	var (
		list []models.SystemEvent
		err  error
	)
	if eventType != "" {
		list, err = h.events.GetEventsByType(eventType, limit)
	} else {
		list, err = h.events.GetRecentEvents(limit)
	}
	if err != nil {
		internalError(c, "Failed to query events")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}
