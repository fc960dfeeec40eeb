package api

import (
	"github.com/Mizarx/Mizarx-Gateway/internal/analytics"
	"github.com/Mizarx/Mizarx-Gateway/internal/api/handlers"
	"github.com/Mizarx/Mizarx-Gateway/internal/events"
	"github.com/Mizarx/Mizarx-Gateway/internal/health"
	"github.com/Mizarx/Mizarx-Gateway/internal/ledger"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
	"github.com/Mizarx/Mizarx-Gateway/internal/selector"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services 路由依赖的核心组件
// 所有组件在 main 中显式构造并注入，没有隐式全局实例
type Services struct {
	Registry   *registry.Service
	Repo       *registry.Repository
	Checker    *health.Checker
	Selector   *selector.Selector
	Ledger     *ledger.Ledger
	Aggregator *analytics.Aggregator
	Events     *events.Service
	CostLimits analytics.AlertLimits // 启动配置的全局成本限额
}

// SetupRouter 配置路由
func SetupRouter(svc *Services) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	// 网关自身健康端点
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Mizarx-Gateway",
		})
	})

	providerHandler := handlers.NewProviderHandler(svc.Registry)
	healthHandler := handlers.NewHealthHandler(svc.Checker, svc.Repo)
	usageHandler := handlers.NewUsageHandler(svc.Selector, svc.Ledger)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Aggregator, svc.CostLimits)
	eventsHandler := handlers.NewEventsHandler(svc.Events)

	apiGroup := router.Group("/api")
	{
		providers := apiGroup.Group("/providers")
		{
			providers.POST("", providerHandler.CreateProvider)
			providers.GET("", providerHandler.ListProviders)
			providers.GET("/:id", providerHandler.GetProvider)
			providers.PUT("/:id", providerHandler.UpdateProvider)
			providers.PATCH("/:id/toggle", providerHandler.ToggleProvider)
			providers.PATCH("/:id/priority", providerHandler.SetPriority)
			providers.DELETE("/:id", providerHandler.DeleteProvider)

			providers.POST("/:id/check", healthHandler.CheckOne)
			providers.GET("/:id/health", healthHandler.GetStatus)
		}

		healthGroup := apiGroup.Group("/health")
		{
			healthGroup.POST("/check-all", healthHandler.CheckAll)
			healthGroup.POST("/refresh", healthHandler.RefreshAll)
		}

		apiGroup.GET("/select", usageHandler.SelectCandidates)
		apiGroup.POST("/usage", usageHandler.RecordAttempt)

		apiGroup.GET("/events", eventsHandler.ListEvents)

		analyticsGroup := apiGroup.Group("/analytics")
		{
			analyticsGroup.GET("", analyticsHandler.GetAnalytics)
			analyticsGroup.POST("/alerts", analyticsHandler.GetCostAlerts)
			analyticsGroup.POST("/recommendations", analyticsHandler.GetRecommendations)
		}
	}

	return router
}
