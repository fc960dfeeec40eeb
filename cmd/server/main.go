package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mizarx/Mizarx-Gateway/internal/analytics"
	"github.com/Mizarx/Mizarx-Gateway/internal/api"
	"github.com/Mizarx/Mizarx-Gateway/internal/config"
	"github.com/Mizarx/Mizarx-Gateway/internal/db"
	"github.com/Mizarx/Mizarx-Gateway/internal/events"
	"github.com/Mizarx/Mizarx-Gateway/internal/health"
	"github.com/Mizarx/Mizarx-Gateway/internal/ledger"
	"github.com/Mizarx/Mizarx-Gateway/internal/models"
	"github.com/Mizarx/Mizarx-Gateway/internal/registry"
	"github.com/Mizarx/Mizarx-Gateway/internal/secrets"
	"github.com/Mizarx/Mizarx-Gateway/internal/selector"
)

const (
	// Version 项目版本
	Version = "0.1.0"
	// AppName 应用名称
	AppName = "Mizarx-Gateway"
	// eventRetentionDays 系统事件保留天数
	eventRetentionDays = 30
)

func main() {
	log.Printf("=== %s v%s ===", AppName, Version)
	log.Println("轻量级 AI 供应商编排网关")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}

	database, err := db.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("❌ 初始化数据库失败: %v", err)
	}
	defer db.CloseDatabase(database)

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database); err != nil {
			log.Fatalf("❌ 数据库迁移失败: %v", err)
		}
	}

	vaultKey, err := secrets.LoadVaultKey()
	if err != nil {
		log.Fatalf("❌ 加载加密密钥失败: %v", err)
	}
	vault, err := secrets.NewVault(vaultKey)
	if err != nil {
		log.Fatalf("❌ 初始化凭证保险箱失败: %v", err)
	}
	if !vault.Enabled() {
		log.Println("⚠️ 未配置 VAULT_KEY，API Key 将以明文落库（仅建议开发环境）")
	}

	// 显式构造核心组件并注入依赖
	providerRepo := registry.NewRepository(database)
	eventService := events.NewService(database)
	registryService := registry.NewService(providerRepo, vault, eventService)

	// 事件滚动保留，过期的在启动时清掉
	if removed, err := eventService.CleanupOldEvents(eventRetentionDays); err != nil {
		log.Printf("⚠️ 清理旧事件失败: %v", err)
	} else if removed > 0 {
		log.Printf("🧹 清理 %d 条超过 %d 天的旧事件", removed, eventRetentionDays)
	}

	checker := health.NewChecker(providerRepo, vault, eventService, health.Options{
		Ceiling:     cfg.Health.ProbeTimeoutCeiling,
		MaxParallel: cfg.Health.MaxConcurrentProbes,
		HistorySize: cfg.Health.HistorySize,
	})

	usageRepo := ledger.NewRepository(database)
	usageLedger := ledger.NewLedger(usageRepo, providerRepo)
	providerSelector := selector.NewSelector(providerRepo, usageLedger, eventService)
	aggregator := analytics.NewAggregator(usageRepo, analytics.DefaultThresholds(), eventService)

	// 幂等播种默认供应商
	count, err := registryService.SeedDefaults(cfg.Seed)
	if err != nil {
		log.Fatalf("❌ 播种默认供应商失败: %v", err)
	}
	log.Printf("📦 供应商注册表就绪，共 %d 个供应商", count)
	_ = eventService.LogInfo(models.EventTypeProviderSeeded,
		fmt.Sprintf("启动完成，注册表共 %d 个供应商", count), nil)

	// 后台健康检查调度器
	ctx, cancel := context.WithCancel(context.Background())
	scheduler := health.NewScheduler(checker, providerRepo, health.DefaultResyncInterval)
	scheduler.Start(ctx)

	router := api.SetupRouter(&api.Services{
		Registry:   registryService,
		Repo:       providerRepo,
		Checker:    checker,
		Selector:   providerSelector,
		Ledger:     usageLedger,
		Aggregator: aggregator,
		Events:     eventService,
		CostLimits: analytics.AlertLimits{
			DailyLimit:   cfg.Cost.DailyLimit,
			MonthlyLimit: cfg.Cost.MonthlyLimit,
		},
	})

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("🛑 收到退出信号，开始关停...")
		scheduler.Stop()
		cancel()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("🚀 服务启动于 %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("❌ 服务启动失败: %v", err)
	}
}
