package app

import (
	"fmt"
	"time"

	"homebroker/internal/assets"
	"homebroker/internal/bus"
	"homebroker/internal/config"
	"homebroker/internal/events"
	"homebroker/internal/feed"
	"homebroker/internal/logger"
	"homebroker/internal/orders"
	"homebroker/internal/store/history"
	"homebroker/internal/store/sqlite"
	httpapi "homebroker/internal/transport/http"
	"homebroker/internal/wallets"
)

// NewApp 按依赖顺序显式构建所有服务实例：feed → store → history →
// bus → services → bridge → hub → http。没有全局单例，句柄全部由
// App 持有并在关闭时按相反顺序释放。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	changeFeed := feed.New(cfg.Events.FeedBuffer)

	st, err := sqlite.NewSqliteStore(cfg.DB.Path, changeFeed)
	if err != nil {
		return nil, fmt.Errorf("打开主库失败: %w", err)
	}

	hist, err := history.NewStore(cfg.DB.HistoryPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("打开价格日线库失败: %w", err)
	}

	queue := bus.NewQueue(cfg.Bus.QueueCapacity)

	orderSvc, err := orders.NewService(orders.ServiceConfig{
		Store:          st,
		Publisher:      queue,
		History:        hist,
		PublishTimeout: time.Duration(cfg.Bus.PublishTimeoutSeconds) * time.Second,
		Retry: orders.RetryPolicy{
			MaxAttempts: cfg.Settle.RetryMaxAttempts,
			MinDelay:    time.Duration(cfg.Settle.RetryMinMS) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.Settle.RetryMaxMS) * time.Millisecond,
		},
	})
	if err != nil {
		return nil, err
	}
	assetSvc, err := assets.NewService(st)
	if err != nil {
		return nil, err
	}
	walletSvc, err := wallets.NewService(st)
	if err != nil {
		return nil, err
	}

	bridge, err := events.NewBridge(events.BridgeConfig{
		Feed:       changeFeed,
		Store:      st,
		BackoffMin: time.Duration(cfg.Events.ResubscribeMinMS) * time.Millisecond,
		BackoffMax: time.Duration(cfg.Events.ResubscribeMaxMS) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	hub, err := events.NewHub(bridge, cfg.Events.SubscriberBuffer)
	if err != nil {
		return nil, err
	}

	httpSrv, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:    cfg.HTTP.Addr,
		Orders:  orderSvc,
		Assets:  assetSvc,
		Wallets: walletSvc,
		Hub:     hub,
	})
	if err != nil {
		return nil, err
	}

	reconciler := orders.NewReconciler(orders.ReconcilerConfig{
		Store:          st,
		Publisher:      queue,
		Interval:       time.Duration(cfg.Bus.OutboxIntervalSeconds) * time.Second,
		MaxAttempts:    cfg.Bus.OutboxMaxAttempts,
		PublishTimeout: time.Duration(cfg.Bus.PublishTimeoutSeconds) * time.Second,
	})

	return &App{
		cfg:        cfg,
		feed:       changeFeed,
		store:      st,
		history:    hist,
		queue:      queue,
		hub:        hub,
		httpSrv:    httpSrv,
		reconciler: reconciler,
	}, nil
}
