package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"homebroker/internal/bus"
	"homebroker/internal/config"
	"homebroker/internal/events"
	"homebroker/internal/feed"
	"homebroker/internal/logger"
	"homebroker/internal/orders"
	"homebroker/internal/store/history"
	"homebroker/internal/store/sqlite"
	httpapi "homebroker/internal/transport/http"
)

// App 负责应用级编排：初始化依赖→启动 HTTP 与后台循环→有序关闭。
type App struct {
	cfg        *config.Config
	feed       *feed.Feed
	store      *sqlite.SqliteStore
	history    *history.Store
	queue      *bus.Queue
	hub        *events.Hub
	httpSrv    *httpapi.Server
	reconciler *orders.Reconciler
}

// Run 启动服务，直到 ctx 取消或某个组件失败。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	a.hub.Start(ctx)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return a.reconciler.Run(ctx)
	})

	return group.Wait()
}

// close 按构建的相反顺序释放句柄。
func (a *App) close() {
	a.hub.Close()
	a.feed.Close()
	a.queue.Close()
	if err := a.history.Close(); err != nil {
		logger.Warnf("关闭价格日线库失败: %v", err)
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("关闭主库失败: %v", err)
	}
}

// Queue 暴露底层消息队列（撮合引擎集成/测试用）。
func (a *App) Queue() *bus.Queue {
	if a == nil {
		return nil
	}
	return a.queue
}

// Hub 暴露事件订阅中心（测试用）。
func (a *App) Hub() *events.Hub {
	if a == nil {
		return nil
	}
	return a.hub
}
