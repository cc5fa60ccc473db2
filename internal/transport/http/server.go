// Package httpapi 暴露订单/资产/持仓的 HTTP 接口与事件推送流。
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homebroker/internal/assets"
	"homebroker/internal/events"
	"homebroker/internal/logger"
	"homebroker/internal/orders"
	"homebroker/internal/wallets"
)

// Server 承载 gin 路由与生命周期。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr    string
	Orders  *orders.Service
	Assets  *assets.Service
	Wallets *wallets.Service
	Hub     *events.Hub
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orders == nil || cfg.Assets == nil || cfg.Wallets == nil {
		return nil, errors.New("http server requires orders/assets/wallets services")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apiRouter := NewRouter(cfg.Orders, cfg.Assets, cfg.Wallets, cfg.Hub)
	apiRouter.Register(router)

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("HTTP 服务已启动（%s）", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler 暴露底层路由（测试用）。
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}
