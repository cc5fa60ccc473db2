package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"homebroker/internal/assets"
	"homebroker/internal/events"
	"homebroker/internal/orders"
	"homebroker/internal/store"
	"homebroker/internal/store/model"
	"homebroker/internal/wallets"
)

// Router 挂载业务路由。
type Router struct {
	orders  *orders.Service
	assets  *assets.Service
	wallets *wallets.Service
	hub     *events.Hub
}

// NewRouter 构造 API router。
func NewRouter(o *orders.Service, a *assets.Service, w *wallets.Service, hub *events.Hub) *Router {
	return &Router{orders: o, assets: a, wallets: w, hub: hub}
}

// Register 挂载全部路由。
func (r *Router) Register(engine *gin.Engine) {
	if engine == nil {
		return
	}
	engine.POST("/assets", r.handleAssetCreate)
	engine.GET("/assets", r.handleAssetList)
	engine.GET("/assets/events", r.handleAssetEvents)
	engine.GET("/assets/:id", r.handleAssetGet)

	engine.POST("/wallets", r.handleWalletCreate)
	engine.GET("/wallets/:id/assets", r.handleWalletAssetList)
	engine.POST("/wallets/:id/assets", r.handleWalletAssetCreate)
	engine.GET("/wallets/:id/assets/events", r.handleWalletAssetEvents)

	engine.POST("/orders", r.handleOrderCreate)
	engine.GET("/orders", r.handleOrderList)
	engine.GET("/orders/events", r.handleOrderEvents)
	engine.POST("/orders/settle", r.handleOrderSettle)
}

// writeServiceError 把服务层错误映射成结构化响应：版本冲突可重试
// （409），not found 与校验失败不可重试（404/422）。
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "retryable": false})
	case errors.Is(err, store.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, orders.ErrValidation),
		errors.Is(err, assets.ErrValidation),
		errors.Is(err, wallets.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "retryable": false})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (r *Router) handleAssetCreate(c *gin.Context) {
	var req struct {
		ID     string          `json:"id"`
		Symbol string          `json:"symbol" binding:"required"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	asset, err := r.assets.Create(c.Request.Context(), assets.CreateInput{
		ID:     req.ID,
		Symbol: req.Symbol,
		Price:  req.Price,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func (r *Router) handleAssetList(c *gin.Context) {
	list, err := r.assets.All(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (r *Router) handleAssetGet(c *gin.Context) {
	asset, err := r.assets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (r *Router) handleWalletCreate(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, err := r.wallets.CreateWallet(c.Request.Context(), req.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wallet)
}

func (r *Router) handleWalletAssetList(c *gin.Context) {
	list, err := r.wallets.ListWalletAssets(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (r *Router) handleWalletAssetCreate(c *gin.Context) {
	var req struct {
		AssetID string `json:"asset_id" binding:"required"`
		Shares  int    `json:"shares" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wa, err := r.wallets.CreateWalletAsset(c.Request.Context(), wallets.CreateWalletAssetInput{
		WalletID: c.Param("id"),
		AssetID:  req.AssetID,
		Shares:   req.Shares,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wa)
}

func (r *Router) handleOrderCreate(c *gin.Context) {
	var req struct {
		WalletID string          `json:"wallet_id" binding:"required"`
		AssetID  string          `json:"asset_id" binding:"required"`
		Type     model.OrderType `json:"type" binding:"required"`
		Shares   int             `json:"shares" binding:"required"`
		Price    decimal.Decimal `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := r.orders.Create(c.Request.Context(), orders.CreateInput{
		WalletID: req.WalletID,
		AssetID:  req.AssetID,
		Type:     req.Type,
		Shares:   req.Shares,
		Price:    req.Price,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (r *Router) handleOrderList(c *gin.Context) {
	walletID := strings.TrimSpace(c.Query("wallet_id"))
	list, err := r.orders.List(c.Request.Context(), walletID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// handleOrderSettle 是撮合引擎的内部回调。请求体先过 JSON Schema
// （兼容性契约），再进结算事务。版本冲突返回 409，由远端重读重提。
func (r *Router) handleOrderSettle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateSettleBody(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := decodeSettleRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := r.orders.Settle(c.Request.Context(), orders.SettleInput{
		OrderID:             req.OrderID,
		Status:              req.Status,
		NegotiatedShares:    req.NegotiatedShares,
		BrokerTransactionID: req.BrokerTransactionID,
		RelatedInvestorID:   req.RelatedInvestorID,
		Price:               req.Price,
	}); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "settled"})
}
