package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"homebroker/internal/events"
)

const ssePingInterval = 15 * time.Second

// streamEvents 把 hub 订阅转成 SSE 流。订阅者永远不会收到错误事件，
// 只会看到尽力而为的事件序列；断连即取消订阅。
func (r *Router) streamEvents(c *gin.Context, ownerKey string, kinds ...events.Kind) {
	if r.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "事件推送未启用"})
		return
	}
	sub, err := r.hub.Subscribe(ownerKey, kinds...)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	ping := time.NewTicker(ssePingInterval)
	defer ping.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev.Data)
			return true
		case <-ping.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().Unix()})
			return true
		}
	})
}

func (r *Router) handleOrderEvents(c *gin.Context) {
	walletID := strings.TrimSpace(c.Query("wallet_id"))
	if walletID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet_id is required"})
		return
	}
	r.streamEvents(c, walletID, events.KindOrderCreated, events.KindOrderUpdated)
}

func (r *Router) handleWalletAssetEvents(c *gin.Context) {
	walletID := strings.TrimSpace(c.Param("id"))
	if walletID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet id is required"})
		return
	}
	r.streamEvents(c, walletID, events.KindWalletAssetUpdated)
}

func (r *Router) handleAssetEvents(c *gin.Context) {
	r.streamEvents(c, events.OwnerGlobal, events.KindAssetPriceChanged)
}
