// Package events 把已提交的存储变更转成类型化领域事件，并按属主
// 推送给长连接订阅者。事件是提示而非事实来源：投递是最终一致的，
// 消费方随时可以退回直接读库。
package events

type Kind string

const (
	KindOrderCreated       Kind = "order-created"
	KindOrderUpdated       Kind = "order-updated"
	KindWalletAssetUpdated Kind = "wallet-asset-updated"
	KindAssetPriceChanged  Kind = "asset-price-changed"
)

// OwnerGlobal 订阅不归属任何钱包的事件（目前只有资产价格）。
const OwnerGlobal = ""

// Event 携带回读后的权威记录，不是 feed 里的通知本身。
type Event struct {
	Kind     Kind        `json:"type"`
	OwnerKey string      `json:"-"`
	Data     interface{} `json:"data"`
}
