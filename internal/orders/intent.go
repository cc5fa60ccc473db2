package orders

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"homebroker/internal/store/model"
)

// TopicInput 是外部撮合引擎消费的主题。
const TopicInput = "input"

// IntentMessage 是订单创建 intent 的线上格式。字段是与撮合引擎的
// 兼容性契约，不允许不兼容变更。
type IntentMessage struct {
	OrderID    string          `json:"order_id"`
	InvestorID string          `json:"investor_id"`
	AssetID    string          `json:"asset_id"`
	Shares     int             `json:"shares"`
	Price      decimal.Decimal `json:"price"`
	OrderType  model.OrderType `json:"order_type"`
}

func intentFromOrder(o *model.Order) IntentMessage {
	return IntentMessage{
		OrderID:    o.ID,
		InvestorID: o.WalletID,
		AssetID:    o.AssetID,
		Shares:     o.Shares,
		Price:      o.Price,
		OrderType:  o.Type,
	}
}

func (m IntentMessage) encode() ([]byte, error) {
	return json.Marshal(m)
}
