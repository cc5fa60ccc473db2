package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"homebroker/internal/store/model"
)

// settleSchemaJSON 描述撮合引擎回调的请求体。这是双方的兼容性契约，
// 改动必须保持向后兼容。
const settleSchemaJSON = `{
	"type": "object",
	"required": ["order_id", "status", "negotiated_shares", "broker_transaction_id", "related_investor_id", "price"],
	"properties": {
		"order_id":              {"type": "string", "minLength": 1},
		"status":                {"type": "string", "enum": ["PARTIAL", "CLOSED"]},
		"negotiated_shares":     {"type": "integer", "minimum": 1},
		"broker_transaction_id": {"type": "string", "minLength": 1},
		"related_investor_id":   {"type": "string", "minLength": 1},
		"price":                 {"type": "number", "exclusiveMinimum": 0}
	}
}`

var settleSchema = jsonschema.MustCompileString("settle.json", settleSchemaJSON)

func validateSettleBody(body []byte) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := settleSchema.Validate(doc); err != nil {
		return fmt.Errorf("settle request rejected by schema: %w", err)
	}
	return nil
}

type settleRequest struct {
	OrderID             string            `json:"order_id"`
	Status              model.OrderStatus `json:"status"`
	NegotiatedShares    int               `json:"negotiated_shares"`
	BrokerTransactionID string            `json:"broker_transaction_id"`
	RelatedInvestorID   string            `json:"related_investor_id"`
	Price               decimal.Decimal   `json:"price"`
}

func decodeSettleRequest(body []byte) (*settleRequest, error) {
	var req settleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
