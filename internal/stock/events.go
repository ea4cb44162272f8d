package stock

import (
	"encoding/json"
	"time"
)

const (
	TopicStockAdjusted = "inventory.stock.adjusted"
	TopicStockReserved = "inventory.stock.reserved"
	TopicStockRejected = "inventory.stock.rejected"
	TopicStockReleased = "inventory.stock.released"

	// Consumed by the sweeper: an order gave up its claim.
	TopicOrderCancelled = "order.cancelled"
)

const (
	EventStockAdjusted  = "StockAdjusted"
	EventStockReserved  = "StockReserved"
	EventStockRejected  = "StockRejected"
	EventStockReleased  = "StockReleased"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type LineQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type StockAdjustedPayload struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	WarehouseID string `json:"warehouse_id"`
	Delta       int    `json:"delta"`
	Reason      string `json:"reason,omitempty"`
}

type StockReservedPayload struct {
	OrderID string    `json:"order_id"`
	Items   []LineQty `json:"items"`
}

type StockRejectedPayload struct {
	OrderID     string   `json:"order_id"`
	Reason      string   `json:"reason"` // e.g. OUT_OF_STOCK
	FailedItems []string `json:"failed_items"`
}

type StockReleasedPayload struct {
	OrderID string `json:"order_id"`
}

type OrderCancelledPayload struct {
	OrderID string `json:"order_id"`
}

// PartitionKey keeps all events for one requester on one partition.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
