package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderSettled  = "OrderSettled"
	EventOrderRejected = "OrderRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payloads ----

// Amounts travel as decimal strings so consumers never touch floats.
type SettledLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type OrderSettledPayload struct {
	OrderID     string        `json:"order_id"`
	BuyerID     string        `json:"buyer_id"`
	Lines       []SettledLine `json:"lines"`
	TotalAmount string        `json:"total_amount"`
}

type RejectedDetail struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type OrderRejectedPayload struct {
	BuyerID string           `json:"buyer_id"`
	Reason  string           `json:"reason"` // OUT_OF_STOCK | INSUFFICIENT_STOCK
	Details []RejectedDetail `json:"details,omitempty"`
}
