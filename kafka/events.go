package kafka

import (
	"time"

	"github.com/averta/stocksync/internal/catalog/domain"
)

// DefaultTopic is where product-change events land unless overridden.
const DefaultTopic = "catalog.product-changes"

// EventTypeProductChange identifies catalog change events.
const EventTypeProductChange = "catalog.product_change"

// ProductChangeEvent is the wire form of one audit row.
type ProductChangeEvent struct {
	EventID      string            `json:"event_id"`
	EventType    string            `json:"event_type"`
	ProductID    string            `json:"product_id"`
	ProductName  string            `json:"product_name"`
	ProductBrand *string           `json:"product_brand,omitempty"`
	ChangeType   domain.ChangeType `json:"change_type"`
	FromQty      *float64          `json:"from_qty,omitempty"`
	ToQty        *float64          `json:"to_qty,omitempty"`
	FromPrice    *float64          `json:"from_price,omitempty"`
	ToPrice      *float64          `json:"to_price,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}
