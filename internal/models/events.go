package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced = "ORDER_PLACED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after a checkout transaction commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	UserID  string          `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
	Items   []OrderItemData `json:"items"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	SizeID    string `json:"size_id,omitempty"`
	Quantity  int    `json:"quantity"`
}
