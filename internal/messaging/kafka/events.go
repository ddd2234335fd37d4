package kafka

import (
	"encoding/json"
	"time"
)

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderPlaced   EventType = "order.placed"
	EventTypeOrderCanceled EventType = "order.canceled"

	// Stock события
	EventTypeStockDeducted EventType = "stock.deducted"
	EventTypeStockRestored EventType = "stock.restored"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "inventory.order.events"
	TopicStockEvents     = "inventory.stock.events"
	TopicDeadLetterQueue = "inventory.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OutboxEnvelope — обёртка, в которой outbox worker публикует события
// заказов в TopicOrderEvents. Это единственный канал доставки order-событий.
type OutboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// StockEvent представляет событие изменения остатка товара,
// публикуется напрямую в TopicStockEvents минуя outbox
type StockEvent struct {
	EventType EventType `json:"event_type"`
	ProductID int64     `json:"product_id"`
	OrderID   int64     `json:"order_id"`
	Quantity  int64     `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStockEvent создает новое событие изменения остатка
func NewStockEvent(eventType EventType, productID, orderID, quantity int64) *StockEvent {
	return &StockEvent{
		EventType: eventType,
		ProductID: productID,
		OrderID:   orderID,
		Quantity:  quantity,
		Timestamp: time.Now(),
	}
}
