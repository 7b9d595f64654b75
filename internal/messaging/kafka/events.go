package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
)

// TopicOrderEvents — единственный топик событий жизненного цикла заказов.
const TopicOrderEvents = "orderledger.order.events"

// OrderEvent — сообщение о создании, правке или архивации заказа.
type OrderEvent struct {
	EventType string             `json:"event_type"`
	OrderID   string             `json:"order_id"`
	Order     domain.OrderRecord `json:"order"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewOrderEvent собирает событие по снимку записи заказа.
func NewOrderEvent(eventType domain.OrderEventType, record domain.OrderRecord) OrderEvent {
	return OrderEvent{
		EventType: string(eventType),
		OrderID:   record.ID,
		Order:     record,
		Timestamp: time.Now().UTC(),
	}
}
