package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
)

func TestNewOrderEvent(t *testing.T) {
	record := domain.OrderRecord{
		ID:            "order-1",
		CustomerName:  "Alice Johnson",
		CustomerEmail: "alice@example.com",
		ProductID:     "1",
		ProductName:   "Wireless Mouse",
		Quantity:      2,
		OrderValue:    59.98,
	}

	before := time.Now().UTC()
	event := NewOrderEvent(domain.OrderEventCreated, record)

	if event.EventType != string(domain.OrderEventCreated) {
		t.Errorf("expected event type %s, got %s", domain.OrderEventCreated, event.EventType)
	}
	if event.OrderID != "order-1" {
		t.Errorf("expected order id order-1, got %s", event.OrderID)
	}
	if event.Order != record {
		t.Errorf("expected full order snapshot in event")
	}
	if event.Timestamp.Before(before) {
		t.Errorf("expected timestamp at or after %v, got %v", before, event.Timestamp)
	}
}

func TestOrderEventWireFormat(t *testing.T) {
	event := NewOrderEvent(domain.OrderEventArchived, domain.OrderRecord{ID: "order-1", ProductID: "2"})

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	// Имена полей — контракт с консьюмерами, менять нельзя.
	for _, field := range []string{"event_type", "order_id", "order", "timestamp"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("missing envelope field %q", field)
		}
	}

	var order map[string]json.RawMessage
	if err := json.Unmarshal(raw["order"], &order); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	if _, ok := order["product"]; !ok {
		t.Error("expected product id under json key \"product\"")
	}
}
