package domain

import (
	"context"
	"encoding/json"
)

// PersistentStore описывает удалённое документное хранилище «ключ -> массив записей».
// Хранилище не даёт транзакций между коллекциями и построчных блокировок; единственная
// гарантия согласованности — условная запись по ревизии коллекции.
type PersistentStore interface {
	// ReadCollection возвращает все записи коллекции и её текущую ревизию.
	// Для несуществующей коллекции возвращается ErrCollectionNotExists и ревизия 0.
	ReadCollection(ctx context.Context, key string) ([]json.RawMessage, int64, error)
	// WriteCollection перезаписывает коллекцию целиком, если её ревизия совпадает
	// с expectedRevision (compare-and-swap). При несовпадении — ErrRevisionConflict.
	// expectedRevision = 0 означает «коллекция ещё не существует».
	WriteCollection(ctx context.Context, key string, records []json.RawMessage, expectedRevision int64) (int64, error)
	// AppendToCollection атомарно добавляет одну запись в конец коллекции,
	// создавая коллекцию при необходимости. Ревизия коллекции увеличивается.
	AppendToCollection(ctx context.Context, key string, record json.RawMessage) error
}

// OrderEventType определяет тип события жизненного цикла заказа.
type OrderEventType string

const (
	OrderEventCreated  OrderEventType = "order.created"
	OrderEventUpdated  OrderEventType = "order.updated"
	OrderEventArchived OrderEventType = "order.archived"
)

// EventPublisher публикует события жизненного цикла заказа во внешнюю шину.
// Публикация best-effort: ошибки логируются, но не откатывают операцию.
type EventPublisher interface {
	PublishOrderEvent(eventType OrderEventType, record OrderRecord) error
}
