package domain

import "context"

// OrderRepository описывает требования к слою согласованности над коллекциями заказов.
type OrderRepository interface {
	// Create валидирует вход, генерирует id, вычисляет order_value и добавляет
	// запись в активную коллекцию. Возвращает сохранённую запись.
	Create(ctx context.Context, input NewOrderInput) (OrderRecord, error)
	// Update применяет частичное обновление к заказу по id.
	// Возвращает ErrOrderNotFound, если заказа нет в активной коллекции.
	Update(ctx context.Context, id string, patch OrderPatch) (OrderRecord, error)
	// Archive переносит заказ из активной коллекции в архив (двухфазно, см. ErrPartialArchive).
	Archive(ctx context.Context, id string) error
	// FetchAll возвращает текущую активную коллекцию целиком.
	FetchAll(ctx context.Context) ([]OrderRecord, error)
	// FetchDeleted возвращает архив удалённых заказов целиком.
	FetchDeleted(ctx context.Context) ([]DeletedOrderRecord, error)
}
