package ledger

import (
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
)

// Размеры страниц, используемые клиентами по умолчанию.
const (
	// DefaultPageSize — страница списка активных заказов.
	DefaultPageSize = 15
	// DeletedPageSize — страница архива удалённых заказов.
	DeletedPageSize = 20
)

// Search возвращает заказы, у которых имя клиента, email, название товара
// или id содержат query без учёта регистра. Пустой query совпадает со всем;
// порядок записей сохраняется.
func Search(records []domain.OrderRecord, query string) []domain.OrderRecord {
	query = strings.ToLower(query)

	result := make([]domain.OrderRecord, 0, len(records))
	for _, rec := range records {
		if query == "" ||
			strings.Contains(strings.ToLower(rec.CustomerName), query) ||
			strings.Contains(strings.ToLower(rec.CustomerEmail), query) ||
			strings.Contains(strings.ToLower(rec.ProductName), query) ||
			strings.Contains(strings.ToLower(rec.ID), query) {
			result = append(result, rec)
		}
	}
	return result
}

// Paginate возвращает срез [(page-1)*pageSize, page*pageSize) с нумерацией
// страниц от 1. Страница за пределами данных даёт пустой срез; выравнивание
// номера страницы — забота вызывающей стороны.
func Paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize < 1 {
		return []T{}
	}

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// TotalValue возвращает сумму order_value по заказам; 0 для пустой коллекции.
func TotalValue(records []domain.OrderRecord) float64 {
	var total float64
	for _, rec := range records {
		total += rec.OrderValue
	}
	return total
}

// TotalDeletedValue возвращает сумму order_value по архивным записям.
func TotalDeletedValue(records []domain.DeletedOrderRecord) float64 {
	var total float64
	for _, rec := range records {
		total += rec.OrderValue
	}
	return total
}

// SortDeletedRecent возвращает копию архива, отсортированную по убыванию
// момента удаления (последние удаления первыми).
func SortDeletedRecent(records []domain.DeletedOrderRecord) []domain.DeletedOrderRecord {
	result := make([]domain.DeletedOrderRecord, len(records))
	copy(result, records)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DeletedAt.After(result[j].DeletedAt)
	})
	return result
}
