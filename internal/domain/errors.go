package domain

import "errors"

var (
	// Ошибка отсутствующего имени клиента.
	ErrCustomerNameRequired = errors.New("customer_name is required")
	// Ошибка отсутствующего email клиента.
	ErrCustomerEmailRequired = errors.New("customer_email is required")
	// Ошибка email, не похожего на local@domain.
	ErrCustomerEmailInvalid = errors.New("customer_email is not a valid address")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// Ошибка при ссылке на товар, которого нет в каталоге.
	ErrProductUnknown = errors.New("product is not present in catalog")
	// ErrOrderNotFound возвращается, если заказ не найден в активной коллекции.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCollectionNotExists сообщает, что коллекция ещё не создана в хранилище.
	ErrCollectionNotExists = errors.New("collection does not exist")
	// ErrRevisionConflict сигнализирует, что условная запись проиграла гонку:
	// ревизия коллекции изменилась между чтением и записью.
	ErrRevisionConflict = errors.New("collection revision conflict")
	// ErrStoreUnavailable — хранилище недоступно или операция над ним не удалась.
	ErrStoreUnavailable = errors.New("persistent store unavailable")
	// ErrPartialArchive — первая фаза архивации выполнена (запись добавлена в архив),
	// но удаление из активной коллекции не удалось; повтор Archive безопасен.
	ErrPartialArchive = errors.New("archive partially applied")
)

// validationErrs перечисляет ошибки, которые может исправить вызывающая сторона
// без обращения к хранилищу.
var validationErrs = []error{
	ErrCustomerNameRequired,
	ErrCustomerEmailRequired,
	ErrCustomerEmailInvalid,
	ErrQuantityInvalid,
	ErrProductUnknown,
}

// IsValidation проверяет, относится ли ошибка к ошибкам валидации входных данных.
func IsValidation(err error) bool {
	for _, verr := range validationErrs {
		if errors.Is(err, verr) {
			return true
		}
	}
	return false
}

// IsNotFound проверяет, является ли ошибка отсутствием заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// IsRevisionConflict проверяет, является ли ошибка конфликтом ревизий.
func IsRevisionConflict(err error) bool {
	return errors.Is(err, ErrRevisionConflict)
}

// IsPartialArchive проверяет, завершилась ли архивация частично.
func IsPartialArchive(err error) bool {
	return errors.Is(err, ErrPartialArchive)
}
