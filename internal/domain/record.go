package domain

import (
	"regexp"
	"strings"
	"time"
)

// Ключи логических коллекций в документном хранилище.
const (
	// CollectionActiveOrders — активные (не заархивированные) заказы.
	CollectionActiveOrders = "active-orders"
	// CollectionDeletedOrders — архив удалённых заказов, append-only.
	CollectionDeletedOrders = "deleted-orders"
)

// OrderRecord описывает один заказ в активной коллекции.
// JSON-имена полей совпадают с форматом документов в хранилище.
type OrderRecord struct {
	// ID генерируется на стороне клиента при создании и никогда не переиспользуется.
	ID            string `json:"id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	// ProductID ссылается на статический каталог товаров.
	ProductID string `json:"product"`
	// ProductName — денормализованный снимок названия товара на момент создания.
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	// OrderValue = quantity * цена товара на момент создания; при правках
	// пересчитывается только если явно меняется quantity.
	OrderValue float64 `json:"order_value"`
}

// DeletedOrderRecord — заархивированный заказ: все поля оригинала плюс момент архивации.
type DeletedOrderRecord struct {
	OrderRecord
	DeletedAt time.Time `json:"deletedAt"`
}

// emailPattern допускает простую форму local@domain без пробелов.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NewOrderInput — данные формы создания заказа.
type NewOrderInput struct {
	CustomerName  string
	CustomerEmail string
	ProductID     string
	Quantity      int32
}

// Validate проверяет поля формы и возвращает список замечаний.
// Проверка существования ProductID в каталоге выполняется репозиторием.
func (in NewOrderInput) Validate() []error {
	var errs []error

	if strings.TrimSpace(in.CustomerName) == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if strings.TrimSpace(in.CustomerEmail) == "" {
		errs = append(errs, ErrCustomerEmailRequired)
	} else if !emailPattern.MatchString(in.CustomerEmail) {
		errs = append(errs, ErrCustomerEmailInvalid)
	}
	if in.Quantity <= 0 {
		errs = append(errs, ErrQuantityInvalid)
	}

	return errs
}

// OrderPatch задаёт частичное обновление заказа; nil-поле остаётся без изменений.
type OrderPatch struct {
	CustomerName  *string
	CustomerEmail *string
	ProductID     *string
	Quantity      *int32
}

// IsEmpty сообщает, что патч не меняет ни одного поля.
func (p OrderPatch) IsEmpty() bool {
	return p.CustomerName == nil && p.CustomerEmail == nil && p.ProductID == nil && p.Quantity == nil
}

// Validate проверяет только заполненные поля патча.
func (p OrderPatch) Validate() []error {
	var errs []error

	if p.CustomerName != nil && strings.TrimSpace(*p.CustomerName) == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if p.CustomerEmail != nil && !emailPattern.MatchString(*p.CustomerEmail) {
		errs = append(errs, ErrCustomerEmailInvalid)
	}
	if p.Quantity != nil && *p.Quantity <= 0 {
		errs = append(errs, ErrQuantityInvalid)
	}

	return errs
}
