package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего имени клиента.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего email клиента.
	ErrCustomerEmailRequired = errors.New("customer email is required")
	// Ошибка отсутствующего SKU товара.
	ErrProductSKURequired = errors.New("product sku is required")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательной цены товара.
	ErrProductPriceNegative = errors.New("product price must be non-negative")
	// Ошибка отрицательного остатка товара.
	ErrProductStockNegative = errors.New("product stock must be non-negative")
	// Ошибка отсутствующего идентификатора клиента в заказе.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара в позиции (<= 0).
	ErrItemQuantityInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrItemProductRequired = errors.New("item product_id is required")

	// ErrCustomerNotFound возвращается, если клиент не найден в репозитории.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductNotFound возвращается, если товар не найден в репозитории.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")

	// ErrEmailAlreadyExists — нарушение уникальности email клиента.
	ErrEmailAlreadyExists = errors.New("customer email already exists")
	// ErrSKUAlreadyExists — нарушение уникальности SKU товара.
	ErrSKUAlreadyExists = errors.New("product sku already exists")
	// ErrProductVersionConflict сигнализирует о конфликте версий при сохранении товара.
	ErrProductVersionConflict = errors.New("product version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrIdempotencyKeyRequired — пустой ключ идемпотентности.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash тела запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — запись по ключу идемпотентности отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ идемпотентности уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency request hash mismatch")
)

// ValidationError агрегирует нарушенные инварианты входных данных.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	if len(e.Errs) == 0 {
		return "validation failed"
	}
	msg := e.Errs[0].Error()
	for _, err := range e.Errs[1:] {
		msg += "; " + err.Error()
	}
	return msg
}

// IsValidation проверяет, является ли ошибка ошибкой валидации входных данных.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// InsufficientStockError возвращается, когда запрошенное количество превышает
// доступный остаток товара. Ошибка именует конкретный товар, чтобы вызывающая
// сторона могла показать осмысленное сообщение.
type InsufficientStockError struct {
	ProductID int64
	SKU       string
	Name      string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %q (sku %s): requested %d, available %d",
		e.Name, e.SKU, e.Requested, e.Available)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой остатка.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий товара.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrProductVersionConflict)
}
