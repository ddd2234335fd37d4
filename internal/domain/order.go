package domain

import "time"

// OrderItem представляет одну позицию заказа. Позиции создаются только вместе
// с заказом и удаляются каскадно вместе с ним; после создания не изменяются.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	// Quantity — количество единиц товара, всегда > 0.
	Quantity int64
	// Product — снимок товара на момент чтения заказа (заполняется при сборке ответа).
	Product *Product
}

// Order агрегирует заказ клиента и его позиции. У заказа нет поля статуса:
// он либо существует с неизменяемым набором позиций, либо удалён.
type Order struct {
	ID         int64
	CustomerID int64
	// CreatedAt фиксируется при создании и далее не меняется.
	CreatedAt time.Time
	Items     []OrderItem
	// Customer — снимок клиента для вложенного представления (заполняется при чтении).
	Customer *Customer
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID <= 0 {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, item := range o.Items {
		if item.ProductID <= 0 {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQuantityInvalid)
		}
	}

	return errs
}
