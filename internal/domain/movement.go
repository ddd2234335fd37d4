package domain

import "time"

// MovementKind различает направление изменения остатка.
type MovementKind string

const (
	// MovementDeduct — списание остатка при оформлении заказа.
	MovementDeduct MovementKind = "deduct"
	// MovementRestock — возврат остатка при отмене заказа.
	MovementRestock MovementKind = "restock"
)

// StockMovement — запись журнала изменений остатка: кто, когда и на сколько
// изменил склад. Журнал только дополняется.
type StockMovement struct {
	ID        int64
	ProductID int64
	OrderID   int64
	Kind      MovementKind
	// Quantity — абсолютное количество единиц, на которое изменился остаток.
	Quantity int64
	Occurred time.Time
}
