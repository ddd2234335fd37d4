package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

// stockLedgerInMemory — append-only журнал изменений остатков.
type stockLedgerInMemory struct {
	mu     sync.RWMutex
	nextID int64
	items  []domain.StockMovement
}

// NewStockLedger возвращает in-memory журнал для локальной разработки и тестов.
func NewStockLedger() domain.StockLedger {
	return &stockLedgerInMemory{}
}

// Append дописывает запись в журнал.
func (r *stockLedgerInMemory) Append(movement domain.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	movement.ID = r.nextID
	if movement.Occurred.IsZero() {
		movement.Occurred = time.Now().UTC()
	}
	r.items = append(r.items, movement)
	return nil
}

// ListByOrder возвращает записи журнала по заказу в порядке добавления.
func (r *stockLedgerInMemory) ListByOrder(orderID int64) ([]domain.StockMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.StockMovement, 0)
	for _, movement := range r.items {
		if movement.OrderID == orderID {
			result = append(result, movement)
		}
	}
	return result, nil
}

var _ domain.StockLedger = (*stockLedgerInMemory)(nil)
