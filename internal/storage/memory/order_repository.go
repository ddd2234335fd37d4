package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu         sync.RWMutex
	nextID     int64
	nextItemID int64
	items      map[int64]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[int64]domain.Order),
	}
}

// Create сохраняет заказ и его позиции как единое целое.
func (r *orderRepositoryInMemory) Create(order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	items := make([]domain.OrderItem, len(order.Items))
	for i, item := range order.Items {
		r.nextItemID++
		item.ID = r.nextItemID
		item.OrderID = order.ID
		items[i] = item
	}
	order.Items = items

	// Сохраняем копию позиций, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = cloneOrder(order)
	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// List возвращает заказы от новых к старым, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) List(limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Delete удаляет заказ вместе с позициями или возвращает ErrOrderNotFound.
func (r *orderRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.items, id)
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
