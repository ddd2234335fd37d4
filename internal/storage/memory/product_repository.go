package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

// productRepositoryInMemory — простая in-memory реализация ProductRepository.
type productRepositoryInMemory struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Product
	// bySKU индексирует товары по SKU для проверки уникальности.
	bySKU map[string]int64
}

// NewProductRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items: make(map[int64]domain.Product),
		bySKU: make(map[string]int64),
	}
}

// Create сохраняет новый товар, проверяя уникальность SKU.
func (r *productRepositoryInMemory) Create(product domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sku := normalizeSKU(product.SKU)
	if _, exists := r.bySKU[sku]; exists {
		return domain.Product{}, domain.ErrSKUAlreadyExists
	}

	r.nextID++
	now := time.Now().UTC()
	product.ID = r.nextID
	product.Version = 0
	product.CreatedAt = now
	product.UpdatedAt = now

	r.items[product.ID] = product
	r.bySKU[sku] = product.ID
	return product, nil
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepositoryInMemory) Get(id int64) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает товары по возрастанию ID.
func (r *productRepositoryInMemory) List() ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Save перезаписывает товар, проверяя версию (optimistic locking).
func (r *productRepositoryInMemory) Save(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if current.Version != product.Version {
		return domain.ErrProductVersionConflict
	}

	newSKU := normalizeSKU(product.SKU)
	oldSKU := normalizeSKU(current.SKU)
	if newSKU != oldSKU {
		if _, taken := r.bySKU[newSKU]; taken {
			return domain.ErrSKUAlreadyExists
		}
		delete(r.bySKU, oldSKU)
		r.bySKU[newSKU] = product.ID
	}

	// Инкрементируем версию перед сохранением.
	product.Version++
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	r.items[product.ID] = product
	return nil
}

// Delete удаляет товар или возвращает ErrProductNotFound.
func (r *productRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	delete(r.bySKU, normalizeSKU(product.SKU))
	delete(r.items, id)
	return nil
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
