package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

// customerRepositoryInMemory — простая in-memory реализация CustomerRepository.
type customerRepositoryInMemory struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Customer
	// byEmail индексирует клиентов по email для проверки уникальности.
	byEmail map[string]int64
}

// NewCustomerRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{
		items:   make(map[int64]domain.Customer),
		byEmail: make(map[string]int64),
	}
}

// Create сохраняет нового клиента, проверяя уникальность email.
func (r *customerRepositoryInMemory) Create(customer domain.Customer) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(customer.Email)
	if _, exists := r.byEmail[email]; exists {
		return domain.Customer{}, domain.ErrEmailAlreadyExists
	}

	r.nextID++
	now := time.Now().UTC()
	customer.ID = r.nextID
	customer.CreatedAt = now
	customer.UpdatedAt = now

	r.items[customer.ID] = customer
	r.byEmail[email] = customer.ID
	return customer, nil
}

// Get возвращает клиента или ErrCustomerNotFound, если его нет.
func (r *customerRepositoryInMemory) Get(id int64) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.items[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// List возвращает клиентов по возрастанию ID; activeOnly отфильтровывает неактивных.
func (r *customerRepositoryInMemory) List(activeOnly bool) ([]domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Customer, 0, len(r.items))
	for _, customer := range r.items {
		if activeOnly && !customer.Active {
			continue
		}
		result = append(result, customer)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Save перезаписывает клиента, сохраняя уникальность email.
func (r *customerRepositoryInMemory) Save(customer domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[customer.ID]
	if !ok {
		return domain.ErrCustomerNotFound
	}

	newEmail := normalizeEmail(customer.Email)
	oldEmail := normalizeEmail(current.Email)
	if newEmail != oldEmail {
		if _, taken := r.byEmail[newEmail]; taken {
			return domain.ErrEmailAlreadyExists
		}
		delete(r.byEmail, oldEmail)
		r.byEmail[newEmail] = customer.ID
	}

	customer.CreatedAt = current.CreatedAt
	customer.UpdatedAt = time.Now().UTC()
	r.items[customer.ID] = customer
	return nil
}

// Delete удаляет клиента или возвращает ErrCustomerNotFound.
func (r *customerRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	customer, ok := r.items[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	delete(r.byEmail, normalizeEmail(customer.Email))
	delete(r.items, id)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
