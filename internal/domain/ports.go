package domain

import "time"

// CustomerRepository хранит клиентов и отвечает за уникальность email.
type CustomerRepository interface {
	// Create сохраняет нового клиента и возвращает его с присвоенным ID.
	Create(customer Customer) (Customer, error)
	Get(id int64) (Customer, error)
	// List возвращает клиентов; при activeOnly=true — только активных.
	List(activeOnly bool) ([]Customer, error)
	// Save перезаписывает поля клиента по ID.
	Save(customer Customer) error
	Delete(id int64) error
}

// ProductRepository хранит товары и их остатки.
type ProductRepository interface {
	// Create сохраняет новый товар и возвращает его с присвоенным ID.
	Create(product Product) (Product, error)
	Get(id int64) (Product, error)
	List() ([]Product, error)
	// Save перезаписывает товар, сверяя версию (optimistic locking):
	// при несовпадении возвращает ErrProductVersionConflict.
	Save(product Product) error
	Delete(id int64) error
}

// OrderRepository хранит заказы вместе с позициями.
type OrderRepository interface {
	// Create сохраняет заказ и все его позиции как единое целое
	// и возвращает заказ с присвоенными идентификаторами.
	Create(order Order) (Order, error)
	Get(id int64) (Order, error)
	List(limit int) ([]Order, error)
	// Delete удаляет заказ и каскадно все его позиции.
	Delete(id int64) error
}

// StockLedger хранит журнал изменений остатков.
type StockLedger interface {
	Append(movement StockMovement) error
	ListByOrder(orderID int64) ([]StockMovement, error)
}

// OutboxPublisher публикует события из transactional outbox; должен быть идемпотентным.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по Idempotency-Key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
