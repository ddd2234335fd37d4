package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
	"github.com/vladislavdragonenkov/inventory/internal/storage/memory"
	"github.com/vladislavdragonenkov/inventory/internal/storage/postgres"
)

// Dependencies содержит хранилища и общий логгер приложения.
type Dependencies struct {
	Customers   domain.CustomerRepository
	Products    domain.ProductRepository
	Orders      domain.OrderRepository
	Ledger      domain.StockLedger
	Outbox      domain.OutboxRepository
	Idempotency domain.IdempotencyRepository
	Logger      *log.Entry
}

// NewDependencies собирает in-memory зависимости. Используется в тестах
// и при запуске без настроенного PostgreSQL.
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	return &Dependencies{
		Customers:   memory.NewCustomerRepository(),
		Products:    memory.NewProductRepository(),
		Orders:      memory.NewOrderRepository(),
		Ledger:      memory.NewStockLedger(),
		Outbox:      memory.NewOutboxRepository(),
		Idempotency: memory.NewIdempotencyRepository(),
		Logger:      logger,
	}
}

// NewPostgresDependencies собирает зависимости поверх PostgreSQL store.
func NewPostgresDependencies(store *postgres.Store, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	return &Dependencies{
		Customers:   postgres.NewCustomerRepository(store),
		Products:    postgres.NewProductRepository(store),
		Orders:      postgres.NewOrderRepository(store),
		Ledger:      postgres.NewLedgerRepository(store),
		Outbox:      postgres.NewOutboxRepository(store),
		Idempotency: postgres.NewIdempotencyRepository(store),
		Logger:      logger,
	}
}
