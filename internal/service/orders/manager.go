package orders

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
	"github.com/vladislavdragonenkov/inventory/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/inventory/internal/metrics"
)

// Manager описывает транзакционное ядро заказов. Оформление заказа
// выполняется в два этапа: сначала проверяются все позиции без изменения
// остатков, и только потом остатки списываются.
type Manager interface {
	PlaceOrder(req PlaceOrderRequest) (domain.Order, error)
	CancelOrder(orderID int64) error
	GetOrder(orderID int64) (domain.Order, error)
	ListOrders(limit int) ([]domain.Order, error)
}

// EventPublisher публикует события напрямую в Kafka. Заказные события
// уходят только через outbox, прямой канал несёт stock-события.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// ItemRequest описывает одну позицию создаваемого заказа.
type ItemRequest struct {
	ProductID int64
	Quantity  int64
}

// PlaceOrderRequest описывает запрос на оформление заказа.
type PlaceOrderRequest struct {
	CustomerID int64
	Items      []ItemRequest
}

const (
	// Количество попыток списания при конфликте версий.
	maxStockRetries = 8
	baseRetryDelay  = 5 * time.Millisecond
)

type manager struct {
	customers     domain.CustomerRepository
	products      domain.ProductRepository
	orders        domain.OrderRepository
	ledger        domain.StockLedger
	outbox        domain.OutboxRepository
	logger        *log.Entry
	metrics       *metrics.OrderMetrics
	events        EventPublisher // опциональный канал stock-событий, минует outbox
}

// NewManager создаёт рабочий экземпляр транзакционного ядра заказов.
func NewManager(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	ledger domain.StockLedger,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Manager {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &manager{
		customers: customers,
		products:  products,
		orders:    orders,
		ledger:    ledger,
		outbox:    outbox,
		logger:    logger,
		metrics:   metrics.NewOrderMetrics(),
	}
}

// NewManagerWithKafka создаёт ядро заказов с прямой публикацией
// stock-событий в Kafka. Заказные события и здесь идут через outbox,
// прямой канал добавляет только поток списаний и возвратов остатков.
func NewManagerWithKafka(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	ledger domain.StockLedger,
	outbox domain.OutboxRepository,
	events EventPublisher,
	logger *log.Entry,
) Manager {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &manager{
		customers: customers,
		products:  products,
		orders:    orders,
		ledger:    ledger,
		outbox:    outbox,
		logger:    logger,
		metrics:   metrics.NewOrderMetrics(),
		events:    events,
	}
}

// NewManagerWithoutMetrics создаёт ядро заказов без метрик (для тестов).
func NewManagerWithoutMetrics(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	ledger domain.StockLedger,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Manager {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &manager{
		customers: customers,
		products:  products,
		orders:    orders,
		ledger:    ledger,
		outbox:    outbox,
		logger:    logger,
		metrics:   nil, // Отключаем метрики для тестов
	}
}

// requirement хранит суммарное количество товара по всем позициям заказа.
type requirement struct {
	productID int64
	quantity  int64
}

// PlaceOrder оформляет заказ в два этапа. Первый этап только читает:
// клиент и каждый товар должны существовать, и суммарное количество
// каждого товара не должно превышать доступный остаток. Второй этап
// списывает остатки по одному товару с optimistic locking; при
// конфликте версий товар перечитывается и проверка повторяется.
// Если списание срывается посреди последовательности, уже списанные
// остатки возвращаются обратно, и заказ не сохраняется.
func (m *manager) PlaceOrder(req PlaceOrderRequest) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.RecordPlaceDuration(time.Since(start))
		}
	}()

	order := domain.Order{
		CustomerID: req.CustomerID,
		CreatedAt:  time.Now().UTC(),
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, &domain.ValidationError{Errs: errs}
	}

	customer, err := m.customers.Get(req.CustomerID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("resolve customer %d: %w", req.CustomerID, err)
	}

	// Этап 1: проверяем все позиции без изменения остатков. Позиции
	// одного товара суммируются, иначе две позиции по 6 штук прошли бы
	// проверку по отдельности при остатке 10.
	requirements := aggregateRequirements(order.Items)
	snapshots := make(map[int64]domain.Product, len(requirements))
	for _, need := range requirements {
		product, err := m.products.Get(need.productID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("resolve product %d: %w", need.productID, err)
		}
		if need.quantity > product.StockQuantity {
			if m.metrics != nil {
				m.metrics.RecordInsufficientStock()
			}
			return domain.Order{}, &domain.InsufficientStockError{
				ProductID: product.ID,
				SKU:       product.SKU,
				Name:      product.Name,
				Requested: need.quantity,
				Available: product.StockQuantity,
			}
		}
		snapshots[product.ID] = product
	}

	// Этап 2: списываем остатки. При любой ошибке возвращаем уже
	// списанное обратно, чтобы отказ не оставил следов на складе.
	var deducted []requirement
	for _, need := range requirements {
		fresh, err := m.deductStock(need.productID, need.quantity)
		if err != nil {
			m.compensate(deducted)
			return domain.Order{}, err
		}
		snapshots[need.productID] = fresh
		deducted = append(deducted, need)
	}

	created, err := m.orders.Create(order)
	if err != nil {
		m.logger.WithError(err).WithField("customer_id", req.CustomerID).Error("persist order failed")
		m.compensate(deducted)
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	for _, item := range created.Items {
		m.appendMovement(domain.StockMovement{
			ProductID: item.ProductID,
			OrderID:   created.ID,
			Kind:      domain.MovementDeduct,
			Quantity:  item.Quantity,
			Occurred:  created.CreatedAt,
		})
	}

	m.emitEvent(created.ID, string(kafka.EventTypeOrderPlaced), map[string]interface{}{
		"customer_id": created.CustomerID,
		"items_count": len(created.Items),
		"ts":          created.CreatedAt.Format(time.RFC3339Nano),
	})
	m.publishStockEvents(kafka.EventTypeStockDeducted, created.ID, requirements)

	if m.metrics != nil {
		m.metrics.RecordOrderPlaced()
	}
	m.logger.WithFields(log.Fields{
		"order_id":    created.ID,
		"customer_id": created.CustomerID,
		"items_count": len(created.Items),
	}).Info("order placed")

	created.Customer = &customer
	attachProductSnapshots(&created, snapshots)
	return created, nil
}

// CancelOrder отменяет заказ: сначала возвращает остатки по каждой
// позиции, затем удаляет заказ вместе с позициями. Если возврат
// срывается посреди последовательности, заказ остаётся на месте и
// отмену можно безопасно повторить.
func (m *manager) CancelOrder(orderID int64) error {
	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.RecordCancelDuration(time.Since(start))
		}
	}()

	order, err := m.orders.Get(orderID)
	if err != nil {
		return fmt.Errorf("resolve order %d: %w", orderID, err)
	}

	now := time.Now().UTC()
	requirements := aggregateRequirements(order.Items)
	for _, need := range requirements {
		if err := m.restock(need.productID, need.quantity); err != nil {
			m.logger.WithError(err).WithFields(log.Fields{
				"order_id":   orderID,
				"product_id": need.productID,
			}).Error("restock during cancel failed")
			return fmt.Errorf("restock product %d: %w", need.productID, err)
		}
	}
	for _, item := range order.Items {
		m.appendMovement(domain.StockMovement{
			ProductID: item.ProductID,
			OrderID:   order.ID,
			Kind:      domain.MovementRestock,
			Quantity:  item.Quantity,
			Occurred:  now,
		})
	}

	if err := m.orders.Delete(orderID); err != nil {
		m.logger.WithError(err).WithField("order_id", orderID).Error("delete order failed")
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}

	m.emitEvent(order.ID, string(kafka.EventTypeOrderCanceled), map[string]interface{}{
		"customer_id": order.CustomerID,
		"items_count": len(order.Items),
		"ts":          now.Format(time.RFC3339Nano),
	})
	m.publishStockEvents(kafka.EventTypeStockRestored, order.ID, requirements)

	if m.metrics != nil {
		m.metrics.RecordOrderCanceled()
	}
	m.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
	}).Info("order canceled")
	return nil
}

// GetOrder возвращает заказ с вложенными данными клиента и товаров.
func (m *manager) GetOrder(orderID int64) (domain.Order, error) {
	order, err := m.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	m.populate(&order)
	return order, nil
}

// ListOrders возвращает последние заказы с вложенными данными.
func (m *manager) ListOrders(limit int) ([]domain.Order, error) {
	orders, err := m.orders.List(limit)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		m.populate(&orders[i])
	}
	return orders, nil
}

// deductStock списывает quantity единиц товара с optimistic locking.
// При конфликте версий товар перечитывается, остаток проверяется заново
// и попытка повторяется с exponential backoff.
func (m *manager) deductStock(productID, quantity int64) (domain.Product, error) {
	for attempt := 0; attempt < maxStockRetries; attempt++ {
		product, err := m.products.Get(productID)
		if err != nil {
			return domain.Product{}, fmt.Errorf("reload product %d: %w", productID, err)
		}
		if quantity > product.StockQuantity {
			if m.metrics != nil {
				m.metrics.RecordInsufficientStock()
			}
			return domain.Product{}, &domain.InsufficientStockError{
				ProductID: product.ID,
				SKU:       product.SKU,
				Name:      product.Name,
				Requested: quantity,
				Available: product.StockQuantity,
			}
		}

		product.StockQuantity -= quantity
		product.UpdatedAt = time.Now().UTC()
		if err := m.products.Save(product); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxStockRetries-1 {
				if m.metrics != nil {
					m.metrics.RecordStockConflict()
				}
				m.logger.WithFields(log.Fields{
					"product_id": productID,
					"attempt":    attempt + 1,
				}).Warn("version conflict on stock deduct, retrying")
				time.Sleep(baseRetryDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			return domain.Product{}, fmt.Errorf("deduct stock for product %d: %w", productID, err)
		}
		product.Version++
		return product, nil
	}
	return domain.Product{}, fmt.Errorf("deduct stock for product %d: %w", productID, domain.ErrProductVersionConflict)
}

// restock возвращает quantity единиц товара на склад тем же optimistic
// locking циклом, что и deductStock.
func (m *manager) restock(productID, quantity int64) error {
	for attempt := 0; attempt < maxStockRetries; attempt++ {
		product, err := m.products.Get(productID)
		if err != nil {
			return fmt.Errorf("reload product %d: %w", productID, err)
		}

		product.StockQuantity += quantity
		product.UpdatedAt = time.Now().UTC()
		if err := m.products.Save(product); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxStockRetries-1 {
				if m.metrics != nil {
					m.metrics.RecordStockConflict()
				}
				m.logger.WithFields(log.Fields{
					"product_id": productID,
					"attempt":    attempt + 1,
				}).Warn("version conflict on restock, retrying")
				time.Sleep(baseRetryDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			return fmt.Errorf("restock product %d: %w", productID, err)
		}
		return nil
	}
	return fmt.Errorf("restock product %d: %w", productID, domain.ErrProductVersionConflict)
}

// compensate возвращает уже списанные остатки после срыва оформления.
func (m *manager) compensate(deducted []requirement) {
	for _, req := range deducted {
		if err := m.restock(req.productID, req.quantity); err != nil {
			m.logger.WithError(err).WithField("product_id", req.productID).Error("compensation restock failed")
		}
	}
}

func (m *manager) appendMovement(movement domain.StockMovement) {
	if m.ledger == nil {
		return
	}
	if err := m.ledger.Append(movement); err != nil {
		m.logger.WithError(err).WithFields(log.Fields{
			"order_id":   movement.OrderID,
			"product_id": movement.ProductID,
			"kind":       movement.Kind,
		}).Warn("append stock movement failed")
	} else if m.metrics != nil {
		m.metrics.RecordLedgerEvent()
	}
}

func (m *manager) emitEvent(orderID int64, eventType string, payload map[string]interface{}) {
	if m.outbox == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = orderID
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(orderID, 10),
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := m.outbox.Enqueue(msg); err != nil {
		m.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if m.metrics != nil {
		m.metrics.RecordOutboxEvent()
	}
}

// publishStockEvents публикует по одному stock-событию на товар заказа
// в TopicStockEvents (если producer настроен). Ключ сообщения - ID товара,
// чтобы события одного товара попадали в одну партицию.
func (m *manager) publishStockEvents(eventType kafka.EventType, orderID int64, requirements []requirement) {
	if m.events == nil {
		return // Kafka не настроен, пропускаем
	}

	for _, need := range requirements {
		event := kafka.NewStockEvent(eventType, need.productID, orderID, need.quantity)
		key := strconv.FormatInt(need.productID, 10)
		if err := m.events.PublishEvent(kafka.TopicStockEvents, key, event); err != nil {
			// Логируем ошибку, но не прерываем операцию - Kafka опциональный
			m.logger.WithError(err).WithFields(log.Fields{
				"event_type": eventType,
				"order_id":   orderID,
				"product_id": need.productID,
			}).Warn("failed to publish stock event to kafka")
		}
	}
}

// populate подгружает в заказ данные клиента и товаров. Отсутствующие
// записи пропускаются, чтобы чтение заказа не падало из-за удалённого
// товара или клиента.
func (m *manager) populate(order *domain.Order) {
	if customer, err := m.customers.Get(order.CustomerID); err == nil {
		order.Customer = &customer
	}
	snapshots := make(map[int64]domain.Product, len(order.Items))
	for _, item := range order.Items {
		if _, ok := snapshots[item.ProductID]; ok {
			continue
		}
		if product, err := m.products.Get(item.ProductID); err == nil {
			snapshots[item.ProductID] = product
		}
	}
	attachProductSnapshots(order, snapshots)
}

// aggregateRequirements суммирует количество по товарам, сохраняя
// порядок первого появления товара в заказе.
func aggregateRequirements(items []domain.OrderItem) []requirement {
	index := make(map[int64]int, len(items))
	var requirements []requirement
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			requirements[i].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(requirements)
		requirements = append(requirements, requirement{
			productID: item.ProductID,
			quantity:  item.Quantity,
		})
	}
	return requirements
}

func attachProductSnapshots(order *domain.Order, snapshots map[int64]domain.Product) {
	for i := range order.Items {
		if product, ok := snapshots[order.Items[i].ProductID]; ok {
			snapshot := product
			order.Items[i].Product = &snapshot
		}
	}
}

var _ Manager = (*manager)(nil)
