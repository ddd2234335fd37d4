package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики транзакционного ядра заказов.
type OrderMetrics struct {
	// Счётчики операций
	ordersPlaced      prometheus.Counter
	ordersCanceled    prometheus.Counter
	insufficientStock prometheus.Counter
	stockConflicts    prometheus.Counter

	// Гистограммы времени выполнения
	placeDuration  prometheus.Histogram
	cancelDuration prometheus.Histogram

	// Счётчики побочных записей
	ledgerEvents prometheus.Counter
	outboxEvents prometheus.Counter
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventory_orders_placed_total",
			Help: "Total number of successfully placed orders",
		}),
		ordersCanceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventory_orders_canceled_total",
			Help: "Total number of canceled orders",
		}),
		insufficientStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventory_insufficient_stock_total",
			Help: "Total number of order placements rejected due to insufficient stock",
		}),
		stockConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventory_stock_conflicts_total",
			Help: "Total number of optimistic lock conflicts during stock updates",
		}),
		placeDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "inventory_order_place_duration_seconds",
			Help:    "Duration of order placement in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		cancelDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "inventory_order_cancel_duration_seconds",
			Help:    "Duration of order cancellation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ledgerEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventory_ledger_events_total",
			Help: "Total number of stock ledger records written",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventory_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced увеличивает счётчик оформленных заказов.
func (m *OrderMetrics) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
}

// RecordOrderCanceled увеличивает счётчик отменённых заказов.
func (m *OrderMetrics) RecordOrderCanceled() {
	m.ordersCanceled.Inc()
}

// RecordInsufficientStock увеличивает счётчик отказов из-за нехватки остатка.
func (m *OrderMetrics) RecordInsufficientStock() {
	m.insufficientStock.Inc()
}

// RecordStockConflict увеличивает счётчик конфликтов версий.
func (m *OrderMetrics) RecordStockConflict() {
	m.stockConflicts.Inc()
}

// RecordPlaceDuration записывает длительность оформления заказа.
func (m *OrderMetrics) RecordPlaceDuration(duration time.Duration) {
	m.placeDuration.Observe(duration.Seconds())
}

// RecordCancelDuration записывает длительность отмены заказа.
func (m *OrderMetrics) RecordCancelDuration(duration time.Duration) {
	m.cancelDuration.Observe(duration.Seconds())
}

// RecordLedgerEvent увеличивает счётчик записей журнала остатков.
func (m *OrderMetrics) RecordLedgerEvent() {
	m.ledgerEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
