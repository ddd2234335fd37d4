package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/inventory/internal/health"
	"github.com/vladislavdragonenkov/inventory/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/inventory/internal/service/idempotency"
	"github.com/vladislavdragonenkov/inventory/internal/service/orders"
	"github.com/vladislavdragonenkov/inventory/internal/service/outbox"
	"github.com/vladislavdragonenkov/inventory/internal/storage/postgres"
	transport "github.com/vladislavdragonenkov/inventory/internal/transport/http"
	"github.com/vladislavdragonenkov/inventory/internal/version"
)

// Config описывает минимальные настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
}

// DefaultConfig возвращает базовые адреса для HTTP API и метрик.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
	}
}

// ConfigFromEnv читает адреса из окружения поверх DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if addr := strings.TrimSpace(os.Getenv("INVENTORY_HTTP_ADDR")); addr != "" {
		cfg.HTTPAddr = addr
	}
	if addr := strings.TrimSpace(os.Getenv("INVENTORY_METRICS_ADDR")); addr != "" {
		cfg.MetricsAddr = addr
	}
	return cfg
}

// Run запускает HTTP API, фоновые worker'ы и сервер метрик и блокируется
// до отмены контекста или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	healthHandler := healthcheck.NewHandler(version.GetVersion())

	// Выбор хранилища: PostgreSQL при заданном DSN, иначе in-memory.
	var deps *Dependencies
	var store *postgres.Store
	if dsn := strings.TrimSpace(os.Getenv("INVENTORY_POSTGRES_DSN")); dsn != "" {
		var err error
		store, err = postgres.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		deps = NewPostgresDependencies(store, logger)
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			return store.Ping(context.Background())
		}))
		logger.Info("using postgres storage")
	} else {
		deps = NewDependencies(logger)
		logger.Info("using in-memory storage")
	}

	// Инициализация Kafka producer (опционально).
	var kafkaProducer *kafka.Producer
	var manager orders.Manager

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer, err := kafka.NewProducer(brokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", brokers).Info("kafka producer initialized")

			manager = orders.NewManagerWithKafka(
				deps.Customers,
				deps.Products,
				deps.Orders,
				deps.Ledger,
				deps.Outbox,
				kafkaProducer,
				logger,
			)
		}
	}

	if manager == nil {
		manager = orders.NewManager(
			deps.Customers,
			deps.Products,
			deps.Orders,
			deps.Ledger,
			deps.Outbox,
			logger,
		)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// Outbox worker публикует накопленные события в Kafka.
	// Без брокера события остаются в статусе pending.
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
		)
		go worker.Run(workerCtx)
	} else {
		logger.Info("kafka is not configured, outbox worker disabled")
	}

	cleanupWorker := idempotency.NewCleanupWorker(
		deps.Idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
	)
	go cleanupWorker.Run(workerCtx)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	server := transport.NewServer(
		manager,
		deps.Customers,
		deps.Products,
		deps.Idempotency,
		logger.WithField("component", "http"),
	)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		stopWorkers()
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		stopWorkers()
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
