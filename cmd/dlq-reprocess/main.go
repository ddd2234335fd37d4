package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	idleTimeout time.Duration
}

// replayMessage — восстановленное из DLQ сообщение, готовое к повторной публикации.
type replayMessage struct {
	topic string
	key   string
	value []byte
}

// consumerDLQPayload — формат DLQ-записей consumer'а: исходное сообщение целиком.
type consumerDLQPayload struct {
	OriginalTopic string `json:"original_topic"`
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
}

// outboxDLQEnvelope — формат DLQ-записей outbox worker'а.
type outboxDLQEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

type outboxDLQPayload struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	flag.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	flag.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrderEvents, "fallback target topic for replay")
	flag.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	flag.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("KAFKA_BROKERS")
	}
	for _, chunk := range strings.Split(brokersRaw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			cfg.brokers = append(cfg.brokers, broker)
		}
	}
	if len(cfg.brokers) == 0 {
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.sourceTopic) == "" || strings.TrimSpace(cfg.targetTopic) == "" {
		return config{}, fmt.Errorf("source-topic and target-topic are required")
	}
	if cfg.limit <= 0 {
		return config{}, fmt.Errorf("limit must be > 0")
	}
	if cfg.idleTimeout <= 0 {
		return config{}, fmt.Errorf("idle-timeout must be > 0")
	}

	return cfg, nil
}

func run(cfg config) error {
	log.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
	}).Info("starting dlq replay")

	client, err := sarama.NewClient(cfg.brokers, sarama.NewConfig())
	if err != nil {
		return fmt.Errorf("create kafka client: %w", err)
	}
	defer func() { _ = client.Close() }()

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	var producer sarama.SyncProducer
	if cfg.execute {
		producerConfig := sarama.NewConfig()
		producerConfig.Producer.RequiredAcks = sarama.WaitForAll
		producerConfig.Producer.Retry.Max = 5
		producerConfig.Producer.Return.Successes = true
		producerConfig.Producer.Compression = sarama.CompressionSnappy
		producerConfig.Producer.Idempotent = true
		producerConfig.Net.MaxOpenRequests = 1

		producer, err = sarama.NewSyncProducer(cfg.brokers, producerConfig)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() { _ = producer.Close() }()
	}

	partitions, err := client.Partitions(cfg.sourceTopic)
	if err != nil {
		return fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	var processed, replayed, skipped int
	for _, partition := range partitions {
		if processed >= cfg.limit {
			break
		}
		p, r, s, err := replayPartition(cfg, client, consumer, producer, partition, cfg.limit-processed)
		if err != nil {
			return err
		}
		processed += p
		replayed += r
		skipped += s
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": processed,
		"replayed":  replayed,
		"skipped":   skipped,
	}).Info("dlq replay finished")

	return nil
}

func replayPartition(
	cfg config,
	client sarama.Client,
	consumer sarama.Consumer,
	producer sarama.SyncProducer,
	partition int32,
	limit int,
) (processed, replayed, skipped int, err error) {
	oldest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return 0, 0, 0, nil
	}

	pc, err := consumer.ConsumePartition(cfg.sourceTopic, partition, oldest)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(cfg.idleTimeout)
	defer idleTimer.Stop()

	for processed < limit {
		select {
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil {
				return processed, replayed, skipped, nil
			}
			idleTimer.Reset(cfg.idleTimeout)

			processed++
			replay, ok := extractReplayMessage(msg, cfg.targetTopic)
			if !ok {
				skipped++
				log.WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("skip unsupported dlq message")
			} else if cfg.execute {
				if err := publishReplay(producer, replay); err != nil {
					return processed, replayed, skipped, fmt.Errorf("publish replay message: %w", err)
				}
				replayed++
			} else {
				log.WithFields(log.Fields{
					"partition":    msg.Partition,
					"offset":       msg.Offset,
					"target_topic": replay.topic,
					"key":          replay.key,
				}).Info("dlq replay candidate")
				replayed++
			}

			if msg.Offset+1 >= newest {
				return processed, replayed, skipped, nil
			}
		case <-idleTimer.C:
			return processed, replayed, skipped, nil
		}
	}

	return processed, replayed, skipped, nil
}

func publishReplay(producer sarama.SyncProducer, msg replayMessage) error {
	_, _, err := producer.SendMessage(&sarama.ProducerMessage{
		Topic:     msg.topic,
		Key:       sarama.StringEncoder(msg.key),
		Value:     sarama.ByteEncoder(msg.value),
		Timestamp: time.Now().UTC(),
	})
	return err
}

// extractReplayMessage поддерживает оба формата DLQ: записи consumer'а
// (исходное сообщение как original_*) и записи outbox worker'а (конверт
// с причиной ошибки вокруг исходного payload).
func extractReplayMessage(msg *sarama.ConsumerMessage, defaultTopic string) (replayMessage, bool) {
	var consumerPayload consumerDLQPayload
	if err := json.Unmarshal(msg.Value, &consumerPayload); err == nil && consumerPayload.OriginalValue != "" {
		topic := strings.TrimSpace(consumerPayload.OriginalTopic)
		if topic == "" {
			topic = defaultTopic
		}
		return replayMessage{
			topic: topic,
			key:   consumerPayload.OriginalKey,
			value: []byte(consumerPayload.OriginalValue),
		}, true
	}

	var envelope outboxDLQEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil || len(envelope.Payload) == 0 {
		return replayMessage{}, false
	}
	var dlqPayload outboxDLQPayload
	if err := json.Unmarshal(envelope.Payload, &dlqPayload); err != nil || len(dlqPayload.Payload) == 0 {
		return replayMessage{}, false
	}

	replay := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            firstNonEmpty(dlqPayload.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(dlqPayload.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(dlqPayload.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(dlqPayload.EventType, envelope.EventType),
		Payload:       dlqPayload.Payload,
		PublishedAt:   time.Now().UTC(),
	}
	encoded, err := json.Marshal(replay)
	if err != nil {
		return replayMessage{}, false
	}

	key := replay.AggregateID
	if key == "" {
		key = replay.ID
	}

	return replayMessage{topic: defaultTopic, key: key, value: encoded}, true
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
