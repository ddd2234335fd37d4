package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

type mockSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (m *mockSession) Claims() map[string][]int32               { return nil }
func (m *mockSession) MemberID() string                         { return "member" }
func (m *mockSession) GenerationID() int32                      { return 1 }
func (m *mockSession) MarkOffset(string, int32, int64, string)  {}
func (m *mockSession) Commit()                                  {}
func (m *mockSession) ResetOffset(string, int32, int64, string) {}
func (m *mockSession) Context() context.Context                 { return m.ctx }
func (m *mockSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	m.marked = append(m.marked, msg)
}

type mockClaim struct {
	topic     string
	partition int32
	messages  chan *sarama.ConsumerMessage
}

func (m *mockClaim) Topic() string                            { return m.topic }
func (m *mockClaim) Partition() int32                         { return m.partition }
func (m *mockClaim) InitialOffset() int64                     { return 0 }
func (m *mockClaim) HighWaterMarkOffset() int64               { return 0 }
func (m *mockClaim) Messages() <-chan *sarama.ConsumerMessage { return m.messages }

func TestNewConsumerErrors(t *testing.T) {
	if _, err := NewConsumer([]string{"invalid-broker:9092"}, "group", []string{"topic"}, func(context.Context, *sarama.ConsumerMessage) error { return nil }); err == nil {
		t.Fatal("expected new consumer error")
	}
	if _, err := NewConsumerWithDLQ([]string{"invalid-broker:9092"}, "group", []string{"topic"}, func(context.Context, *sarama.ConsumerMessage) error { return nil }, nil, 3); err == nil {
		t.Fatal("expected new consumer with dlq error")
	}
}

func TestConsumer_GetRetryCount(t *testing.T) {
	consumer := &Consumer{logger: log.WithField("component", "kafka-consumer-test")}

	message := &sarama.ConsumerMessage{
		Headers: []*sarama.RecordHeader{
			{Key: []byte(HeaderRetryCount), Value: []byte("2")},
		},
	}
	if got := consumer.getRetryCount(message); got != 2 {
		t.Fatalf("expected retry count 2, got %d", got)
	}

	if got := consumer.getRetryCount(&sarama.ConsumerMessage{}); got != 0 {
		t.Fatalf("expected retry count 0 for missing header, got %d", got)
	}
}

func TestConsumer_HandleMessageWithRetry_SendsToDLQ(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error {
			return errors.New("handler failed")
		},
		logger: log.WithField("component", "kafka-consumer-test"),
		dlqProducer: &Producer{
			producer: mockProducer,
			logger:   log.WithField("component", "kafka-producer-test"),
		},
		maxRetries: 1,
	}

	message := &sarama.ConsumerMessage{
		Topic: TopicOrderEvents,
		Key:   []byte("123"),
		Value: []byte(`{"event_type":"order.placed"}`),
		Headers: []*sarama.RecordHeader{
			{Key: []byte(HeaderRetryCount), Value: []byte("1")},
		},
	}

	if err := consumer.handleMessageWithRetry(context.Background(), message); err != nil {
		t.Fatalf("expected nil after DLQ publish, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConsumer_HandleMessageWithRetry_RetriesBeforeDLQ(t *testing.T) {
	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error {
			return errors.New("handler failed")
		},
		logger:     log.WithField("component", "kafka-consumer-test"),
		maxRetries: 3,
	}

	message := &sarama.ConsumerMessage{Topic: TopicOrderEvents}
	if err := consumer.handleMessageWithRetry(context.Background(), message); err == nil {
		t.Fatal("expected retryable error while attempts remain")
	}
}

func TestConsumer_ConsumeClaim_MarksProcessed(t *testing.T) {
	handled := 0
	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error {
			handled++
			return nil
		},
		logger:     log.WithField("component", "kafka-consumer-test"),
		maxRetries: 3,
	}

	messages := make(chan *sarama.ConsumerMessage, 1)
	messages <- &sarama.ConsumerMessage{Topic: TopicOrderEvents, Value: []byte(`{}`)}
	close(messages)

	session := &mockSession{ctx: context.Background()}
	claim := &mockClaim{topic: TopicOrderEvents, messages: messages}

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("consume claim failed: %v", err)
	}
	if handled != 1 {
		t.Fatalf("expected 1 handled message, got %d", handled)
	}
	if len(session.marked) != 1 {
		t.Fatalf("expected 1 marked message, got %d", len(session.marked))
	}
}

func TestParseOutboxEnvelope(t *testing.T) {
	message := &sarama.ConsumerMessage{
		Value: []byte(`{"id":"m-1","aggregate_type":"order","aggregate_id":"42","event_type":"order.placed","payload":{"order_id":42}}`),
	}
	envelope, err := ParseOutboxEnvelope(message)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if envelope.AggregateID != "42" || envelope.EventType != string(EventTypeOrderPlaced) {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if string(envelope.Payload) != `{"order_id":42}` {
		t.Fatalf("unexpected payload %s", envelope.Payload)
	}

	if _, err := ParseOutboxEnvelope(&sarama.ConsumerMessage{Value: []byte("not-json")}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseStockEvent(t *testing.T) {
	message := &sarama.ConsumerMessage{
		Value: []byte(`{"event_type":"stock.deducted","product_id":3,"order_id":42,"quantity":5}`),
	}
	event, err := ParseStockEvent(message)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.EventType != EventTypeStockDeducted || event.ProductID != 3 || event.Quantity != 5 {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := ParseStockEvent(&sarama.ConsumerMessage{Value: []byte("not-json")}); err == nil {
		t.Fatal("expected parse error")
	}
}
