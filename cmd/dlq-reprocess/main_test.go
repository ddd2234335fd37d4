package main

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
)

func TestExtractReplayMessage_ConsumerFormat(t *testing.T) {
	value, _ := json.Marshal(consumerDLQPayload{
		OriginalTopic: "inventory.order.events",
		OriginalKey:   "42",
		OriginalValue: `{"event_type":"order.placed","order_id":42}`,
	})

	replay, ok := extractReplayMessage(&sarama.ConsumerMessage{Value: value}, "fallback.topic")
	if !ok {
		t.Fatal("expected consumer dlq payload to be replayable")
	}
	if replay.topic != "inventory.order.events" {
		t.Fatalf("unexpected topic: %s", replay.topic)
	}
	if replay.key != "42" {
		t.Fatalf("unexpected key: %s", replay.key)
	}
	if string(replay.value) != `{"event_type":"order.placed","order_id":42}` {
		t.Fatalf("unexpected value: %s", replay.value)
	}
}

func TestExtractReplayMessage_ConsumerFormatFallbackTopic(t *testing.T) {
	value, _ := json.Marshal(consumerDLQPayload{
		OriginalKey:   "7",
		OriginalValue: `{"event_type":"stock.deducted"}`,
	})

	replay, ok := extractReplayMessage(&sarama.ConsumerMessage{Value: value}, "fallback.topic")
	if !ok {
		t.Fatal("expected payload to be replayable")
	}
	if replay.topic != "fallback.topic" {
		t.Fatalf("expected fallback topic, got %s", replay.topic)
	}
}

func TestExtractReplayMessage_OutboxFormat(t *testing.T) {
	inner, _ := json.Marshal(map[string]any{
		"outbox_id":      "msg-1",
		"aggregate_type": "order",
		"aggregate_id":   "42",
		"event_type":     "order.placed",
		"payload":        json.RawMessage(`{"order_id":42}`),
		"publish_error":  "broker unavailable",
	})
	value, _ := json.Marshal(outboxDLQEnvelope{
		ID:            "msg-1",
		AggregateType: "order",
		AggregateID:   "42",
		EventType:     "order.placed",
		Payload:       inner,
	})

	replay, ok := extractReplayMessage(&sarama.ConsumerMessage{Value: value}, "fallback.topic")
	if !ok {
		t.Fatal("expected outbox dlq payload to be replayable")
	}
	if replay.topic != "fallback.topic" {
		t.Fatalf("unexpected topic: %s", replay.topic)
	}
	if replay.key != "42" {
		t.Fatalf("unexpected key: %s", replay.key)
	}

	var decoded struct {
		EventType string          `json:"event_type"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(replay.value, &decoded); err != nil {
		t.Fatalf("decode replay value: %v", err)
	}
	if decoded.EventType != "order.placed" {
		t.Fatalf("unexpected event type: %s", decoded.EventType)
	}
	if string(decoded.Payload) != `{"order_id":42}` {
		t.Fatalf("unexpected inner payload: %s", decoded.Payload)
	}
}

func TestExtractReplayMessage_Unsupported(t *testing.T) {
	if _, ok := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(`not json`)}, "t"); ok {
		t.Fatal("non-json message must not be replayable")
	}
	if _, ok := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(`{"foo":"bar"}`)}, "t"); ok {
		t.Fatal("unknown payload shape must not be replayable")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "a", "b"); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}
	if got := firstNonEmpty("", "  "); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
