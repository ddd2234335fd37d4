package postgres

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	first, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "1",
		EventType:     "order.placed",
		Payload:       []byte(`{"order_id":1}`),
	})
	if err != nil {
		t.Fatalf("enqueue first message: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated outbox message id")
	}

	second, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "1",
		EventType:     "order.canceled",
		Payload:       []byte(`{"order_id":1}`),
	})
	if err != nil {
		t.Fatalf("enqueue second message: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}
	if pending[0].EventType != "order.placed" {
		t.Fatalf("expected FIFO pull order, got %+v", pending)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("outbox stats: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := repo.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	remaining, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending after mark: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no pending messages, got %d", len(remaining))
	}

	if err := repo.MarkSent("missing-id"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish for unknown message, got %v", err)
	}
}
