package postgres

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

func TestLedgerRepository_PostgresAppendAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewLedgerRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	movements := []domain.StockMovement{
		{ProductID: 10, OrderID: 1, Kind: domain.MovementDeduct, Quantity: 4, Occurred: now},
		{ProductID: 11, OrderID: 1, Kind: domain.MovementDeduct, Quantity: 1, Occurred: now},
		{ProductID: 10, OrderID: 1, Kind: domain.MovementRestock, Quantity: 4, Occurred: now.Add(time.Minute)},
		{ProductID: 10, OrderID: 2, Kind: domain.MovementDeduct, Quantity: 2, Occurred: now},
	}
	for _, movement := range movements {
		if err := ledger.Append(movement); err != nil {
			t.Fatalf("append movement: %v", err)
		}
	}

	byOrder, err := ledger.ListByOrder(1)
	if err != nil {
		t.Fatalf("list movements by order: %v", err)
	}
	if len(byOrder) != 3 {
		t.Fatalf("expected 3 movements for order 1, got %d", len(byOrder))
	}
	if byOrder[0].Kind != domain.MovementDeduct || byOrder[2].Kind != domain.MovementRestock {
		t.Fatalf("unexpected movement kinds: %+v", byOrder)
	}
	for _, movement := range byOrder {
		if movement.ID == 0 {
			t.Fatalf("expected assigned movement id: %+v", movement)
		}
	}

	empty, err := ledger.ListByOrder(404)
	if err != nil {
		t.Fatalf("list movements for unknown order: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty journal for unknown order, got %d", len(empty))
	}
}
