package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

type ledgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository создаёт PostgreSQL-реализацию журнала движений остатков.
func NewLedgerRepository(store *Store) domain.StockLedger {
	return &ledgerRepository{db: store.DB()}
}

func (r *ledgerRepository) Append(movement domain.StockMovement) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_movements (product_id, order_id, kind, quantity, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		movement.ProductID, movement.OrderID, string(movement.Kind),
		movement.Quantity, movement.Occurred,
	)
	if err != nil {
		return fmt.Errorf("append stock movement: %w", err)
	}

	return nil
}

func (r *ledgerRepository) ListByOrder(orderID int64) ([]domain.StockMovement, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, order_id, kind, quantity, occurred_at
		FROM stock_movements
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0)
	for rows.Next() {
		var (
			movement domain.StockMovement
			kind     string
		)
		if err := rows.Scan(
			&movement.ID, &movement.ProductID, &movement.OrderID,
			&kind, &movement.Quantity, &movement.Occurred,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		movement.Kind = domain.MovementKind(kind)
		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}

	return movements, nil
}

var _ domain.StockLedger = (*ledgerRepository)(nil)
