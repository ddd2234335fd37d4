package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/inventory/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (sku, name, price_minor, stock_quantity, active, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`,
		product.SKU, product.Name, product.PriceMinor, product.StockQuantity,
		product.Active, product.Version, product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrSKUAlreadyExists
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

func (r *productRepository) Get(id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sku, name, price_minor, stock_quantity, active, version, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.SKU, &product.Name, &product.PriceMinor,
		&product.StockQuantity, &product.Active, &product.Version,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (r *productRepository) List() ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sku, name, price_minor, stock_quantity, active, version, created_at, updated_at
		FROM products
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.SKU, &product.Name, &product.PriceMinor,
			&product.StockQuantity, &product.Active, &product.Version,
			&product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// Save перезаписывает товар с проверкой версии. UPDATE с условием по version
// сериализует конкурентные изменения остатка: проигравший получает
// ErrProductVersionConflict и должен перечитать товар.
func (r *productRepository) Save(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET sku = $1,
		    name = $2,
		    price_minor = $3,
		    stock_quantity = $4,
		    active = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE id = $7
		  AND version = $8
	`,
		product.SKU, product.Name, product.PriceMinor, product.StockQuantity,
		product.Active, product.UpdatedAt, product.ID, product.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSKUAlreadyExists
		}
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.productExists(ctx, product.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrProductNotFound
		}
		return domain.ErrProductVersionConflict
	}

	return nil
}

func (r *productRepository) Delete(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *productRepository) productExists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

var _ domain.ProductRepository = (*productRepository)(nil)
