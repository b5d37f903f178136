package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luxecraft/atelier/internal/models"
)

// ProductStore is the read path for building order-item snapshots. A missing
// product is reported as unavailable, the same as an inactive one.
type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) GetSnapshot(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, sku, title, price_paisa, active, track_inventory, stock
		FROM products
		WHERE id = $1
	`, productID).Scan(&product.ID, &product.SKU, &product.Title, &product.PricePaisa, &product.Active, &product.TrackInventory, &product.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrProductUnavailable, productID)
		}
		return nil, err
	}

	return &product, nil
}
