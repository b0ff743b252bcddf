// internal/repository/postgres/snapshot_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/shipflow/internal/domain"
)

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *snapshotRepository {
	return &snapshotRepository{db: db}
}

// ReplaceInventory swaps the whole inventory snapshot. The engine always
// computes from a complete snapshot, so partial updates are not supported.
func (r *snapshotRepository) ReplaceInventory(ctx context.Context, rows []domain.InventoryRow) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE inventory_snapshot`); err != nil {
			return fmt.Errorf("failed to truncate inventory snapshot: %w", err)
		}

		query := `
			INSERT INTO inventory_snapshot (
				store_id, sku_id, warehouse_id, on_hand_stock, in_transit,
				weekly_sales_rate, minimum_threshold, maximum_threshold,
				category_id, brand_id, merchandise_group_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare inventory statement: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			_, err := stmt.ExecContext(ctx,
				row.StoreID,
				row.SKUID,
				row.WarehouseID,
				row.OnHandStock,
				row.InTransit,
				row.WeeklySalesRate,
				row.MinimumThreshold,
				row.MaximumThreshold,
				row.CategoryID,
				row.BrandID,
				row.MerchandiseGroupID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert inventory row: %w", err)
			}
		}

		return nil
	})
}

func (r *snapshotRepository) LoadInventory(ctx context.Context) ([]domain.InventoryRow, error) {
	query := `
		SELECT store_id, sku_id, warehouse_id, on_hand_stock, in_transit,
			weekly_sales_rate, minimum_threshold, maximum_threshold,
			category_id, brand_id, merchandise_group_id
		FROM inventory_snapshot
		ORDER BY store_id, sku_id
	`

	var rows []domain.InventoryRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load inventory snapshot: %w", err)
	}
	return rows, nil
}

func (r *snapshotRepository) ReplaceWarehouseStock(ctx context.Context, stock domain.WarehouseStock) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE warehouse_stock`); err != nil {
			return fmt.Errorf("failed to truncate warehouse stock: %w", err)
		}

		query := `
			INSERT INTO warehouse_stock (warehouse_id, sku_id, quantity)
			VALUES ($1, $2, $3)
		`
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare warehouse stock statement: %w", err)
		}
		defer stmt.Close()

		for key, qty := range stock {
			if _, err := stmt.ExecContext(ctx, key.WarehouseID, key.SKUID, qty); err != nil {
				return fmt.Errorf("failed to insert warehouse stock: %w", err)
			}
		}

		return nil
	})
}

func (r *snapshotRepository) LoadWarehouseStock(ctx context.Context) (domain.WarehouseStock, error) {
	query := `
		SELECT warehouse_id, sku_id, quantity
		FROM warehouse_stock
	`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load warehouse stock: %w", err)
	}
	defer rows.Close()

	stock := make(domain.WarehouseStock)
	for rows.Next() {
		var warehouseID, skuID string
		var qty float64
		if err := rows.Scan(&warehouseID, &skuID, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse stock row: %w", err)
		}
		stock.Add(warehouseID, skuID, qty)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate warehouse stock: %w", err)
	}
	return stock, nil
}
