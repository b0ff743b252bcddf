// internal/repository/postgres/run_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/shipflow/internal/domain"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db}
}

// SaveRun inserts the run header and all shipment lines in one transaction
// and returns the new run id.
func (r *runRepository) SaveRun(ctx context.Context, run *domain.AllocationRun, lines []domain.AllocationResult) (int64, error) {
	var runID int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		headerQuery := `
			INSERT INTO allocation_runs (
				category_id, sku_id, brand_id, forward_cover,
				total_shipped, total_need, total_unmet, line_count, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, headerQuery,
			run.CategoryID,
			run.SKUID,
			run.BrandID,
			run.ForwardCover,
			run.TotalShipped,
			run.TotalNeed,
			run.TotalUnmet,
			len(lines),
		).Scan(&runID)
		if err != nil {
			return fmt.Errorf("failed to insert allocation run: %w", err)
		}

		lineQuery := `
			INSERT INTO allocation_lines (
				run_id, store_id, sku_id, warehouse_id, category_id, brand_id,
				on_hand_stock, in_transit, weekly_sales_rate, minimum_threshold,
				cover, target_stock, need_quantity, need_kind,
				shipped_quantity, unmet_quantity, sku_segment, store_segment
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`
		stmt, err := tx.PrepareContext(ctx, lineQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare line statement: %w", err)
		}
		defer stmt.Close()

		for _, line := range lines {
			_, err := stmt.ExecContext(ctx,
				runID,
				line.StoreID,
				line.SKUID,
				line.WarehouseID,
				line.CategoryID,
				line.BrandID,
				line.OnHandStock,
				line.InTransit,
				line.WeeklySalesRate,
				line.MinimumThreshold,
				line.Cover,
				line.TargetStock,
				line.NeedQuantity,
				line.NeedKind,
				line.ShippedQuantity,
				line.UnmetQuantity,
				line.SKUSegment,
				line.StoreSegment,
			)
			if err != nil {
				return fmt.Errorf("failed to insert allocation line: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

func (r *runRepository) GetRun(ctx context.Context, id int64) (*domain.AllocationRun, error) {
	query := `
		SELECT id, category_id, sku_id, brand_id, forward_cover,
			total_shipped, total_need, total_unmet, line_count, created_at
		FROM allocation_runs
		WHERE id = $1
	`

	var run domain.AllocationRun
	if err := sqlx.GetContext(ctx, r.db, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get allocation run %d: %w", id, err)
	}
	return &run, nil
}

func (r *runRepository) ListRuns(ctx context.Context, filter *domain.RunFilter) ([]*domain.AllocationRun, error) {
	page, pageSize := normalizePaging(filter)

	query := `
		SELECT id, category_id, sku_id, brand_id, forward_cover,
			total_shipped, total_need, total_unmet, line_count, created_at
		FROM allocation_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var runs []*domain.AllocationRun
	if err := sqlx.SelectContext(ctx, r.db, &runs, query, pageSize, (page-1)*pageSize); err != nil {
		return nil, fmt.Errorf("failed to list allocation runs: %w", err)
	}
	return runs, nil
}

func (r *runRepository) GetRunLines(ctx context.Context, runID int64, filter *domain.RunFilter) ([]domain.AllocationResult, error) {
	page, pageSize := normalizePaging(filter)

	query := `
		SELECT store_id, sku_id, warehouse_id, category_id, brand_id,
			on_hand_stock, in_transit, weekly_sales_rate, minimum_threshold,
			cover, target_stock, need_quantity, need_kind,
			shipped_quantity, unmet_quantity, sku_segment, store_segment
		FROM allocation_lines
		WHERE run_id = $1
		ORDER BY shipped_quantity DESC, store_id, sku_id
		LIMIT $2 OFFSET $3
	`

	var lines []domain.AllocationResult
	if err := sqlx.SelectContext(ctx, r.db, &lines, query, runID, pageSize, (page-1)*pageSize); err != nil {
		return nil, fmt.Errorf("failed to get lines for run %d: %w", runID, err)
	}
	return lines, nil
}

func normalizePaging(filter *domain.RunFilter) (page, pageSize int) {
	page, pageSize = 1, 50
	if filter != nil {
		if filter.Page > 0 {
			page = filter.Page
		}
		if filter.PageSize > 0 && filter.PageSize <= 500 {
			pageSize = filter.PageSize
		}
	}
	return page, pageSize
}
