// internal/repository/run_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// RunRepository persists allocation runs and their shipment lines.
type RunRepository interface {
	SaveRun(ctx context.Context, run *domain.AllocationRun, lines []domain.AllocationResult) (int64, error)
	GetRun(ctx context.Context, id int64) (*domain.AllocationRun, error)
	ListRuns(ctx context.Context, filter *domain.RunFilter) ([]*domain.AllocationRun, error)
	GetRunLines(ctx context.Context, runID int64, filter *domain.RunFilter) ([]domain.AllocationResult, error)
}

// SnapshotRepository stores and reloads the normalized inventory and
// warehouse stock snapshots the engine computes from.
type SnapshotRepository interface {
	ReplaceInventory(ctx context.Context, rows []domain.InventoryRow) error
	LoadInventory(ctx context.Context) ([]domain.InventoryRow, error)
	ReplaceWarehouseStock(ctx context.Context, stock domain.WarehouseStock) error
	LoadWarehouseStock(ctx context.Context) (domain.WarehouseStock, error)
}
