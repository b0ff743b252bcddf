package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shipflow/internal/cache"
	"github.com/andresuchdata/shipflow/internal/domain"
	"github.com/andresuchdata/shipflow/internal/engine"
	"github.com/andresuchdata/shipflow/internal/loader"
	"github.com/andresuchdata/shipflow/internal/storage"
)

type fakeSnapshotRepo struct {
	rows  []domain.InventoryRow
	stock domain.WarehouseStock
}

func (f *fakeSnapshotRepo) ReplaceInventory(_ context.Context, rows []domain.InventoryRow) error {
	f.rows = rows
	return nil
}

func (f *fakeSnapshotRepo) LoadInventory(context.Context) ([]domain.InventoryRow, error) {
	return f.rows, nil
}

func (f *fakeSnapshotRepo) ReplaceWarehouseStock(_ context.Context, stock domain.WarehouseStock) error {
	f.stock = stock
	return nil
}

func (f *fakeSnapshotRepo) LoadWarehouseStock(context.Context) (domain.WarehouseStock, error) {
	return f.stock, nil
}

type fakeRunRepo struct {
	nextID int64
	runs   map[int64]*domain.AllocationRun
	lines  map[int64][]domain.AllocationResult
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		nextID: 1,
		runs:   make(map[int64]*domain.AllocationRun),
		lines:  make(map[int64][]domain.AllocationResult),
	}
}

func (f *fakeRunRepo) SaveRun(_ context.Context, run *domain.AllocationRun, lines []domain.AllocationResult) (int64, error) {
	id := f.nextID
	f.nextID++
	saved := *run
	saved.ID = id
	saved.LineCount = len(lines)
	f.runs[id] = &saved
	f.lines[id] = lines
	return id, nil
}

func (f *fakeRunRepo) GetRun(_ context.Context, id int64) (*domain.AllocationRun, error) {
	return f.runs[id], nil
}

func (f *fakeRunRepo) ListRuns(context.Context, *domain.RunFilter) ([]*domain.AllocationRun, error) {
	out := make([]*domain.AllocationRun, 0, len(f.runs))
	for _, r := range f.runs {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRunRepo) GetRunLines(_ context.Context, runID int64, _ *domain.RunFilter) ([]domain.AllocationResult, error) {
	return f.lines[runID], nil
}

type fakeObjectStorage struct {
	uploads map[string][]byte
}

func (f *fakeObjectStorage) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[key] = data
	return "http://storage.local/" + key, nil
}

func (f *fakeObjectStorage) Download(_ context.Context, key string) ([]byte, error) {
	return f.uploads[key], nil
}

func (f *fakeObjectStorage) Delete(_ context.Context, key string) error {
	delete(f.uploads, key)
	return nil
}

func snapshotFixture() *fakeSnapshotRepo {
	stock := make(domain.WarehouseStock)
	stock.Add("1", "A", 100)
	return &fakeSnapshotRepo{
		rows: []domain.InventoryRow{
			{StoreID: "7", SKUID: "A", WarehouseID: "1", OnHandStock: 2, WeeklySalesRate: 1},
			{StoreID: "8", SKUID: "A", WarehouseID: "1", OnHandStock: 1, WeeklySalesRate: 2},
		},
		stock: stock,
	}
}

func newService(snapshots *fakeSnapshotRepo, runs *fakeRunRepo, objects storage.ObjectStorage) *AllocationService {
	return NewAllocationService(engine.New(), snapshots, runs, cache.NewNoopSummaryCache(), objects)
}

func TestComputeFromSnapshot(t *testing.T) {
	svc := newService(snapshotFixture(), newFakeRunRepo(), nil)

	resp, err := svc.Compute(context.Background(), ComputeRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Allocations, 2)
	assert.Equal(t, 18.0, resp.Summary.TotalShipped)
	assert.Equal(t, 0.0, resp.Summary.TotalUnmet)
	assert.Zero(t, resp.RunID)
}

func TestComputeLeavesStoredStockUntouched(t *testing.T) {
	snapshots := snapshotFixture()
	svc := newService(snapshots, newFakeRunRepo(), nil)

	_, err := svc.Compute(context.Background(), ComputeRequest{})
	require.NoError(t, err)

	// the engine consumed a clone, not the stored map
	assert.Equal(t, 100.0, snapshots.stock[domain.StockKey{WarehouseID: "1", SKUID: "A"}])
}

func TestComputePersistsRun(t *testing.T) {
	runs := newFakeRunRepo()
	svc := newService(snapshotFixture(), runs, nil)

	resp, err := svc.Compute(context.Background(), ComputeRequest{Persist: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.RunID)

	run := runs.runs[1]
	require.NotNil(t, run)
	assert.Equal(t, engine.DefaultForwardCover, run.ForwardCover)
	assert.Equal(t, resp.Summary.TotalShipped, run.TotalShipped)
	assert.Len(t, runs.lines[1], 2)
}

func TestComputeExportsCSV(t *testing.T) {
	objects := &fakeObjectStorage{}
	svc := newService(snapshotFixture(), newFakeRunRepo(), objects)

	resp, err := svc.Compute(context.Background(), ComputeRequest{Persist: true, Export: true})
	require.NoError(t, err)

	assert.Contains(t, resp.ExportURL, "run-1.csv")
	data := objects.uploads["allocations/run-1.csv"]
	require.NotEmpty(t, data)
	assert.Contains(t, string(data), "store_id,sku_id,warehouse_id")
}

func TestGetRunSummaryRecomputesFromLines(t *testing.T) {
	runs := newFakeRunRepo()
	svc := newService(snapshotFixture(), runs, nil)

	resp, err := svc.Compute(context.Background(), ComputeRequest{Persist: true})
	require.NoError(t, err)

	summary, err := svc.GetRunSummary(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, resp.Summary.TotalShipped, summary.TotalShipped)
	assert.Equal(t, resp.Summary.SKUCount, summary.SKUCount)
}

func TestComputeWithoutWarehouseStockIsConfigurationError(t *testing.T) {
	snapshots := snapshotFixture()
	snapshots.stock = nil
	svc := newService(snapshots, newFakeRunRepo(), nil)

	_, err := svc.Compute(context.Background(), ComputeRequest{})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestComputeEmptyFilterSurfacesEmptyResult(t *testing.T) {
	svc := newService(snapshotFixture(), newFakeRunRepo(), nil)

	missing := "ZZZ"
	_, err := svc.Compute(context.Background(), ComputeRequest{SKUID: &missing})

	var emptyErr *domain.EmptyResultError
	require.ErrorAs(t, err, &emptyErr)
}

func TestIngestSnapshot(t *testing.T) {
	snapshots := &fakeSnapshotRepo{}
	svc := newService(snapshots, newFakeRunRepo(), nil)

	inventory := strings.NewReader("store_id,sku_id,stock,sales\n7,A,2,1\n")
	warehouse := strings.NewReader("warehouse_id,sku_id,quantity\n1,A,50\n")

	warnings, err := svc.IngestSnapshot(context.Background(), inventory, warehouse, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings) // optional inventory columns absent

	require.Len(t, snapshots.rows, 1)
	assert.Equal(t, loader.DefaultWarehouseID, snapshots.rows[0].WarehouseID)
	assert.Equal(t, 50.0, snapshots.stock[domain.StockKey{WarehouseID: "1", SKUID: "A"}])
}

func TestQuickReport(t *testing.T) {
	summary := domain.Summary{
		TotalShipped:     18,
		TotalNeed:        18,
		FulfillmentRatio: 1,
		SKUCount:         1,
		StoreCount:       2,
		WarehouseCount:   1,
		TopSKUs: []domain.BreakdownEntry{
			{Key: "A", Shipped: 18, Need: 18, Status: domain.FulfillmentFull},
		},
		TopStores: []domain.BreakdownEntry{
			{Key: "8", Shipped: 13, Need: 13, Status: domain.FulfillmentFull},
			{Key: "7", Shipped: 5, Need: 5, Status: domain.FulfillmentFull},
		},
	}

	report := QuickReport(summary)

	assert.Contains(t, report, "shipped 18 of 18 needed (100.0%)")
	assert.Contains(t, report, "top SKUs by shipped quantity")
	assert.Contains(t, report, "FULL")
}
