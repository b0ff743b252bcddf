package engine

import (
	"testing"

	"github.com/andresuchdata/shipflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func needOf(store, sku, warehouse string, finalNeed float64) needRow {
	return needRow{
		row: domain.InventoryRow{StoreID: store, SKUID: sku, WarehouseID: warehouse},
		need: NeedResult{
			FinalNeed: finalNeed,
			Kind:      domain.NeedRPT,
		},
		skuSegment:   "0-4",
		storeSegment: "0-4",
	}
}

func TestAllocate_SharedPoolIsDrainedInNeedOrder(t *testing.T) {
	// Two rows competing for the same (warehouse, SKU) pool of 120:
	// need 100 ships in full, need 40 gets the remaining 20.
	rows := []needRow{
		needOf("20", "A", "1", 40),
		needOf("10", "A", "1", 100),
	}
	pool := domain.WarehouseStock{
		{WarehouseID: "1", SKUID: "A"}: 120,
	}

	results := allocate(rows, pool)
	require.Len(t, results, 2)

	assert.Equal(t, "10", results[0].StoreID)
	assert.Equal(t, 100.0, results[0].ShippedQuantity)
	assert.Equal(t, 0.0, results[0].UnmetQuantity)

	assert.Equal(t, "20", results[1].StoreID)
	assert.Equal(t, 20.0, results[1].ShippedQuantity)
	assert.Equal(t, 20.0, results[1].UnmetQuantity)

	assert.Equal(t, 0.0, pool[domain.StockKey{WarehouseID: "1", SKUID: "A"}])
}

func TestAllocate_MissingPoolKeyShipsNothing(t *testing.T) {
	rows := []needRow{needOf("10", "B", "2", 15)}
	pool := domain.WarehouseStock{
		{WarehouseID: "1", SKUID: "B"}: 500, // different warehouse, no match
	}

	results := allocate(rows, pool)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].ShippedQuantity)
	assert.Equal(t, 15.0, results[0].UnmetQuantity)
}

func TestAllocate_DifferentKeysDoNotCompete(t *testing.T) {
	// A very large need for SKU X must not starve SKU Y's pool: the global
	// need sort only fixes iteration order.
	rows := []needRow{
		needOf("10", "X", "1", 10000),
		needOf("20", "Y", "1", 5),
	}
	pool := domain.WarehouseStock{
		{WarehouseID: "1", SKUID: "X"}: 100,
		{WarehouseID: "1", SKUID: "Y"}: 5,
	}

	results := allocate(rows, pool)
	require.Len(t, results, 2)
	assert.Equal(t, 100.0, results[0].ShippedQuantity)
	assert.Equal(t, 5.0, results[1].ShippedQuantity)
	assert.Equal(t, 0.0, results[1].UnmetQuantity)
}

func TestAllocate_StableTieOrder(t *testing.T) {
	// Equal needs are served in (store, SKU) order so repeated runs over the
	// same input always produce the same output.
	rows := []needRow{
		needOf("30", "A", "1", 10),
		needOf("10", "A", "1", 10),
		needOf("20", "A", "1", 10),
	}
	pool := domain.WarehouseStock{
		{WarehouseID: "1", SKUID: "A"}: 15,
	}

	results := allocate(rows, pool)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"10", "20", "30"}, []string{results[0].StoreID, results[1].StoreID, results[2].StoreID})
	assert.Equal(t, 10.0, results[0].ShippedQuantity)
	assert.Equal(t, 5.0, results[1].ShippedQuantity)
	assert.Equal(t, 0.0, results[2].ShippedQuantity)
}

func TestAllocate_BoundsAndConservation(t *testing.T) {
	rows := []needRow{
		needOf("10", "A", "1", 50),
		needOf("20", "A", "1", 30),
		needOf("30", "A", "1", 20),
		needOf("10", "B", "1", 40),
		needOf("20", "B", "2", 25),
	}
	initial := domain.WarehouseStock{
		{WarehouseID: "1", SKUID: "A"}: 60,
		{WarehouseID: "1", SKUID: "B"}: 100,
		{WarehouseID: "2", SKUID: "B"}: 10,
	}
	pool := initial.Clone()

	results := allocate(rows, pool)

	shippedByKey := make(map[domain.StockKey]float64)
	for _, r := range results {
		key := domain.StockKey{WarehouseID: r.WarehouseID, SKUID: r.SKUID}
		assert.GreaterOrEqual(t, r.ShippedQuantity, 0.0)
		assert.LessOrEqual(t, r.ShippedQuantity, r.NeedQuantity)
		assert.LessOrEqual(t, r.ShippedQuantity, initial[key])
		shippedByKey[key] += r.ShippedQuantity
	}

	needByKey := make(map[domain.StockKey]float64)
	for _, nr := range rows {
		needByKey[domain.StockKey{WarehouseID: nr.row.WarehouseID, SKUID: nr.row.SKUID}] += nr.need.FinalNeed
	}

	for key, shipped := range shippedByKey {
		assert.LessOrEqual(t, shipped, initial[key], "key %v over-ships its pool", key)
		if needByKey[key] >= initial[key] {
			assert.Equal(t, initial[key], shipped, "scarce key %v must be fully drained", key)
		}
	}
}
