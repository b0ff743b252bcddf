// internal/engine/allocator.go
package engine

import (
	"sort"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// needRow pairs an inventory row with its computed need and segments, ready
// for allocation.
type needRow struct {
	row          domain.InventoryRow
	need         NeedResult
	skuSegment   string
	storeSegment string
}

// allocate distributes the warehouse stock pool over rows with positive need
// in a single greedy forward pass. Rows are served in descending need order;
// competition for a shared pool is scoped to rows with an identical
// (warehouse, SKU) key — the global sort only fixes iteration order, it does
// not make unlike keys compete.
//
// The pool is mutated destructively. Sorting is stable with a secondary
// (store, SKU) key so identical inputs always produce identical output.
func allocate(rows []needRow, pool domain.WarehouseStock) []domain.AllocationResult {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.need.FinalNeed != b.need.FinalNeed {
			return a.need.FinalNeed > b.need.FinalNeed
		}
		if a.row.StoreID != b.row.StoreID {
			return a.row.StoreID < b.row.StoreID
		}
		return a.row.SKUID < b.row.SKUID
	})

	results := make([]domain.AllocationResult, 0, len(rows))
	for _, nr := range rows {
		key := domain.StockKey{WarehouseID: nr.row.WarehouseID, SKUID: nr.row.SKUID}

		shipped := 0.0
		if remaining, ok := pool[key]; ok && remaining > 0 {
			shipped = nr.need.FinalNeed
			if remaining < shipped {
				shipped = remaining
			}
			pool[key] = remaining - shipped
		}

		results = append(results, domain.AllocationResult{
			StoreID:          nr.row.StoreID,
			SKUID:            nr.row.SKUID,
			WarehouseID:      nr.row.WarehouseID,
			CategoryID:       nr.row.CategoryID,
			BrandID:          nr.row.BrandID,
			OnHandStock:      nr.row.OnHandStock,
			InTransit:        nr.row.InTransit,
			WeeklySalesRate:  nr.row.WeeklySalesRate,
			MinimumThreshold: nr.row.MinimumThreshold,
			Cover:            nr.need.Cover,
			TargetStock:      nr.need.TargetStock,
			NeedQuantity:     nr.need.FinalNeed,
			NeedKind:         nr.need.Kind,
			ShippedQuantity:  shipped,
			UnmetQuantity:    nr.need.FinalNeed - shipped,
			SKUSegment:       nr.skuSegment,
			StoreSegment:     nr.storeSegment,
		})
	}

	return results
}
