// internal/engine/summary.go
package engine

import (
	"sort"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// DefaultTopN bounds the breakdown lists when the caller does not ask for a
// specific width.
const DefaultTopN = 5

// Summarize aggregates an allocation result into totals, a fulfillment
// ratio and top-N breakdowns. Pure read-only aggregation, usable on
// persisted lines as well as fresh ones.
func Summarize(allocations []domain.AllocationResult, topN int) domain.Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}

	s := domain.Summary{}
	bySKU := make(map[string]*domain.BreakdownEntry)
	byStore := make(map[string]*domain.BreakdownEntry)
	byWarehouse := make(map[string]*domain.BreakdownEntry)

	accumulate := func(m map[string]*domain.BreakdownEntry, key string, a domain.AllocationResult) {
		e := m[key]
		if e == nil {
			e = &domain.BreakdownEntry{Key: key}
			m[key] = e
		}
		e.Shipped += a.ShippedQuantity
		e.Need += a.NeedQuantity
		e.Unmet += a.UnmetQuantity
	}

	for _, a := range allocations {
		s.TotalShipped += a.ShippedQuantity
		s.TotalNeed += a.NeedQuantity
		s.TotalUnmet += a.UnmetQuantity
		accumulate(bySKU, a.SKUID, a)
		accumulate(byStore, a.StoreID, a)
		accumulate(byWarehouse, a.WarehouseID, a)
	}

	if s.TotalNeed > 0 {
		s.FulfillmentRatio = s.TotalShipped / s.TotalNeed
	}

	s.SKUCount = len(bySKU)
	s.StoreCount = len(byStore)
	s.WarehouseCount = len(byWarehouse)

	s.TopSKUs = topEntries(bySKU, topN)
	s.TopStores = topEntries(byStore, topN)
	s.TopWarehouses = topEntries(byWarehouse, topN)

	return s
}

// topEntries ranks breakdown entries by shipped quantity descending, keys
// ascending on ties, truncated to n.
func topEntries(m map[string]*domain.BreakdownEntry, n int) []domain.BreakdownEntry {
	entries := make([]domain.BreakdownEntry, 0, len(m))
	for _, e := range m {
		e.Status = fulfillmentStatus(e.Shipped, e.Unmet)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Shipped != entries[j].Shipped {
			return entries[i].Shipped > entries[j].Shipped
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

const quantityEpsilon = 1e-9

func fulfillmentStatus(shipped, unmet float64) domain.FulfillmentStatus {
	switch {
	case unmet <= quantityEpsilon:
		return domain.FulfillmentFull
	case shipped <= quantityEpsilon:
		return domain.FulfillmentNone
	default:
		return domain.FulfillmentPartial
	}
}
