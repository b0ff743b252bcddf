// internal/domain/models.go
package domain

import "time"

// InventoryRow is one (store, SKU) observation from the normalized
// stock/sales snapshot, enriched with reference data where available.
type InventoryRow struct {
	StoreID     string `json:"store_id" db:"store_id"`
	SKUID       string `json:"sku_id" db:"sku_id"`
	WarehouseID string `json:"warehouse_id" db:"warehouse_id"`

	OnHandStock     float64 `json:"on_hand_stock" db:"on_hand_stock"`
	InTransit       float64 `json:"in_transit" db:"in_transit"`
	WeeklySalesRate float64 `json:"weekly_sales_rate" db:"weekly_sales_rate"`

	// MinimumThreshold comes from the KPI table keyed by merchandise group;
	// rows with no match keep 0.
	MinimumThreshold float64  `json:"minimum_threshold" db:"minimum_threshold"`
	MaximumThreshold *float64 `json:"maximum_threshold,omitempty" db:"maximum_threshold"`

	// Optional enrichment columns; nil means the source never carried them.
	CategoryID         *int64  `json:"category_id,omitempty" db:"category_id"`
	BrandID            *string `json:"brand_id,omitempty" db:"brand_id"`
	MerchandiseGroupID *string `json:"merchandise_group_id,omitempty" db:"merchandise_group_id"`
}

// StockKey identifies one warehouse-level stock pool.
type StockKey struct {
	WarehouseID string `json:"warehouse_id"`
	SKUID       string `json:"sku_id"`
}

// WarehouseStock maps (warehouse, SKU) to the quantity available for
// allocation. The allocator mutates it destructively, so callers must hand
// over a fresh copy per computation.
type WarehouseStock map[StockKey]float64

// Clone returns an independent copy safe to consume in one allocation pass.
func (ws WarehouseStock) Clone() WarehouseStock {
	out := make(WarehouseStock, len(ws))
	for k, v := range ws {
		out[k] = v
	}
	return out
}

// Add accumulates quantity on a key, summing duplicate source entries.
func (ws WarehouseStock) Add(warehouseID, skuID string, qty float64) {
	ws[StockKey{WarehouseID: warehouseID, SKUID: skuID}] += qty
}

// NeedKind labels which formula produced the final need quantity.
type NeedKind string

const (
	NeedRPT  NeedKind = "RPT"
	NeedMIN  NeedKind = "MIN"
	NeedNone NeedKind = "NONE"
)

// ParameterSet holds the per-row tuning coefficients. InflationRatio is
// carried for the segment-matrix extension but does not enter the need
// formula.
type ParameterSet struct {
	InflationRatio float64 `json:"inflation_ratio"`
	ExpansionRatio float64 `json:"expansion_ratio"`
	MinStockRatio  float64 `json:"min_stock_ratio"`
}

// AllocationResult is one shipped/unmet line for a row with positive need.
type AllocationResult struct {
	StoreID     string `json:"store_id" db:"store_id"`
	SKUID       string `json:"sku_id" db:"sku_id"`
	WarehouseID string `json:"warehouse_id" db:"warehouse_id"`

	CategoryID *int64  `json:"category_id,omitempty" db:"category_id"`
	BrandID    *string `json:"brand_id,omitempty" db:"brand_id"`

	OnHandStock      float64 `json:"on_hand_stock" db:"on_hand_stock"`
	InTransit        float64 `json:"in_transit" db:"in_transit"`
	WeeklySalesRate  float64 `json:"weekly_sales_rate" db:"weekly_sales_rate"`
	MinimumThreshold float64 `json:"minimum_threshold" db:"minimum_threshold"`

	// Cover is current stock expressed in weeks of sales; 0 when sales are 0.
	Cover       float64 `json:"cover" db:"cover"`
	TargetStock float64 `json:"target_stock" db:"target_stock"`

	NeedQuantity    float64  `json:"need_quantity" db:"need_quantity"`
	NeedKind        NeedKind `json:"need_kind" db:"need_kind"`
	ShippedQuantity float64  `json:"shipped_quantity" db:"shipped_quantity"`
	UnmetQuantity   float64  `json:"unmet_quantity" db:"unmet_quantity"`

	SKUSegment   string `json:"sku_segment" db:"sku_segment"`
	StoreSegment string `json:"store_segment" db:"store_segment"`
}

// FulfillmentStatus classifies how much of an aggregate need was covered.
type FulfillmentStatus string

const (
	FulfillmentFull    FulfillmentStatus = "FULL"
	FulfillmentPartial FulfillmentStatus = "PARTIAL"
	FulfillmentNone    FulfillmentStatus = "NONE"
)

// BreakdownEntry is one line of a top-N breakdown (by SKU, store or warehouse).
type BreakdownEntry struct {
	Key     string            `json:"key"`
	Shipped float64           `json:"shipped"`
	Need    float64           `json:"need"`
	Unmet   float64           `json:"unmet"`
	Status  FulfillmentStatus `json:"status"`
}

// Summary aggregates one allocation pass.
type Summary struct {
	TotalShipped     float64 `json:"total_shipped"`
	TotalNeed        float64 `json:"total_need"`
	TotalUnmet       float64 `json:"total_unmet"`
	FulfillmentRatio float64 `json:"fulfillment_ratio"`

	SKUCount       int `json:"sku_count"`
	StoreCount     int `json:"store_count"`
	WarehouseCount int `json:"warehouse_count"`

	TopSKUs       []BreakdownEntry `json:"top_skus"`
	TopStores     []BreakdownEntry `json:"top_stores"`
	TopWarehouses []BreakdownEntry `json:"top_warehouses"`
}

// ComputeResult is what one engine invocation returns. Warnings are
// diagnostics collected along the way, never raised.
type ComputeResult struct {
	Allocations []AllocationResult `json:"allocations"`
	Summary     Summary            `json:"summary"`
	Warnings    []Warning          `json:"warnings,omitempty"`
}

// AllocationRun records one persisted compute invocation.
type AllocationRun struct {
	ID           int64     `json:"id" db:"id"`
	CategoryID   *int64    `json:"category_id,omitempty" db:"category_id"`
	SKUID        *string   `json:"sku_id,omitempty" db:"sku_id"`
	BrandID      *string   `json:"brand_id,omitempty" db:"brand_id"`
	ForwardCover float64   `json:"forward_cover" db:"forward_cover"`
	TotalShipped float64   `json:"total_shipped" db:"total_shipped"`
	TotalNeed    float64   `json:"total_need" db:"total_need"`
	TotalUnmet   float64   `json:"total_unmet" db:"total_unmet"`
	LineCount    int       `json:"line_count" db:"line_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RunFilter pages through persisted allocation runs and their lines.
type RunFilter struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
