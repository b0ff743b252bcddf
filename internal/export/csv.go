// internal/export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// allocationHeader is the column order of the shipment export. Downstream
// planners load this file directly, so the order is part of the contract.
var allocationHeader = []string{
	"store_id",
	"sku_id",
	"warehouse_id",
	"on_hand_stock",
	"in_transit",
	"minimum_threshold",
	"weekly_sales_rate",
	"cover",
	"target_stock",
	"need",
	"need_kind",
	"shipped",
	"unmet",
	"status",
	"sku_segment",
	"store_segment",
}

// WriteAllocations writes allocation results as CSV to w, one row per
// store/SKU line in allocation order.
func WriteAllocations(w io.Writer, results []domain.AllocationResult) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(allocationHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for _, r := range results {
		record := []string{
			r.StoreID,
			r.SKUID,
			r.WarehouseID,
			formatQty(r.OnHandStock),
			formatQty(r.InTransit),
			formatQty(r.MinimumThreshold),
			fmt.Sprintf("%.2f", r.WeeklySalesRate),
			fmt.Sprintf("%.1f", r.Cover),
			formatQty(r.TargetStock),
			formatQty(r.NeedQuantity),
			string(r.NeedKind),
			formatQty(r.ShippedQuantity),
			formatQty(r.UnmetQuantity),
			string(lineStatus(r)),
			r.SKUSegment,
			r.StoreSegment,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write export record: %w", err)
		}
	}

	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return nil
}

func lineStatus(r domain.AllocationResult) domain.FulfillmentStatus {
	switch {
	case r.ShippedQuantity <= 0:
		return domain.FulfillmentNone
	case r.UnmetQuantity > 0:
		return domain.FulfillmentPartial
	default:
		return domain.FulfillmentFull
	}
}

// formatQty prints quantities without a fractional part when they are whole,
// matching how the planner spreadsheets carry them.
func formatQty(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
