// internal/loader/columns.go
package loader

import (
	"strings"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// Logical column names the engine depends on. The fuzzy header matching of
// the source spreadsheets is reduced to this one explicit alias table,
// resolved once per file.
const (
	ColStore     = "store_id"
	ColSKU       = "sku_id"
	ColStock     = "on_hand_stock"
	ColSales     = "weekly_sales_rate"
	ColInTransit = "in_transit"
	ColWarehouse = "warehouse_id"
	ColMinimum   = "minimum_threshold"
	ColMaximum   = "maximum_threshold"
	ColCategory  = "category_id"
	ColBrand     = "brand_id"
	ColGroup     = "merchandise_group_id"
	ColQuantity  = "quantity"
)

// columnAliases maps each logical column to the header spellings seen across
// the source spreadsheet variants (Turkish planner exports included).
var columnAliases = map[string][]string{
	ColStore:     {"store_id", "store", "store_code", "magaza_kod", "magaza_kodu", "magaza"},
	ColSKU:       {"sku_id", "sku", "product_code", "urun_kod", "urun_kodu", "urunkod"},
	ColStock:     {"on_hand_stock", "stock", "stok", "current_stock"},
	ColSales:     {"weekly_sales_rate", "weekly_sales", "sales", "satis", "daily_sales"},
	ColInTransit: {"in_transit", "yol", "in_transit_qty"},
	ColWarehouse: {"warehouse_id", "warehouse", "depo_kod", "depo_kodu", "depokod", "depo"},
	ColMinimum:   {"minimum_threshold", "min_deger", "min_value", "min"},
	ColMaximum:   {"maximum_threshold", "max_deger", "max_value", "max"},
	ColCategory:  {"category_id", "category", "kategori_kod", "kategori"},
	ColBrand:     {"brand_id", "brand", "marka_kod", "marka"},
	ColGroup:     {"merchandise_group_id", "merch_group", "mg_id", "mg"},
	ColQuantity:  {"quantity", "qty", "stok", "stock", "miktar", "adet"},
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// ColumnMap is the resolved logical -> physical index mapping for one file.
// Missing optional columns are simply absent.
type ColumnMap map[string]int

// Has reports whether the logical column was found in the header.
func (m ColumnMap) Has(logical string) bool {
	_, ok := m[logical]
	return ok
}

// ResolveColumns matches a CSV header against the alias table. Each logical
// name in required must resolve or the whole file is rejected with a
// ConfigurationError: a missing allocation column silently zero-filled would
// report false "no shortage".
func ResolveColumns(header []string, required ...string) (ColumnMap, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeColumnName(h)
	}

	m := make(ColumnMap)
	for logical, aliases := range columnAliases {
		for _, alias := range aliases {
			target := normalizeColumnName(alias)
			for i, h := range normalized {
				if h == target {
					if _, taken := m[logical]; !taken {
						m[logical] = i
					}
					break
				}
			}
			if m.Has(logical) {
				break
			}
		}
	}

	var missing []string
	for _, logical := range required {
		if !m.Has(logical) {
			missing = append(missing, logical)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.ConfigurationError{
			Reason: "required columns not found under any recognized name: " + strings.Join(missing, ", "),
		}
	}

	return m, nil
}
