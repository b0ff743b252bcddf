// internal/loader/loader.go
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andresuchdata/shipflow/internal/domain"
	"github.com/rs/zerolog/log"
)

// References holds the reference-table joins applied onto inventory rows:
// store -> warehouse, SKU -> category/brand/merchandise group, and
// merchandise group -> minimum stock threshold.
type References struct {
	StoreWarehouse map[string]string
	SKUMaster      map[string]SKUInfo
	KPIMinimums    map[string]float64
}

// SKUInfo is the per-SKU enrichment from the SKU master table.
type SKUInfo struct {
	CategoryID         *int64
	BrandID            *string
	MerchandiseGroupID *string
}

// DefaultWarehouseID is used when neither the snapshot nor the store master
// carries a warehouse assignment.
const DefaultWarehouseID = "1"

// canonicalKey normalizes a join key to canonical string form so numeric
// codes match across source files regardless of int/float typing
// ("7", "7.0" and " 7 " are the same store).
func canonicalKey(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// rowReader tracks coercion diagnostics while parsing one file.
type rowReader struct {
	record  []string
	coerced int
}

func (r *rowReader) get(cols ColumnMap, logical string) string {
	idx, ok := cols[logical]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

// parseFloat coerces non-numeric cells to 0 and counts them; partial
// correctness on most rows beats aborting the whole snapshot over one bad
// cell.
func (r *rowReader) parseFloat(cols ColumnMap, logical string) float64 {
	v := r.get(cols, logical)
	if v == "" {
		return 0
	}
	v = strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.coerced++
		return 0
	}
	if f < 0 {
		r.coerced++
		return 0
	}
	return f
}

// LoadInventory reads the normalized stock/sales snapshot. Store, SKU, stock
// and sales columns are required; enrichment columns are picked up when
// present and otherwise left for ApplyReferences or defaults.
func LoadInventory(r io.Reader) ([]domain.InventoryRow, []domain.Warning, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read inventory header: %w", err)
	}

	cols, err := ResolveColumns(header, ColStore, ColSKU, ColStock, ColSales)
	if err != nil {
		return nil, nil, err
	}

	var warnings []domain.Warning
	for _, optional := range []string{ColInTransit, ColWarehouse, ColMinimum} {
		if !cols.Has(optional) {
			warnings = append(warnings, domain.Warnf(domain.WarnMissingColumn,
				"inventory column %s not present, defaulting to 0", optional))
		}
	}

	rows := make([]domain.InventoryRow, 0)
	rr := &rowReader{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read inventory record: %w", err)
		}
		rr.record = record

		row := domain.InventoryRow{
			StoreID:          canonicalKey(rr.get(cols, ColStore)),
			SKUID:            canonicalKey(rr.get(cols, ColSKU)),
			OnHandStock:      rr.parseFloat(cols, ColStock),
			InTransit:        rr.parseFloat(cols, ColInTransit),
			WeeklySalesRate:  rr.parseFloat(cols, ColSales),
			MinimumThreshold: rr.parseFloat(cols, ColMinimum),
		}
		if row.StoreID == "" || row.SKUID == "" {
			rr.coerced++
			continue
		}
		if wh := canonicalKey(rr.get(cols, ColWarehouse)); wh != "" {
			row.WarehouseID = wh
		}
		if cols.Has(ColMaximum) {
			max := rr.parseFloat(cols, ColMaximum)
			if max > 0 {
				row.MaximumThreshold = &max
			}
		}
		if v := rr.get(cols, ColCategory); v != "" {
			if id, err := strconv.ParseInt(canonicalKey(v), 10, 64); err == nil {
				row.CategoryID = &id
			} else {
				rr.coerced++
			}
		}
		if v := strings.TrimSpace(rr.get(cols, ColBrand)); v != "" {
			row.BrandID = &v
		}
		if v := canonicalKey(rr.get(cols, ColGroup)); v != "" {
			row.MerchandiseGroupID = &v
		}

		rows = append(rows, row)
	}

	if rr.coerced > 0 {
		warnings = append(warnings, domain.Warnf(domain.WarnCoercedValue,
			"%d inventory values could not be parsed and were coerced to zero or skipped", rr.coerced))
	}

	log.Debug().Int("rows", len(rows)).Int("coerced", rr.coerced).Msg("inventory snapshot loaded")
	return rows, warnings, nil
}

// LoadWarehouseStock reads the warehouse stock table into an aggregated
// (warehouse, SKU) -> quantity map. A stock table without identifiable SKU
// and quantity columns is a configuration error, not a zero-fill.
func LoadWarehouseStock(r io.Reader) (domain.WarehouseStock, []domain.Warning, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read warehouse stock header: %w", err)
	}

	cols, err := ResolveColumns(header, ColSKU, ColQuantity)
	if err != nil {
		return nil, nil, err
	}

	var warnings []domain.Warning
	if !cols.Has(ColWarehouse) {
		warnings = append(warnings, domain.Warnf(domain.WarnMissingColumn,
			"warehouse stock has no warehouse column, assuming warehouse %s", DefaultWarehouseID))
	}

	stock := make(domain.WarehouseStock)
	rr := &rowReader{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read warehouse stock record: %w", err)
		}
		rr.record = record

		sku := canonicalKey(rr.get(cols, ColSKU))
		if sku == "" {
			rr.coerced++
			continue
		}
		warehouse := canonicalKey(rr.get(cols, ColWarehouse))
		if warehouse == "" {
			warehouse = DefaultWarehouseID
		}
		stock.Add(warehouse, sku, rr.parseFloat(cols, ColQuantity))
	}

	if rr.coerced > 0 {
		warnings = append(warnings, domain.Warnf(domain.WarnCoercedValue,
			"%d warehouse stock values could not be parsed and were coerced to zero or skipped", rr.coerced))
	}

	log.Debug().Int("pools", len(stock)).Msg("warehouse stock snapshot loaded")
	return stock, warnings, nil
}

// LoadStoreMaster reads the store -> warehouse assignment table.
func LoadStoreMaster(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read store master header: %w", err)
	}

	cols, err := ResolveColumns(header, ColStore)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	rr := &rowReader{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read store master record: %w", err)
		}
		rr.record = record

		store := canonicalKey(rr.get(cols, ColStore))
		if store == "" {
			continue
		}
		if wh := canonicalKey(rr.get(cols, ColWarehouse)); wh != "" {
			out[store] = wh
		}
	}
	return out, nil
}

// LoadSKUMaster reads the SKU -> category/brand/merchandise group table.
func LoadSKUMaster(r io.Reader) (map[string]SKUInfo, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read sku master header: %w", err)
	}

	cols, err := ResolveColumns(header, ColSKU)
	if err != nil {
		return nil, err
	}

	out := make(map[string]SKUInfo)
	rr := &rowReader{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sku master record: %w", err)
		}
		rr.record = record

		sku := canonicalKey(rr.get(cols, ColSKU))
		if sku == "" {
			continue
		}

		info := SKUInfo{}
		if v := rr.get(cols, ColCategory); v != "" {
			if id, err := strconv.ParseInt(canonicalKey(v), 10, 64); err == nil {
				info.CategoryID = &id
			}
		}
		if v := rr.get(cols, ColBrand); v != "" {
			info.BrandID = &v
		}
		if v := canonicalKey(rr.get(cols, ColGroup)); v != "" {
			info.MerchandiseGroupID = &v
		}
		out[sku] = info
	}
	return out, nil
}

// LoadKPITable reads the merchandise group -> minimum threshold mapping.
func LoadKPITable(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read kpi header: %w", err)
	}

	cols, err := ResolveColumns(header, ColGroup, ColMinimum)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	rr := &rowReader{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read kpi record: %w", err)
		}
		rr.record = record

		group := canonicalKey(rr.get(cols, ColGroup))
		if group == "" {
			continue
		}
		out[group] = rr.parseFloat(cols, ColMinimum)
	}
	return out, nil
}

// ApplyReferences joins reference tables onto inventory rows in place:
// warehouse assignment from the store master, category/brand/group from the
// SKU master, and minimum thresholds from the KPI table. Rows never lose
// values they already carry from the snapshot itself.
func ApplyReferences(rows []domain.InventoryRow, refs References) {
	for i := range rows {
		row := &rows[i]

		if row.WarehouseID == "" {
			if wh, ok := refs.StoreWarehouse[row.StoreID]; ok {
				row.WarehouseID = wh
			} else {
				row.WarehouseID = DefaultWarehouseID
			}
		}

		if info, ok := refs.SKUMaster[row.SKUID]; ok {
			if row.CategoryID == nil {
				row.CategoryID = info.CategoryID
			}
			if row.BrandID == nil {
				row.BrandID = info.BrandID
			}
			if row.MerchandiseGroupID == nil {
				row.MerchandiseGroupID = info.MerchandiseGroupID
			}
		}

		if row.MinimumThreshold == 0 && row.MerchandiseGroupID != nil {
			if v, ok := refs.KPIMinimums[*row.MerchandiseGroupID]; ok {
				row.MinimumThreshold = v
			}
		}
	}
}
