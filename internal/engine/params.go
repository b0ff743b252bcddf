// internal/engine/params.go
package engine

import "github.com/andresuchdata/shipflow/internal/domain"

// ParamDefaults are the engine-wide coefficient defaults used when a compute
// call supplies no overrides. A full segment×segment coefficient matrix is an
// extension point; scalar values are the supported mechanism.
type ParamDefaults struct {
	InflationRatio float64
	ExpansionRatio float64
	MinStockRatio  float64
}

// DefaultParams mirrors the planner's stock defaults.
func DefaultParams() ParamDefaults {
	return ParamDefaults{
		InflationRatio: 0.5,
		ExpansionRatio: 1.0,
		MinStockRatio:  1.0,
	}
}

// resolveParams merges optional per-call scalar overrides over the defaults.
// Overrides apply uniformly to every row.
func resolveParams(d ParamDefaults, inflation, expansion, minRatio *float64) domain.ParameterSet {
	p := domain.ParameterSet{
		InflationRatio: d.InflationRatio,
		ExpansionRatio: d.ExpansionRatio,
		MinStockRatio:  d.MinStockRatio,
	}
	if inflation != nil {
		p.InflationRatio = *inflation
	}
	if expansion != nil {
		p.ExpansionRatio = *expansion
	}
	if minRatio != nil {
		p.MinStockRatio = *minRatio
	}
	return p
}

// applyKPIMinimums joins minimum-stock thresholds onto rows by merchandise
// group. When a KPI table is supplied it is the source of truth: rows whose
// group has no entry get 0. Rows are modified in place; the unmatched count
// is reported so the caller can surface a data-quality warning.
func applyKPIMinimums(rows []domain.InventoryRow, kpi map[string]float64) (unmatched int) {
	if kpi == nil {
		return 0
	}
	for i := range rows {
		group := rows[i].MerchandiseGroupID
		if group == nil {
			rows[i].MinimumThreshold = 0
			unmatched++
			continue
		}
		v, ok := kpi[*group]
		if !ok {
			rows[i].MinimumThreshold = 0
			unmatched++
			continue
		}
		rows[i].MinimumThreshold = v
	}
	return unmatched
}
