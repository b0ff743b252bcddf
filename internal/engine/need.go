// internal/engine/need.go
package engine

import (
	"math"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// NeedResult carries both candidate need quantities and their resolution for
// one row. It is a pure function of the row and the calculator parameters.
type NeedResult struct {
	Available   float64
	Cover       float64
	TargetStock float64
	RPTNeed     float64
	FloorNeed   float64
	FinalNeed   float64
	Kind        domain.NeedKind
}

// NeedCalculator computes replenishment need per row for a fixed forward
// cover and parameter set.
type NeedCalculator struct {
	forwardCover float64
	params       domain.ParameterSet
}

func NewNeedCalculator(forwardCover float64, params domain.ParameterSet) *NeedCalculator {
	return &NeedCalculator{forwardCover: forwardCover, params: params}
}

// Calculate resolves the forward-cover ("RPT") need and the minimum-floor
// need to a single final quantity. The RPT check precedes the MIN check, so
// an exact tie between nonzero candidates is labeled RPT.
func (c *NeedCalculator) Calculate(row domain.InventoryRow) NeedResult {
	available := row.OnHandStock + row.InTransit
	targetStock := row.WeeklySalesRate * c.forwardCover * c.params.ExpansionRatio

	rptNeed := math.Max(0, targetStock-available)
	floorNeed := math.Max(0, c.params.MinStockRatio*row.MinimumThreshold-available)
	finalNeed := math.Max(rptNeed, floorNeed)

	var kind domain.NeedKind
	switch {
	case finalNeed == 0:
		kind = domain.NeedNone
	case finalNeed == rptNeed:
		kind = domain.NeedRPT
	default:
		kind = domain.NeedMIN
	}

	cover := 0.0
	if row.WeeklySalesRate > 0 {
		cover = row.OnHandStock / row.WeeklySalesRate
	}

	return NeedResult{
		Available:   available,
		Cover:       cover,
		TargetStock: targetStock,
		RPTNeed:     rptNeed,
		FloorNeed:   floorNeed,
		FinalNeed:   finalNeed,
		Kind:        kind,
	}
}
