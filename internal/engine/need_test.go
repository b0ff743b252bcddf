package engine

import (
	"testing"

	"github.com/andresuchdata/shipflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSet() domain.ParameterSet {
	return domain.ParameterSet{InflationRatio: 0.5, ExpansionRatio: 1.0, MinStockRatio: 1.0}
}

func TestNeedCalculator_ForwardCoverNeed(t *testing.T) {
	// stock=2, sales=1/wk, cover target 7 -> target 7, need 5, labeled RPT
	calc := NewNeedCalculator(7, defaultSet())
	row := domain.InventoryRow{
		StoreID:         "10",
		SKUID:           "A",
		OnHandStock:     2,
		WeeklySalesRate: 1,
	}

	res := calc.Calculate(row)
	assert.Equal(t, 7.0, res.TargetStock)
	assert.Equal(t, 5.0, res.RPTNeed)
	assert.Equal(t, 0.0, res.FloorNeed)
	assert.Equal(t, 5.0, res.FinalNeed)
	assert.Equal(t, domain.NeedRPT, res.Kind)
}

func TestNeedCalculator_MinimumFloorWins(t *testing.T) {
	// Same row with a minimum threshold of 10: floor need 8 beats RPT need 5.
	calc := NewNeedCalculator(7, defaultSet())
	row := domain.InventoryRow{
		StoreID:          "10",
		SKUID:            "A",
		OnHandStock:      2,
		WeeklySalesRate:  1,
		MinimumThreshold: 10,
	}

	res := calc.Calculate(row)
	assert.Equal(t, 5.0, res.RPTNeed)
	assert.Equal(t, 8.0, res.FloorNeed)
	assert.Equal(t, 8.0, res.FinalNeed)
	assert.Equal(t, domain.NeedMIN, res.Kind)
}

func TestNeedCalculator_TieBreakPrefersRPT(t *testing.T) {
	// rpt_need == floor_need == 5, both nonzero: the RPT check runs first.
	calc := NewNeedCalculator(7, defaultSet())
	row := domain.InventoryRow{
		StoreID:          "10",
		SKUID:            "A",
		OnHandStock:      2,
		WeeklySalesRate:  1,
		MinimumThreshold: 7, // floor = 7 - 2 = 5 = rpt
	}

	res := calc.Calculate(row)
	require.Equal(t, res.RPTNeed, res.FloorNeed)
	assert.Equal(t, 5.0, res.FinalNeed)
	assert.Equal(t, domain.NeedRPT, res.Kind)
}

func TestNeedCalculator_NoNeed(t *testing.T) {
	calc := NewNeedCalculator(7, defaultSet())
	row := domain.InventoryRow{
		StoreID:         "10",
		SKUID:           "A",
		OnHandStock:     100,
		WeeklySalesRate: 1,
	}

	res := calc.Calculate(row)
	assert.Equal(t, 0.0, res.FinalNeed)
	assert.Equal(t, domain.NeedNone, res.Kind)
}

func TestNeedCalculator_InTransitCountsAsAvailable(t *testing.T) {
	calc := NewNeedCalculator(7, defaultSet())
	row := domain.InventoryRow{
		StoreID:         "10",
		SKUID:           "A",
		OnHandStock:     2,
		InTransit:       3,
		WeeklySalesRate: 1,
	}

	res := calc.Calculate(row)
	assert.Equal(t, 5.0, res.Available)
	assert.Equal(t, 2.0, res.FinalNeed)
}

func TestNeedCalculator_ExpansionRatioScalesTarget(t *testing.T) {
	params := defaultSet()
	params.ExpansionRatio = 2.0
	calc := NewNeedCalculator(7, params)
	row := domain.InventoryRow{
		StoreID:         "10",
		SKUID:           "A",
		OnHandStock:     2,
		WeeklySalesRate: 1,
	}

	res := calc.Calculate(row)
	assert.Equal(t, 14.0, res.TargetStock)
	assert.Equal(t, 12.0, res.FinalNeed)
}

func TestNeedCalculator_NonNegativity(t *testing.T) {
	rows := []domain.InventoryRow{
		{OnHandStock: 0, WeeklySalesRate: 0},
		{OnHandStock: 50, WeeklySalesRate: 0, MinimumThreshold: 3},
		{OnHandStock: 0, WeeklySalesRate: 10, MinimumThreshold: 100},
		{OnHandStock: 1000, InTransit: 1000, WeeklySalesRate: 1},
	}
	calc := NewNeedCalculator(7, defaultSet())
	for _, row := range rows {
		res := calc.Calculate(row)
		assert.GreaterOrEqual(t, res.RPTNeed, 0.0)
		assert.GreaterOrEqual(t, res.FloorNeed, 0.0)
		assert.GreaterOrEqual(t, res.FinalNeed, 0.0)
	}
}

func TestNeedCalculator_MonotonicInForwardCover(t *testing.T) {
	row := domain.InventoryRow{
		StoreID:         "10",
		SKUID:           "A",
		OnHandStock:     5,
		WeeklySalesRate: 2,
	}
	prev := -1.0
	for _, cover := range []float64{1, 2, 4, 7, 10, 26, 52} {
		res := NewNeedCalculator(cover, defaultSet()).Calculate(row)
		assert.GreaterOrEqual(t, res.RPTNeed, prev, "rpt need must not decrease as forward cover grows")
		prev = res.RPTNeed
	}
}

func TestNeedCalculator_Idempotent(t *testing.T) {
	calc := NewNeedCalculator(7, defaultSet())
	row := domain.InventoryRow{
		StoreID:          "10",
		SKUID:            "A",
		OnHandStock:      3,
		InTransit:        1,
		WeeklySalesRate:  2,
		MinimumThreshold: 6,
	}

	first := calc.Calculate(row)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, calc.Calculate(row))
	}
}
