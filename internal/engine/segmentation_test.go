package engine

import (
	"math"
	"testing"

	"github.com/andresuchdata/shipflow/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSegmenter_Classify(t *testing.T) {
	s := NewSegmenter(nil)

	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "0-4"},
		{3.999, "0-4"},
		{4, "4-8"}, // half-open: lower bound belongs to the next band
		{7.9, "4-8"},
		{8, "8-12"},
		{12, "12-15"},
		{15, "15-20"},
		{19.99, "15-20"},
		{20, "20+"},
		{350, "20+"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Classify(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestSegmenter_SegmentAggregatesAcrossStores(t *testing.T) {
	s := NewSegmenter(nil)

	rows := []domain.InventoryRow{
		{StoreID: "1", SKUID: "A", OnHandStock: 10, WeeklySalesRate: 1},
		{StoreID: "2", SKUID: "A", OnHandStock: 6, WeeklySalesRate: 1},  // SKU A: 16/2 = 8
		{StoreID: "1", SKUID: "B", OnHandStock: 2, WeeklySalesRate: 10}, // store 1: 12/11
	}

	skuBands, storeBands := s.Segment(rows)

	assert.Equal(t, "8-12", skuBands["A"])
	assert.Equal(t, "0-4", skuBands["B"])
	assert.Equal(t, "0-4", storeBands["1"])
	assert.Equal(t, "4-8", storeBands["2"])
}

func TestSegmenter_ZeroSalesMapsToLowestBand(t *testing.T) {
	// High stock with no sales at all: velocity cannot be assessed, so the
	// SKU lands in the lowest band instead of erroring or inflating.
	s := NewSegmenter(nil)

	rows := []domain.InventoryRow{
		{StoreID: "1", SKUID: "DEAD", OnHandStock: 5000, WeeklySalesRate: 0},
		{StoreID: "2", SKUID: "DEAD", OnHandStock: 3000, WeeklySalesRate: 0},
	}

	skuBands, _ := s.Segment(rows)
	assert.Equal(t, "0-4", skuBands["DEAD"])
}

func TestSegmenter_UnknownKeyDefaultsToLowestBand(t *testing.T) {
	s := NewSegmenter(nil)
	bands := map[string]string{"A": "8-12"}

	assert.Equal(t, "8-12", s.bandOrDefault(bands, "A"))
	assert.Equal(t, "0-4", s.bandOrDefault(bands, "never-seen"))
}

func TestSegmenter_CustomBands(t *testing.T) {
	s := NewSegmenter([]SegmentBand{
		{Lower: 0, Upper: 10, Label: "low"},
		{Lower: 10, Upper: math.Inf(1), Label: "high"},
	})

	assert.Equal(t, "low", s.Classify(9.99))
	assert.Equal(t, "high", s.Classify(10))
}
