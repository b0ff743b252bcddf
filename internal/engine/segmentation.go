// internal/engine/segmentation.go
package engine

import (
	"math"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// SegmentBand is one half-open cover-ratio interval [Lower, Upper).
type SegmentBand struct {
	Lower float64
	Upper float64
	Label string
}

// DefaultSegmentBands returns the standard cover buckets. The last band is
// unbounded above.
func DefaultSegmentBands() []SegmentBand {
	return []SegmentBand{
		{Lower: 0, Upper: 4, Label: "0-4"},
		{Lower: 4, Upper: 8, Label: "4-8"},
		{Lower: 8, Upper: 12, Label: "8-12"},
		{Lower: 12, Upper: 15, Label: "12-15"},
		{Lower: 15, Upper: 20, Label: "15-20"},
		{Lower: 20, Upper: math.Inf(1), Label: "20+"},
	}
}

// Segmenter assigns SKUs and stores to cover-ratio bands. Bands are fixed at
// construction so tests can substitute alternate definitions.
type Segmenter struct {
	bands []SegmentBand
}

func NewSegmenter(bands []SegmentBand) *Segmenter {
	if len(bands) == 0 {
		bands = DefaultSegmentBands()
	}
	return &Segmenter{bands: bands}
}

// lowestLabel is the conservative default for ratios that cannot be assessed.
func (s *Segmenter) lowestLabel() string {
	return s.bands[0].Label
}

// Classify maps a cover ratio to its band label.
func (s *Segmenter) Classify(ratio float64) string {
	for _, b := range s.bands {
		if ratio >= b.Lower && ratio < b.Upper {
			return b.Label
		}
	}
	return s.lowestLabel()
}

// Segment computes per-SKU and per-store band assignments over the whole
// snapshot. A key with zero total sales lands in the lowest band: velocity
// cannot be assessed with no sales, so treat it as low cover.
func (s *Segmenter) Segment(rows []domain.InventoryRow) (skuBands, storeBands map[string]string) {
	type agg struct{ stock, sales float64 }

	skuAgg := make(map[string]*agg)
	storeAgg := make(map[string]*agg)
	for _, r := range rows {
		sa := skuAgg[r.SKUID]
		if sa == nil {
			sa = &agg{}
			skuAgg[r.SKUID] = sa
		}
		sa.stock += r.OnHandStock
		sa.sales += r.WeeklySalesRate

		ma := storeAgg[r.StoreID]
		if ma == nil {
			ma = &agg{}
			storeAgg[r.StoreID] = ma
		}
		ma.stock += r.OnHandStock
		ma.sales += r.WeeklySalesRate
	}

	classify := func(a *agg) string {
		if a.sales <= 0 {
			return s.lowestLabel()
		}
		return s.Classify(a.stock / a.sales)
	}

	skuBands = make(map[string]string, len(skuAgg))
	for sku, a := range skuAgg {
		skuBands[sku] = classify(a)
	}
	storeBands = make(map[string]string, len(storeAgg))
	for store, a := range storeAgg {
		storeBands[store] = classify(a)
	}
	return skuBands, storeBands
}

// bandOrDefault resolves a key's band, falling back to the lowest band for
// keys that were absent from the aggregate.
func (s *Segmenter) bandOrDefault(bands map[string]string, key string) string {
	if label, ok := bands[key]; ok {
		return label
	}
	return s.lowestLabel()
}
