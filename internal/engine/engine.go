// internal/engine/engine.go
package engine

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// DefaultForwardCover is the target number of weeks of stock to provision
// for when the caller does not specify one.
const DefaultForwardCover = 7.0

// Engine computes replenishment need and distributes warehouse stock. It is
// a synchronous, in-memory batch computation: no I/O, no shared state. The
// warehouse stock snapshot passed to Compute is consumed destructively, so
// each invocation needs its own copy.
type Engine struct {
	segmenter    *Segmenter
	defaults     ParamDefaults
	topN         int
	forwardCover float64
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithSegmentBands substitutes alternate cover-band definitions.
func WithSegmentBands(bands []SegmentBand) Option {
	return func(e *Engine) { e.segmenter = NewSegmenter(bands) }
}

// WithParamDefaults overrides the engine-wide coefficient defaults.
func WithParamDefaults(d ParamDefaults) Option {
	return func(e *Engine) { e.defaults = d }
}

// WithTopN sets the default breakdown width.
func WithTopN(n int) Option {
	return func(e *Engine) { e.topN = n }
}

// WithForwardCover changes the engine-wide forward cover used when a compute
// call does not carry its own.
func WithForwardCover(weeks float64) Option {
	return func(e *Engine) {
		if weeks > 0 {
			e.forwardCover = weeks
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		segmenter:    NewSegmenter(nil),
		defaults:     DefaultParams(),
		topN:         DefaultTopN,
		forwardCover: DefaultForwardCover,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ForwardCover reports the engine-wide default forward cover.
func (e *Engine) ForwardCover() float64 {
	return e.forwardCover
}

// ComputeOptions carries per-call filters and parameter overrides.
type ComputeOptions struct {
	CategoryID *int64
	SKUID      *string
	BrandID    *string

	// ForwardCover defaults to DefaultForwardCover when <= 0.
	ForwardCover float64

	InflationRatio *float64
	ExpansionRatio *float64
	MinStockRatio  *float64

	// KPIMinimums maps merchandise group -> minimum stock threshold. When
	// non-nil it replaces the thresholds carried on the rows.
	KPIMinimums map[string]float64

	// TopN bounds the summary breakdowns; engine default when <= 0.
	TopN int
}

// Compute runs the full pass: segmentation, parameter resolution, need
// calculation, warehouse allocation and summarization.
//
// It returns *domain.EmptyResultError when the filters match no rows and
// *domain.ConfigurationError when the stock snapshot is absent or empty.
// The stock map is mutated; pass a fresh copy per call.
func (e *Engine) Compute(rows []domain.InventoryRow, stock domain.WarehouseStock, opts ComputeOptions) (*domain.ComputeResult, error) {
	if len(stock) == 0 {
		return nil, &domain.ConfigurationError{Reason: "warehouse stock snapshot is missing"}
	}
	if len(rows) == 0 {
		return nil, &domain.EmptyResultError{}
	}

	// Segmentation always runs over the full snapshot: a filtered subset
	// would skew the cover aggregates the bands are derived from.
	skuBands, storeBands := e.segmenter.Segment(rows)

	filtered := filterRows(rows, opts)
	if len(filtered) == 0 {
		return nil, &domain.EmptyResultError{Filter: describeFilter(opts)}
	}

	var warnings []domain.Warning

	deduped, dupes := aggregateDuplicates(filtered)
	if dupes > 0 {
		warnings = append(warnings, domain.Warnf(domain.WarnDuplicateRows,
			"%d duplicate (store, SKU) rows aggregated by summing", dupes))
	}

	if unmatched := applyKPIMinimums(deduped, opts.KPIMinimums); unmatched > 0 {
		warnings = append(warnings, domain.Warnf(domain.WarnUnmatchedGroup,
			"%d rows had no KPI entry for their merchandise group, minimum threshold set to 0", unmatched))
	}

	forwardCover := opts.ForwardCover
	if forwardCover <= 0 {
		forwardCover = e.forwardCover
	}
	params := resolveParams(e.defaults, opts.InflationRatio, opts.ExpansionRatio, opts.MinStockRatio)
	calc := NewNeedCalculator(forwardCover, params)

	needRows := make([]needRow, 0, len(deduped))
	for _, row := range deduped {
		need := calc.Calculate(row)
		if need.FinalNeed <= 0 {
			continue
		}
		needRows = append(needRows, needRow{
			row:          row,
			need:         need,
			skuSegment:   e.segmenter.bandOrDefault(skuBands, row.SKUID),
			storeSegment: e.segmenter.bandOrDefault(storeBands, row.StoreID),
		})
	}

	allocations := allocate(needRows, stock)

	topN := opts.TopN
	if topN <= 0 {
		topN = e.topN
	}

	return &domain.ComputeResult{
		Allocations: allocations,
		Summary:     Summarize(allocations, topN),
		Warnings:    warnings,
	}, nil
}

// filterRows applies the optional SKU, category and brand filters; they
// compose with AND.
func filterRows(rows []domain.InventoryRow, opts ComputeOptions) []domain.InventoryRow {
	skuFilter := ""
	if opts.SKUID != nil {
		skuFilter = strings.TrimSpace(*opts.SKUID)
	}
	brandFilter := ""
	if opts.BrandID != nil {
		brandFilter = strings.TrimSpace(*opts.BrandID)
	}

	out := make([]domain.InventoryRow, 0, len(rows))
	for _, r := range rows {
		if skuFilter != "" && r.SKUID != skuFilter {
			continue
		}
		if opts.CategoryID != nil {
			if r.CategoryID == nil || *r.CategoryID != *opts.CategoryID {
				continue
			}
		}
		if brandFilter != "" {
			if r.BrandID == nil || *r.BrandID != brandFilter {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func describeFilter(opts ComputeOptions) string {
	var parts []string
	if opts.SKUID != nil {
		parts = append(parts, "sku="+strings.TrimSpace(*opts.SKUID))
	}
	if opts.CategoryID != nil {
		parts = append(parts, fmt.Sprintf("category=%d", *opts.CategoryID))
	}
	if opts.BrandID != nil {
		parts = append(parts, "brand="+strings.TrimSpace(*opts.BrandID))
	}
	return strings.Join(parts, ",")
}

// aggregateDuplicates merges rows sharing a (store, SKU) key by summing
// stock, in-transit and sales. Duplicates are never silently dropped; the
// count is returned for a data-quality warning. First-seen row order is
// preserved so output stays reproducible.
func aggregateDuplicates(rows []domain.InventoryRow) ([]domain.InventoryRow, int) {
	type rowKey struct{ store, sku string }

	index := make(map[rowKey]int, len(rows))
	out := make([]domain.InventoryRow, 0, len(rows))
	dupes := 0

	for _, r := range rows {
		key := rowKey{store: r.StoreID, sku: r.SKUID}
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, r)
			continue
		}
		dupes++
		out[i].OnHandStock += r.OnHandStock
		out[i].InTransit += r.InTransit
		out[i].WeeklySalesRate += r.WeeklySalesRate
		if r.MinimumThreshold > out[i].MinimumThreshold {
			out[i].MinimumThreshold = r.MinimumThreshold
		}
		if out[i].WarehouseID == "" {
			out[i].WarehouseID = r.WarehouseID
		}
		if out[i].CategoryID == nil {
			out[i].CategoryID = r.CategoryID
		}
		if out[i].BrandID == nil {
			out[i].BrandID = r.BrandID
		}
		if out[i].MerchandiseGroupID == nil {
			out[i].MerchandiseGroupID = r.MerchandiseGroupID
		}
	}
	return out, dupes
}
