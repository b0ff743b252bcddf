// internal/service/allocation_service.go
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shipflow/internal/cache"
	"github.com/andresuchdata/shipflow/internal/domain"
	"github.com/andresuchdata/shipflow/internal/engine"
	"github.com/andresuchdata/shipflow/internal/export"
	"github.com/andresuchdata/shipflow/internal/loader"
	"github.com/andresuchdata/shipflow/internal/repository"
	"github.com/andresuchdata/shipflow/internal/storage"
)

// ComputeRequest is one allocation invocation as callers express it.
type ComputeRequest struct {
	CategoryID *int64  `json:"category_id,omitempty"`
	SKUID      *string `json:"sku_id,omitempty"`
	BrandID    *string `json:"brand_id,omitempty"`

	ForwardCover float64 `json:"forward_cover,omitempty"`

	InflationRatio *float64 `json:"inflation_ratio,omitempty"`
	ExpansionRatio *float64 `json:"expansion_ratio,omitempty"`
	MinStockRatio  *float64 `json:"min_stock_ratio,omitempty"`

	KPIMinimums map[string]float64 `json:"kpi_minimums,omitempty"`

	TopN    int  `json:"top_n,omitempty"`
	Persist bool `json:"persist,omitempty"`
	Export  bool `json:"export,omitempty"`
}

// ComputeResponse carries the engine result plus persistence side effects.
type ComputeResponse struct {
	RunID       int64                     `json:"run_id,omitempty"`
	ExportURL   string                    `json:"export_url,omitempty"`
	Allocations []domain.AllocationResult `json:"allocations"`
	Summary     domain.Summary            `json:"summary"`
	Warnings    []domain.Warning          `json:"warnings,omitempty"`
}

// AllocationService wires the allocation engine to snapshot storage, run
// persistence, the summary cache and the export bucket.
type AllocationService struct {
	engine    *engine.Engine
	snapshots repository.SnapshotRepository
	runs      repository.RunRepository
	cache     cache.SummaryCache
	objects   storage.ObjectStorage
}

func NewAllocationService(
	eng *engine.Engine,
	snapshots repository.SnapshotRepository,
	runs repository.RunRepository,
	summaryCache cache.SummaryCache,
	objects storage.ObjectStorage,
) *AllocationService {
	if summaryCache == nil {
		summaryCache = cache.NewNoopSummaryCache()
	}
	return &AllocationService{
		engine:    eng,
		snapshots: snapshots,
		runs:      runs,
		cache:     summaryCache,
		objects:   objects,
	}
}

// Compute loads the current snapshot, runs the allocation engine on a fresh
// copy of the warehouse pools and optionally persists and exports the result.
func (s *AllocationService) Compute(ctx context.Context, req ComputeRequest) (*ComputeResponse, error) {
	rows, err := s.snapshots.LoadInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory snapshot: %w", err)
	}

	stock, err := s.snapshots.LoadWarehouseStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load warehouse stock: %w", err)
	}

	return s.ComputeFrom(ctx, rows, stock, req)
}

// ComputeFrom runs the engine on caller-supplied snapshots. The stock map is
// cloned before allocation so the caller's copy survives intact.
func (s *AllocationService) ComputeFrom(ctx context.Context, rows []domain.InventoryRow, stock domain.WarehouseStock, req ComputeRequest) (*ComputeResponse, error) {
	start := time.Now()

	result, err := s.engine.Compute(rows, stock.Clone(), engine.ComputeOptions{
		CategoryID:     req.CategoryID,
		SKUID:          req.SKUID,
		BrandID:        req.BrandID,
		ForwardCover:   req.ForwardCover,
		InflationRatio: req.InflationRatio,
		ExpansionRatio: req.ExpansionRatio,
		MinStockRatio:  req.MinStockRatio,
		KPIMinimums:    req.KPIMinimums,
		TopN:           req.TopN,
	})
	if err != nil {
		return nil, err
	}

	resp := &ComputeResponse{
		Allocations: result.Allocations,
		Summary:     result.Summary,
		Warnings:    result.Warnings,
	}

	if req.Persist && s.runs != nil {
		runID, err := s.persistRun(ctx, req, result)
		if err != nil {
			return nil, err
		}
		resp.RunID = runID
	}

	if req.Export && s.objects != nil {
		url, err := s.exportRun(ctx, resp.RunID, result.Allocations)
		if err != nil {
			return nil, err
		}
		resp.ExportURL = url
	}

	cover := req.ForwardCover
	if cover == 0 {
		cover = s.engine.ForwardCover()
	}
	key := cache.FilterKey(req.CategoryID, req.SKUID, req.BrandID, cover)
	if resp.RunID != 0 {
		key = cache.RunKey(resp.RunID)
	}
	if err := s.cache.SetSummary(ctx, key, &result.Summary); err != nil {
		log.Warn().Err(err).Msg("failed to cache allocation summary")
	}

	log.Info().
		Int("lines", len(result.Allocations)).
		Float64("total_shipped", result.Summary.TotalShipped).
		Float64("total_unmet", result.Summary.TotalUnmet).
		Dur("elapsed", time.Since(start)).
		Msg("allocation computed")

	return resp, nil
}

func (s *AllocationService) persistRun(ctx context.Context, req ComputeRequest, result *domain.ComputeResult) (int64, error) {
	cover := req.ForwardCover
	if cover == 0 {
		cover = s.engine.ForwardCover()
	}

	run := &domain.AllocationRun{
		CategoryID:   req.CategoryID,
		SKUID:        req.SKUID,
		BrandID:      req.BrandID,
		ForwardCover: cover,
		TotalShipped: result.Summary.TotalShipped,
		TotalNeed:    result.Summary.TotalNeed,
		TotalUnmet:   result.Summary.TotalUnmet,
	}

	runID, err := s.runs.SaveRun(ctx, run, result.Allocations)
	if err != nil {
		return 0, fmt.Errorf("failed to persist allocation run: %w", err)
	}
	return runID, nil
}

func (s *AllocationService) exportRun(ctx context.Context, runID int64, allocations []domain.AllocationResult) (string, error) {
	var buf bytes.Buffer
	if err := export.WriteAllocations(&buf, allocations); err != nil {
		return "", err
	}

	key := fmt.Sprintf("allocations/%s.csv", time.Now().UTC().Format("20060102T150405"))
	if runID != 0 {
		key = fmt.Sprintf("allocations/run-%d.csv", runID)
	}

	url, err := s.objects.Upload(ctx, key, buf.Bytes(), "text/csv")
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}
	return url, nil
}

// GetRun returns a persisted run header.
func (s *AllocationService) GetRun(ctx context.Context, id int64) (*domain.AllocationRun, error) {
	return s.runs.GetRun(ctx, id)
}

// ListRuns pages through persisted runs, newest first.
func (s *AllocationService) ListRuns(ctx context.Context, filter *domain.RunFilter) ([]*domain.AllocationRun, error) {
	return s.runs.ListRuns(ctx, filter)
}

// GetRunLines pages through the shipment lines of one run.
func (s *AllocationService) GetRunLines(ctx context.Context, runID int64, filter *domain.RunFilter) ([]domain.AllocationResult, error) {
	return s.runs.GetRunLines(ctx, runID, filter)
}

// GetRunSummary serves a run summary from cache when possible, recomputing
// it from the persisted lines on a miss.
func (s *AllocationService) GetRunSummary(ctx context.Context, runID int64) (*domain.Summary, error) {
	key := cache.RunKey(runID)
	if summary, ok, err := s.cache.GetSummary(ctx, key); err != nil {
		log.Warn().Err(err).Int64("run_id", runID).Msg("summary cache lookup failed")
	} else if ok {
		return summary, nil
	}

	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("allocation run %d not found", runID)
	}

	lines, err := s.runs.GetRunLines(ctx, runID, &domain.RunFilter{Page: 1, PageSize: run.LineCount})
	if err != nil {
		return nil, err
	}

	summary := engine.Summarize(lines, engine.DefaultTopN)
	if err := s.cache.SetSummary(ctx, key, &summary); err != nil {
		log.Warn().Err(err).Int64("run_id", runID).Msg("failed to cache run summary")
	}
	return &summary, nil
}

// ExportRunCSV renders the persisted lines of a run as CSV.
func (s *AllocationService) ExportRunCSV(ctx context.Context, runID int64, w io.Writer) error {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("allocation run %d not found", runID)
	}

	lines, err := s.runs.GetRunLines(ctx, runID, &domain.RunFilter{Page: 1, PageSize: run.LineCount})
	if err != nil {
		return err
	}

	return export.WriteAllocations(w, lines)
}

// IngestSnapshot replaces the stored inventory and warehouse stock snapshots
// from normalized CSV streams, applying reference joins when provided.
func (s *AllocationService) IngestSnapshot(ctx context.Context, inventory, warehouseStock io.Reader, refs *loader.References) ([]domain.Warning, error) {
	rows, warnings, err := loader.LoadInventory(inventory)
	if err != nil {
		return nil, err
	}

	stock, stockWarnings, err := loader.LoadWarehouseStock(warehouseStock)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, stockWarnings...)

	if refs != nil {
		loader.ApplyReferences(rows, *refs)
	} else {
		loader.ApplyReferences(rows, loader.References{})
	}

	if err := s.snapshots.ReplaceInventory(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to store inventory snapshot: %w", err)
	}
	if err := s.snapshots.ReplaceWarehouseStock(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to store warehouse stock: %w", err)
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate summary cache after ingest")
	}

	log.Info().Int("rows", len(rows)).Int("pools", len(stock)).Msg("snapshot ingested")
	return warnings, nil
}

// QuickReport renders a short human-readable digest of one allocation pass:
// totals, fulfillment ratio and the top movers by SKU and store.
func QuickReport(summary domain.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "shipped %.0f of %.0f needed (%.1f%%), unmet %.0f\n",
		summary.TotalShipped, summary.TotalNeed, summary.FulfillmentRatio*100, summary.TotalUnmet)
	fmt.Fprintf(&b, "%d SKUs, %d stores, %d warehouses\n",
		summary.SKUCount, summary.StoreCount, summary.WarehouseCount)

	if len(summary.TopSKUs) > 0 {
		b.WriteString("top SKUs by shipped quantity:\n")
		for _, e := range summary.TopSKUs {
			fmt.Fprintf(&b, "  %-16s shipped %.0f / need %.0f [%s]\n", e.Key, e.Shipped, e.Need, e.Status)
		}
	}
	if len(summary.TopStores) > 0 {
		b.WriteString("top stores by shipped quantity:\n")
		for _, e := range summary.TopStores {
			fmt.Fprintf(&b, "  %-16s shipped %.0f / need %.0f [%s]\n", e.Key, e.Shipped, e.Need, e.Status)
		}
	}

	return b.String()
}
