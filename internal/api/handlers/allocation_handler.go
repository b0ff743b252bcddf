// internal/api/handlers/allocation_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shipflow/internal/domain"
	"github.com/andresuchdata/shipflow/internal/loader"
	"github.com/andresuchdata/shipflow/internal/service"
)

type AllocationHandler struct {
	service *service.AllocationService
}

func NewAllocationHandler(service *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: service}
}

// ComputeAllocation runs the allocation engine against the stored snapshot.
// An empty filter result is a valid outcome, reported as 200 with zero
// allocations rather than an error status.
func (h *AllocationHandler) ComputeAllocation(c *gin.Context) {
	var req service.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.service.Compute(c.Request.Context(), req)
	if err != nil {
		h.renderComputeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AllocationHandler) renderComputeError(c *gin.Context, err error) {
	var emptyErr *domain.EmptyResultError
	if errors.As(err, &emptyErr) {
		c.JSON(http.StatusOK, gin.H{
			"allocations": []domain.AllocationResult{},
			"summary":     domain.Summary{},
			"message":     emptyErr.Error(),
		})
		return
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": cfgErr.Error()})
		return
	}

	log.Error().Err(err).Msg("allocation compute failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (h *AllocationHandler) ListRuns(c *gin.Context) {
	filter := parseRunFilter(c)

	runs, err := h.service.ListRuns(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to list allocation runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *AllocationHandler) GetRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("run_id", id).Msg("failed to get allocation run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *AllocationHandler) GetRunLines(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	filter := parseRunFilter(c)

	lines, err := h.service.GetRunLines(c.Request.Context(), id, filter)
	if err != nil {
		log.Error().Err(err).Int64("run_id", id).Msg("failed to get run lines")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

func (h *AllocationHandler) GetRunSummary(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	summary, err := h.service.GetRunSummary(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("run_id", id).Msg("failed to get run summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportRun streams the run's shipment lines as a CSV attachment.
func (h *AllocationHandler) ExportRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=run-"+strconv.FormatInt(id, 10)+".csv")

	if err := h.service.ExportRunCSV(c.Request.Context(), id, c.Writer); err != nil {
		log.Error().Err(err).Int64("run_id", id).Msg("failed to export run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// IngestSnapshot accepts multipart uploads replacing the stored snapshots:
// an "inventory" file, a "warehouse_stock" file and an optional "kpi" file.
func (h *AllocationHandler) IngestSnapshot(c *gin.Context) {
	inventoryFile, err := c.FormFile("inventory")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "inventory file is required"})
		return
	}
	stockFile, err := c.FormFile("warehouse_stock")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "warehouse_stock file is required"})
		return
	}

	inventory, err := inventoryFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer inventory.Close()

	stock, err := stockFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer stock.Close()

	var refs *loader.References
	if kpiFile, err := c.FormFile("kpi"); err == nil {
		kpi, err := kpiFile.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer kpi.Close()

		minimums, err := loader.LoadKPITable(kpi)
		if err != nil {
			h.renderComputeError(c, err)
			return
		}
		refs = &loader.References{KPIMinimums: minimums}
	}

	warnings, err := h.service.IngestSnapshot(c.Request.Context(), inventory, stock, refs)
	if err != nil {
		h.renderComputeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "snapshot ingested",
		"warnings": warnings,
	})
}

func parseRunID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return 0, false
	}
	return id, true
}

func parseRunFilter(c *gin.Context) *domain.RunFilter {
	filter := &domain.RunFilter{Page: 1, PageSize: 50}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	return filter
}
