// internal/loader/handler.go
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/andresuchdata/shipflow/internal/domain"
)

// IngestFunc matches AllocationService.IngestSnapshot; the loader handler
// takes a function rather than the service to avoid pulling the whole
// service graph into this package.
type IngestFunc func(ctx context.Context, inventory, warehouseStock io.Reader, refs *References) ([]domain.Warning, error)

// Handler exposes snapshot ingestion over HTTP for the loader process.
type Handler struct {
	ingest  IngestFunc
	dataDir string
}

func NewHandler(ingest IngestFunc, dataDir string) *Handler {
	return &Handler{ingest: ingest, dataDir: dataDir}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/snapshot/ingest", h.IngestSnapshot).Methods("POST")
	router.HandleFunc("/api/snapshot/ingest-dir", h.IngestFromDir).Methods("POST")
}

// IngestSnapshot handles multipart uploads of the inventory and warehouse
// stock CSVs, with an optional KPI table.
func (h *Handler) IngestSnapshot(w http.ResponseWriter, r *http.Request) {
	inventory, _, err := r.FormFile("inventory")
	if err != nil {
		http.Error(w, "inventory file is required", http.StatusBadRequest)
		return
	}
	defer inventory.Close()

	stock, _, err := r.FormFile("warehouse_stock")
	if err != nil {
		http.Error(w, "warehouse_stock file is required", http.StatusBadRequest)
		return
	}
	defer stock.Close()

	var refs *References
	if kpi, _, err := r.FormFile("kpi"); err == nil {
		defer kpi.Close()
		minimums, err := LoadKPITable(kpi)
		if err != nil {
			renderIngestError(w, err)
			return
		}
		refs = &References{KPIMinimums: minimums}
	}

	warnings, err := h.ingest(r.Context(), inventory, stock, refs)
	if err != nil {
		renderIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"warnings": warnings,
	})
}

// IngestFromDir loads well-known file names from the configured data
// directory: inventory.csv and warehouse_stock.csv, plus optional
// stores.csv, skus.csv and kpi.csv reference tables.
func (h *Handler) IngestFromDir(w http.ResponseWriter, r *http.Request) {
	inventory, err := os.Open(filepath.Join(h.dataDir, "inventory.csv"))
	if err != nil {
		http.Error(w, fmt.Sprintf("inventory.csv not readable: %v", err), http.StatusBadRequest)
		return
	}
	defer inventory.Close()

	stock, err := os.Open(filepath.Join(h.dataDir, "warehouse_stock.csv"))
	if err != nil {
		http.Error(w, fmt.Sprintf("warehouse_stock.csv not readable: %v", err), http.StatusBadRequest)
		return
	}
	defer stock.Close()

	refs, err := LoadReferenceDir(h.dataDir)
	if err != nil {
		renderIngestError(w, err)
		return
	}

	warnings, err := h.ingest(r.Context(), inventory, stock, refs)
	if err != nil {
		renderIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"warnings": warnings,
	})
}

// LoadReferenceDir reads the optional reference tables from dir. Missing
// files are skipped; malformed ones are errors.
func LoadReferenceDir(dir string) (*References, error) {
	refs := &References{}
	found := false

	if f, err := os.Open(filepath.Join(dir, "stores.csv")); err == nil {
		defer f.Close()
		stores, err := LoadStoreMaster(f)
		if err != nil {
			return nil, err
		}
		refs.StoreWarehouse = stores
		found = true
	}

	if f, err := os.Open(filepath.Join(dir, "skus.csv")); err == nil {
		defer f.Close()
		skus, err := LoadSKUMaster(f)
		if err != nil {
			return nil, err
		}
		refs.SKUMaster = skus
		found = true
	}

	if f, err := os.Open(filepath.Join(dir, "kpi.csv")); err == nil {
		defer f.Close()
		kpi, err := LoadKPITable(f)
		if err != nil {
			return nil, err
		}
		refs.KPIMinimums = kpi
		found = true
	}

	if !found {
		return nil, nil
	}
	return refs, nil
}

func renderIngestError(w http.ResponseWriter, err error) {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		http.Error(w, cfgErr.Error(), http.StatusUnprocessableEntity)
		return
	}
	http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
