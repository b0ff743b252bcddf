// cmd/allocate/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/shipflow/internal/cache"
	"github.com/andresuchdata/shipflow/internal/domain"
	"github.com/andresuchdata/shipflow/internal/engine"
	"github.com/andresuchdata/shipflow/internal/export"
	"github.com/andresuchdata/shipflow/internal/loader"
	"github.com/andresuchdata/shipflow/internal/repository/postgres"
	"github.com/andresuchdata/shipflow/internal/service"
	"github.com/andresuchdata/shipflow/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "allocate",
		Usage: "Compute warehouse-to-store shipment allocations from CSV snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory containing inventory.csv and warehouse_stock.csv (plus optional stores.csv, skus.csv, kpi.csv)",
				Value:   "./data/input",
				EnvVars: []string{"APP_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Path of the allocation CSV to write; empty skips the export",
			},
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string; when set the run is persisted",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.Int64Flag{Name: "category", Usage: "Restrict to one category id"},
			&cli.StringFlag{Name: "sku", Usage: "Restrict to one SKU"},
			&cli.StringFlag{Name: "brand", Usage: "Restrict to one brand"},
			&cli.Float64Flag{Name: "forward-cover", Usage: "Weeks of forward cover", Value: engine.DefaultForwardCover},
			&cli.Float64Flag{Name: "expansion", Usage: "Expansion ratio override"},
			&cli.Float64Flag{Name: "min-ratio", Usage: "Minimum stock ratio override"},
			&cli.Float64Flag{Name: "inflation", Usage: "Inflation ratio override"},
			&cli.IntFlag{Name: "top-n", Usage: "Width of the top-N breakdowns", Value: engine.DefaultTopN},
			&cli.BoolFlag{Name: "quiet", Usage: "Suppress the summary report"},
		},
		Action: runAllocate,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("allocation failed")
	}
}

func runAllocate(c *cli.Context) error {
	dataDir := c.String("data-dir")

	rows, stock, warnings, err := loadSnapshots(dataDir)
	if err != nil {
		return err
	}

	req := service.ComputeRequest{
		ForwardCover: c.Float64("forward-cover"),
		TopN:         c.Int("top-n"),
	}
	if c.IsSet("category") {
		v := c.Int64("category")
		req.CategoryID = &v
	}
	if c.IsSet("sku") {
		v := c.String("sku")
		req.SKUID = &v
	}
	if c.IsSet("brand") {
		v := c.String("brand")
		req.BrandID = &v
	}
	if c.IsSet("inflation") {
		v := c.Float64("inflation")
		req.InflationRatio = &v
	}
	if c.IsSet("expansion") {
		v := c.Float64("expansion")
		req.ExpansionRatio = &v
	}
	if c.IsSet("min-ratio") {
		v := c.Float64("min-ratio")
		req.MinStockRatio = &v
	}

	svc := service.NewAllocationService(engine.New(), nil, nil, cache.NewNoopSummaryCache(), nil)
	if url := c.String("db-url"); url != "" {
		db, err := postgres.NewDBFromURL(url)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(c.Context, db); err != nil {
			return fmt.Errorf("failed to ensure database schema: %w", err)
		}
		svc = service.NewAllocationService(engine.New(), nil, postgres.NewRunRepository(db), cache.NewNoopSummaryCache(), nil)
		req.Persist = true
	}

	resp, err := svc.ComputeFrom(c.Context, rows, stock, req)
	if err != nil {
		var emptyErr *domain.EmptyResultError
		if errors.As(err, &emptyErr) {
			fmt.Println("nothing to ship:", emptyErr.Error())
			return nil
		}
		return err
	}

	for _, w := range append(warnings, resp.Warnings...) {
		logger.Log.Warn().Str("code", w.Code).Msg(w.Message)
	}

	if out := c.String("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		if err := export.WriteAllocations(f, resp.Allocations); err != nil {
			return err
		}
		logger.Log.Info().Str("path", out).Int("lines", len(resp.Allocations)).Msg("allocation written")
	}

	if resp.RunID != 0 {
		logger.Log.Info().Int64("run_id", resp.RunID).Msg("run persisted")
	}

	if !c.Bool("quiet") {
		fmt.Print(service.QuickReport(resp.Summary))
	}

	return nil
}

func loadSnapshots(dataDir string) ([]domain.InventoryRow, domain.WarehouseStock, []domain.Warning, error) {
	inventoryFile, err := os.Open(filepath.Join(dataDir, "inventory.csv"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open inventory.csv: %w", err)
	}
	defer inventoryFile.Close()

	rows, warnings, err := loader.LoadInventory(inventoryFile)
	if err != nil {
		return nil, nil, nil, err
	}

	stockFile, err := os.Open(filepath.Join(dataDir, "warehouse_stock.csv"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open warehouse_stock.csv: %w", err)
	}
	defer stockFile.Close()

	stock, stockWarnings, err := loader.LoadWarehouseStock(stockFile)
	if err != nil {
		return nil, nil, nil, err
	}
	warnings = append(warnings, stockWarnings...)

	refs, err := loader.LoadReferenceDir(dataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	if refs != nil {
		loader.ApplyReferences(rows, *refs)
	} else {
		loader.ApplyReferences(rows, loader.References{})
	}

	return rows, stock, warnings, nil
}
