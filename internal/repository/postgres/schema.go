// internal/repository/postgres/schema.go
package postgres

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS inventory_snapshot (
	id BIGSERIAL PRIMARY KEY,
	store_id TEXT NOT NULL,
	sku_id TEXT NOT NULL,
	warehouse_id TEXT NOT NULL,
	on_hand_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
	in_transit DOUBLE PRECISION NOT NULL DEFAULT 0,
	weekly_sales_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	minimum_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
	maximum_threshold DOUBLE PRECISION,
	category_id BIGINT,
	brand_id TEXT,
	merchandise_group_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_inventory_snapshot_store_sku ON inventory_snapshot(store_id, sku_id);
CREATE INDEX IF NOT EXISTS idx_inventory_snapshot_category ON inventory_snapshot(category_id);

CREATE TABLE IF NOT EXISTS warehouse_stock (
	warehouse_id TEXT NOT NULL,
	sku_id TEXT NOT NULL,
	quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (warehouse_id, sku_id)
);

CREATE TABLE IF NOT EXISTS allocation_runs (
	id BIGSERIAL PRIMARY KEY,
	category_id BIGINT,
	sku_id TEXT,
	brand_id TEXT,
	forward_cover DOUBLE PRECISION NOT NULL,
	total_shipped DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_need DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_unmet DOUBLE PRECISION NOT NULL DEFAULT 0,
	line_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS allocation_lines (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT NOT NULL REFERENCES allocation_runs(id) ON DELETE CASCADE,
	store_id TEXT NOT NULL,
	sku_id TEXT NOT NULL,
	warehouse_id TEXT NOT NULL,
	category_id BIGINT,
	brand_id TEXT,
	on_hand_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
	in_transit DOUBLE PRECISION NOT NULL DEFAULT 0,
	weekly_sales_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	minimum_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
	cover DOUBLE PRECISION NOT NULL DEFAULT 0,
	target_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
	need_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	need_kind TEXT NOT NULL,
	shipped_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	unmet_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	sku_segment TEXT NOT NULL DEFAULT '',
	store_segment TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_allocation_lines_run ON allocation_lines(run_id);
`

// EnsureSchema creates the tables this package reads and writes. Idempotent.
func EnsureSchema(ctx context.Context, db *DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
