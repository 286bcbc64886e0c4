package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema mirrors the relational layout the settlement core depends on:
// one ledger row per product (unique), quantity never below zero (CHECK),
// order lines cascade with their order but products referenced by
// historical lines cannot be deleted (RESTRICT).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stock_ledger (
		product_id       TEXT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
		quantity_on_hand INT NOT NULL DEFAULT 0 CHECK (quantity_on_hand >= 0),
		unit_cost        NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (unit_cost >= 0),
		unit_sale_price  NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (unit_sale_price >= 0),
		total_value      NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           TEXT PRIMARY KEY,
		buyer_id     TEXT NOT NULL,
		total_amount NUMERIC(12,2) NOT NULL,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id)`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		id         BIGSERIAL PRIMARY KEY,
		order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
		quantity   INT NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(10,2) NOT NULL,
		subtotal   NUMERIC(12,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_order_lines_product ON order_lines(product_id)`,
}

// Migrate applies the schema idempotently at boot.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
