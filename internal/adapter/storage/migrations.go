package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migration struct {
	version int
	name    string
	stmts   func(d Dialect) []string
}

// migrations are append-only; never edit an applied version.
var migrations = []migration{
	{
		version: 1,
		name:    "inventory and orders",
		stmts: func(d Dialect) []string {
			ts := d.timestampType()
			return []string{
				`CREATE TABLE IF NOT EXISTS inventory_items (
					item_ref    VARCHAR(64) PRIMARY KEY,
					product_ref VARCHAR(128) NOT NULL,
					size        VARCHAR(8) NOT NULL,
					unit_price  DECIMAL(12,2) NOT NULL,
					unit_cost   DECIMAL(12,2) NOT NULL,
					stock       INT NOT NULL,
					version     INT NOT NULL DEFAULT 0,
					updated_at  ` + ts + ` NOT NULL,
					CHECK (stock >= 0),
					CHECK (unit_cost < unit_price)
				)`,
				`CREATE TABLE IF NOT EXISTS orders (
					id                 VARCHAR(36) PRIMARY KEY,
					customer_ref       VARCHAR(128) NOT NULL,
					subtotal           DECIMAL(12,2) NOT NULL,
					discount_rate      DECIMAL(5,4) NOT NULL,
					discount_code      VARCHAR(64) NOT NULL,
					final_total        DECIMAL(12,2) NOT NULL,
					status             VARCHAR(16) NOT NULL,
					tracking_id        VARCHAR(32) NOT NULL,
					shipping_address   VARCHAR(512) NOT NULL,
					created_at         ` + ts + ` NOT NULL,
					estimated_delivery ` + ts + ` NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS order_lines (
					order_id           VARCHAR(36) NOT NULL,
					line_no            INT NOT NULL,
					item_ref           VARCHAR(64) NOT NULL,
					quantity           INT NOT NULL,
					unit_price_at_sale DECIMAL(12,2) NOT NULL,
					unit_cost_at_sale  DECIMAL(12,2) NOT NULL,
					PRIMARY KEY (order_id, line_no),
					FOREIGN KEY (order_id) REFERENCES orders (id)
				)`,
			}
		},
	},
	{
		version: 2,
		name:    "coupons",
		stmts: func(d Dialect) []string {
			return []string{
				`CREATE TABLE IF NOT EXISTS coupons (
					code       VARCHAR(64) PRIMARY KEY,
					rate       DECIMAL(5,4) NOT NULL,
					active     BOOLEAN NOT NULL,
					expires_at ` + d.timestampType() + ` NULL
				)`,
			}
		},
	},
}

// Migrate applies every pending migration in version order. It runs once at
// startup, never on the request path.
func Migrate(ctx context.Context, db *sql.DB, d Dialect, log *slog.Logger) (int, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INT PRIMARY KEY,
		applied_at `+d.timestampType()+` NOT NULL
	)`)
	if err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := apply(ctx, db, d, m); err != nil {
			return count, fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		log.Info("migration applied", "version", m.version, "name", m.name)
		count++
	}
	return count, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func apply(ctx context.Context, db *sql.DB, d Dialect, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts(d) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, d.rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
		m.version, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record version: %w", err)
	}

	return tx.Commit()
}
