package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

// SQLAdapter is the ledger, catalog and coupon repository over MySQL or
// PostgreSQL. Every stock decrement is guarded in SQL as well, so writers in
// other processes cannot drive stock negative either.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: DialectMySQL}
}

func NewPostgresAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: DialectPostgres}
}

func (a *SQLAdapter) Dialect() Dialect { return a.dialect }

func (a *SQLAdapter) GetItems(ctx context.Context, refs []domain.ItemRef) (map[domain.ItemRef]domain.InventoryItem, error) {
	items := make(map[domain.ItemRef]domain.InventoryItem, len(refs))
	if len(refs) == 0 {
		return items, nil
	}

	args := make([]any, len(refs))
	for i, r := range refs {
		args[i] = string(r)
	}
	rows, err := a.db.QueryContext(ctx, a.dialect.rebind(`
		SELECT item_ref, product_ref, size, unit_price, unit_cost, stock, version, updated_at
		FROM inventory_items WHERE item_ref IN (`+placeholders(len(refs))+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.Ref, &item.ProductRef, &item.Size, &item.UnitPrice, &item.UnitCost,
			&item.Stock, &item.Version, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		items[item.Ref] = item
	}
	return items, rows.Err()
}

func (a *SQLAdapter) DecrementStock(ctx context.Context, lines []domain.StockLine) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := a.decrementTx(ctx, tx, lines); err != nil {
		return err
	}
	return tx.Commit()
}

func (a *SQLAdapter) CommitOrder(ctx context.Context, order domain.Order) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	lines := make([]domain.StockLine, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = domain.StockLine{Item: l.Item, Quantity: l.Quantity}
	}
	if err := a.decrementTx(ctx, tx, lines); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, a.dialect.rebind(`
		INSERT INTO orders (id, customer_ref, subtotal, discount_rate, discount_code, final_total,
			status, tracking_id, shipping_address, created_at, estimated_delivery)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		string(order.ID), order.CustomerRef, order.Subtotal, order.DiscountRate, order.DiscountCode,
		order.FinalTotal, string(order.Status), order.TrackingID, order.ShippingAddress,
		order.CreatedAt, order.EstimatedDelivery,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, l := range order.Lines {
		_, err = tx.ExecContext(ctx, a.dialect.rebind(`
			INSERT INTO order_lines (order_id, line_no, item_ref, quantity, unit_price_at_sale, unit_cost_at_sale)
			VALUES (?, ?, ?, ?, ?, ?)`),
			string(order.ID), l.LineNo, string(l.Item), l.Quantity, l.UnitPriceAtSale, l.UnitCostAtSale,
		)
		if err != nil {
			return fmt.Errorf("insert order line %d: %w", l.LineNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (a *SQLAdapter) decrementTx(ctx context.Context, tx *sql.Tx, lines []domain.StockLine) error {
	now := time.Now().UTC()
	for _, l := range lines {
		result, err := tx.ExecContext(ctx, a.dialect.rebind(`
			UPDATE inventory_items
			SET stock = stock - ?, version = version + 1, updated_at = ?
			WHERE item_ref = ? AND stock >= ?`),
			l.Quantity, now, string(l.Item), l.Quantity,
		)
		if err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}

		applied, err := guardApplied(result)
		if err != nil {
			return err
		}
		if !applied {
			return a.explainRejected(ctx, tx, l)
		}
	}
	return nil
}

// guardApplied reports whether a guarded update touched its row.
func guardApplied(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// explainRejected tells a missing item from a short one after a guarded
// update touched no row.
func (a *SQLAdapter) explainRejected(ctx context.Context, tx *sql.Tx, l domain.StockLine) error {
	var available int
	err := tx.QueryRowContext(ctx, a.dialect.rebind(`SELECT stock FROM inventory_items WHERE item_ref = ?`),
		string(l.Item)).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ItemNotFoundError{Item: l.Item}
	}
	if err != nil {
		return fmt.Errorf("query stock: %w", err)
	}
	return &domain.InsufficientStockError{Item: l.Item, Requested: l.Quantity, Available: available}
}

func (a *SQLAdapter) GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	var o domain.Order
	var status string
	err := a.db.QueryRowContext(ctx, a.dialect.rebind(`
		SELECT id, customer_ref, subtotal, discount_rate, discount_code, final_total, status,
			tracking_id, shipping_address, created_at, estimated_delivery
		FROM orders WHERE id = ?`), string(id),
	).Scan(&o.ID, &o.CustomerRef, &o.Subtotal, &o.DiscountRate, &o.DiscountCode, &o.FinalTotal, &status,
		&o.TrackingID, &o.ShippingAddress, &o.CreatedAt, &o.EstimatedDelivery)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	o.Status = domain.OrderStatus(status)

	rows, err := a.db.QueryContext(ctx, a.dialect.rebind(`
		SELECT order_id, line_no, item_ref, quantity, unit_price_at_sale, unit_cost_at_sale
		FROM order_lines WHERE order_id = ? ORDER BY line_no`), string(id))
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.LineNo, &l.Item, &l.Quantity, &l.UnitPriceAtSale, &l.UnitCostAtSale); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return &o, rows.Err()
}

func (a *SQLAdapter) UpsertItem(ctx context.Context, item domain.InventoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx, a.dialect.rebind(`
		INSERT INTO inventory_items (item_ref, product_ref, size, unit_price, unit_cost, stock, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`+
		a.dialect.upsert("item_ref", "product_ref", "size", "unit_price", "unit_cost", "stock", "updated_at")),
		string(item.Ref), item.ProductRef, item.Size, item.UnitPrice, item.UnitCost, item.Stock, item.Version,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert inventory item: %w", err)
	}
	return nil
}

func (a *SQLAdapter) FindCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	var expires sql.NullTime
	err := a.db.QueryRowContext(ctx, a.dialect.rebind(`
		SELECT code, rate, active, expires_at FROM coupons WHERE code = ?`), code,
	).Scan(&c.Code, &c.Rate, &c.Active, &expires)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon: %w", err)
	}
	if expires.Valid {
		c.ExpiresAt = &expires.Time
	}
	return &c, nil
}

func (a *SQLAdapter) UpsertCoupon(ctx context.Context, c domain.Coupon) error {
	var expires sql.NullTime
	if c.ExpiresAt != nil {
		expires = sql.NullTime{Time: *c.ExpiresAt, Valid: true}
	}
	_, err := a.db.ExecContext(ctx, a.dialect.rebind(`
		INSERT INTO coupons (code, rate, active, expires_at) VALUES (?, ?, ?, ?)`+
		a.dialect.upsert("code", "rate", "active", "expires_at")),
		c.Code, c.Rate, c.Active, expires,
	)
	if err != nil {
		return fmt.Errorf("upsert coupon: %w", err)
	}
	return nil
}
