package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
	"github.com/ariefcatur/storefront-orders/internal/orders"
)

// Entry is one archived order together with the event that carried it.
type Entry struct {
	EventID string
	Order   orders.Order
	Sold    []catalog.ID
}

type Repo struct{ DB *pgxpool.Pool }

// Archive writes the order and its sold product ids in one transaction.
// It reports false when the order was already archived; nothing is changed
// in that case.
func (r *Repo) Archive(ctx context.Context, e Entry) (bool, error) {
	payload, err := json.Marshal(e.Order)
	if err != nil {
		return false, fmt.Errorf("encode order %d: %w", e.Order.ID, err)
	}
	var total pgtype.Numeric
	if err := total.Scan(string(e.Order.Total)); err != nil {
		return false, fmt.Errorf("order %d total %q: %w", e.Order.ID, e.Order.Total, err)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		INSERT INTO order_ledger(order_id, event_id, order_date, customer_name, customer_email, city, total, payment_method, payload)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (order_id) DO NOTHING`,
		e.Order.ID, e.EventID, e.Order.OrderDate, e.Order.Name, e.Order.Email, e.Order.City,
		total, e.Order.PaymentMethod, payload)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	for _, id := range e.Sold {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_ledger_sold(order_id, product_id)
			VALUES ($1,$2)
			ON CONFLICT (order_id, product_id) DO NOTHING`, e.Order.ID, id.String()); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Sold returns the product ids archived for an order, sorted.
func (r *Repo) Sold(ctx context.Context, orderID int64) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT product_id FROM order_ledger_sold WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
