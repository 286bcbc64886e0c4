package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// InsertTx persists an order and all of its lines inside the caller's
// transaction. Either everything commits with the settlement's ledger
// updates or nothing does; there is no partial order.
func (r *Repo) InsertTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO orders(id, buyer_id, total_amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		o.ID, o.BuyerID, o.TotalAmount, o.Status,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i := range o.Lines {
		ln := &o.Lines[i]
		ln.OrderID = o.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO order_lines(order_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			ln.OrderID, ln.ProductID, ln.Quantity, ln.UnitPrice, ln.Subtotal,
		).Scan(&ln.ID)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, buyer_id, total_amount, status, created_at
		FROM orders WHERE id = $1`, orderID,
	).Scan(&o.ID, &o.BuyerID, &o.TotalAmount, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ID, &ln.OrderID, &ln.ProductID, &ln.Quantity, &ln.UnitPrice, &ln.Subtotal); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, ln)
	}
	return &o, rows.Err()
}

type ListFilter struct {
	BuyerID string
	Status  Status
	Limit   int
	Offset  int
}

// List returns order headers newest-first; lines are loaded per order
// by GetByID on the detail path.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	q := `SELECT id, buyer_id, total_amount, status, created_at FROM orders`
	var (
		args  []any
		where string
	)
	if f.BuyerID != "" {
		args = append(args, f.BuyerID)
		where = fmt.Sprintf(" WHERE buyer_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		if where == "" {
			where = fmt.Sprintf(" WHERE status = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND status = $%d", len(args))
		}
	}
	q += where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) GetStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}
