package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("no stock ledger entry for product")
	ErrAlreadyExists = errors.New("stock ledger entry already exists for product")
	ErrNoProduct     = errors.New("product does not exist")
	ErrBelowZero     = errors.New("delta would drive quantity on hand below zero")
)

type Repo struct{ DB *pgxpool.Pool }

// Create registers the single ledger row for a product. Rejects
// negative initial quantity or prices before touching the database.
func (r *Repo) Create(ctx context.Context, in NewEntry) (*Entry, error) {
	if in.QuantityOnHand < 0 {
		return nil, fmt.Errorf("quantity_on_hand: %w", ErrBelowZero)
	}
	if in.UnitCost.IsNegative() || in.UnitSalePrice.IsNegative() {
		return nil, errors.New("unit_cost and unit_sale_price must not be negative")
	}

	var e Entry
	err := r.DB.QueryRow(ctx, `
		INSERT INTO stock_ledger(product_id, quantity_on_hand, unit_cost, unit_sale_price, total_value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING product_id, quantity_on_hand, unit_cost, unit_sale_price, total_value, created_at, updated_at`,
		in.ProductID, in.QuantityOnHand, in.UnitCost, in.UnitSalePrice,
		Valuation(in.QuantityOnHand, in.UnitCost),
	).Scan(&e.ProductID, &e.QuantityOnHand, &e.UnitCost, &e.UnitSalePrice, &e.TotalValue, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				return nil, ErrAlreadyExists
			case "23503": // foreign_key_violation
				return nil, ErrNoProduct
			}
		}
		return nil, err
	}
	return &e, nil
}

// LockForUpdate returns the ledger row with an exclusive row lock held
// for the remainder of tx. Concurrent lockers of the same row block
// until tx commits or rolls back.
func (r *Repo) LockForUpdate(ctx context.Context, tx pgx.Tx, productID string) (*Entry, error) {
	var e Entry
	err := tx.QueryRow(ctx, `
		SELECT product_id, quantity_on_hand, unit_cost, unit_sale_price, total_value, created_at, updated_at
		FROM stock_ledger WHERE product_id = $1 FOR UPDATE`, productID,
	).Scan(&e.ProductID, &e.QuantityOnHand, &e.UnitCost, &e.UnitSalePrice, &e.TotalValue, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ApplyDelta adjusts quantity_on_hand by delta (negative for a sale)
// and recomputes total_value in the same statement. Callers must hold
// the row lock from LockForUpdate in the same tx. A delta that would
// take the quantity below zero matches no row and is rejected.
func (r *Repo) ApplyDelta(ctx context.Context, tx pgx.Tx, productID string, delta int) (*Entry, error) {
	var e Entry
	err := tx.QueryRow(ctx, `
		UPDATE stock_ledger
		SET quantity_on_hand = quantity_on_hand + $2,
		    total_value      = (quantity_on_hand + $2) * unit_cost,
		    updated_at       = now()
		WHERE product_id = $1 AND quantity_on_hand + $2 >= 0
		RETURNING product_id, quantity_on_hand, unit_cost, unit_sale_price, total_value, created_at, updated_at`,
		productID, delta,
	).Scan(&e.ProductID, &e.QuantityOnHand, &e.UnitCost, &e.UnitSalePrice, &e.TotalValue, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBelowZero
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type UpdateParams struct {
	QuantityOnHand *int
	UnitCost       *decimal.Decimal
	UnitSalePrice  *decimal.Decimal
}

// Update is the restock/adjustment path: replaces whichever fields are
// set and recomputes total_value from the resulting state, under the
// same row lock the settlement path uses.
func (r *Repo) Update(ctx context.Context, productID string, p UpdateParams) (*Entry, error) {
	if p.QuantityOnHand != nil && *p.QuantityOnHand < 0 {
		return nil, fmt.Errorf("quantity_on_hand: %w", ErrBelowZero)
	}
	if (p.UnitCost != nil && p.UnitCost.IsNegative()) || (p.UnitSalePrice != nil && p.UnitSalePrice.IsNegative()) {
		return nil, errors.New("unit_cost and unit_sale_price must not be negative")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cur, err := r.LockForUpdate(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	qty, cost, sale := cur.QuantityOnHand, cur.UnitCost, cur.UnitSalePrice
	if p.QuantityOnHand != nil {
		qty = *p.QuantityOnHand
	}
	if p.UnitCost != nil {
		cost = *p.UnitCost
	}
	if p.UnitSalePrice != nil {
		sale = *p.UnitSalePrice
	}

	var e Entry
	err = tx.QueryRow(ctx, `
		UPDATE stock_ledger
		SET quantity_on_hand = $2, unit_cost = $3, unit_sale_price = $4, total_value = $5, updated_at = now()
		WHERE product_id = $1
		RETURNING product_id, quantity_on_hand, unit_cost, unit_sale_price, total_value, created_at, updated_at`,
		productID, qty, cost, sale, Valuation(qty, cost),
	).Scan(&e.ProductID, &e.QuantityOnHand, &e.UnitCost, &e.UnitSalePrice, &e.TotalValue, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) Get(ctx context.Context, productID string) (*Entry, error) {
	var e Entry
	err := r.DB.QueryRow(ctx, `
		SELECT product_id, quantity_on_hand, unit_cost, unit_sale_price, total_value, created_at, updated_at
		FROM stock_ledger WHERE product_id = $1`, productID,
	).Scan(&e.ProductID, &e.QuantityOnHand, &e.UnitCost, &e.UnitSalePrice, &e.TotalValue, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, quantity_on_hand, unit_cost, unit_sale_price, total_value, created_at, updated_at
		FROM stock_ledger ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ProductID, &e.QuantityOnHand, &e.UnitCost, &e.UnitSalePrice, &e.TotalValue, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, productID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM stock_ledger WHERE product_id = $1`, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
