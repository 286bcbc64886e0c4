package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-catalog-settlement.git/internal/ledger"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/orders"
)

type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Engine turns a list of line requests into a committed order inside
// one transaction, or fails with no visible side effects. Ledger rows
// are always locked in ascending product order so two settlements
// sharing products in different request order cannot deadlock.
type Engine struct {
	DB     *pgxpool.Pool
	Ledger *ledger.Repo
	Orders *orders.Repo

	// Bound on waiting for a row lock; expiry surfaces as TransientError.
	LockTimeout time.Duration
}

func (e *Engine) Settle(ctx context.Context, buyerID string, lines []LineRequest) (*orders.Order, error) {
	if buyerID == "" {
		return nil, &InvalidRequestError{Reason: "missing buyer id"}
	}
	if len(lines) == 0 {
		return nil, &InvalidRequestError{Reason: "empty line list"}
	}
	for _, ln := range lines {
		if ln.ProductID == "" {
			return nil, &InvalidRequestError{Reason: "missing product id"}
		}
		if ln.Quantity <= 0 {
			return nil, &InvalidRequestError{Reason: fmt.Sprintf("non-positive quantity %d for product %s", ln.Quantity, ln.ProductID)}
		}
	}

	tx, err := e.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer tx.Rollback(ctx)

	if e.LockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", e.LockTimeout.Milliseconds())); err != nil {
			return nil, &TransientError{Err: err}
		}
	}

	// Lock every affected row first, ascending by product id. The
	// request's own line order is preserved for the response below.
	locked := make(map[string]*ledger.Entry, len(lines))
	for _, pid := range sortedProductIDs(lines) {
		ent, err := e.Ledger.LockForUpdate(ctx, tx, pid)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, &OutOfStockError{ProductID: pid}
		}
		if err != nil {
			return nil, classify(err)
		}
		locked[pid] = ent
	}

	order := &orders.Order{
		ID:          uuid.NewString(),
		BuyerID:     buyerID,
		Status:      orders.StatusCompleted,
		TotalAmount: decimal.Zero,
	}

	for _, ln := range lines {
		ent := locked[ln.ProductID]
		if ent.QuantityOnHand < ln.Quantity {
			return nil, &InsufficientStockError{
				ProductID: ln.ProductID,
				Requested: ln.Quantity,
				Available: ent.QuantityOnHand,
			}
		}

		// Price snapshot from the locked row, never from the caller.
		unitPrice := ent.UnitSalePrice
		subtotal := ledger.Subtotal(ln.Quantity, unitPrice)
		order.TotalAmount = order.TotalAmount.Add(subtotal)
		order.Lines = append(order.Lines, orders.Line{
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  subtotal,
		})

		updated, err := e.Ledger.ApplyDelta(ctx, tx, ln.ProductID, -ln.Quantity)
		if err != nil {
			return nil, classify(err)
		}
		// Duplicate product lines validate against the decremented row.
		locked[ln.ProductID] = updated
	}

	if err := e.Orders.InsertTx(ctx, tx, order); err != nil {
		return nil, classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &TransientError{Err: err}
	}
	return order, nil
}

func sortedProductIDs(lines []LineRequest) []string {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		if !seen[ln.ProductID] {
			seen[ln.ProductID] = true
			ids = append(ids, ln.ProductID)
		}
	}
	sort.Strings(ids)
	return ids
}

// classify maps infrastructure failures to TransientError and leaves
// everything else typed as it came.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", // lock_not_available
			"40P01", // deadlock_detected
			"40001", // serialization_failure
			"57014": // query_canceled (statement/lock timeout surfaced as cancel)
			return &TransientError{Err: err}
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransientError{Err: err}
	}
	// Anything else from the driver here is a connection-level failure.
	return &TransientError{Err: err}
}
