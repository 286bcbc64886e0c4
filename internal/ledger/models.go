package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is the authoritative per-product stock record. TotalValue is
// derived (quantity_on_hand * unit_cost) and only ever recomputed by
// this package, never set directly.
type Entry struct {
	ProductID      string          `json:"product_id"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	UnitSalePrice  decimal.Decimal `json:"unit_sale_price"`
	TotalValue     decimal.Decimal `json:"total_value"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type NewEntry struct {
	ProductID      string
	QuantityOnHand int
	UnitCost       decimal.Decimal
	UnitSalePrice  decimal.Decimal
}

// Valuation computes the derived stock value for a quantity at a unit cost.
func Valuation(qty int, unitCost decimal.Decimal) decimal.Decimal {
	return unitCost.Mul(decimal.NewFromInt(int64(qty)))
}

// Subtotal is the pricing snapshot: quantity times the sale price read
// from a locked ledger row. Pure fixed-point arithmetic.
func Subtotal(qty int, unitSalePrice decimal.Decimal) decimal.Decimal {
	return unitSalePrice.Mul(decimal.NewFromInt(int64(qty)))
}
