package order

import (
	"github.com/shopspring/decimal"

	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
)

// TaxRate is the flat tax applied to every subtotal.
var TaxRate = decimal.RequireFromString("0.18")

// ComputeTotals prices frozen line items. Tax is rounded half-up to whole
// minor units; discount is always zero for now.
func ComputeTotals(items []domain.LineItem) domain.Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.PriceAtPurchase * int64(it.Quantity)
	}
	tax := TaxFor(subtotal)
	var discount int64
	return domain.Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Discount:   discount,
		GrandTotal: subtotal + tax - discount,
	}
}

// TaxFor returns round_half_up(subtotal * TaxRate). Subtotals are never
// negative so rounding away from zero is rounding up.
func TaxFor(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(TaxRate).Round(0).IntPart()
}
