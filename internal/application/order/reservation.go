package order

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
	domproduct "github.com/Zhima-Mochi/minishop-orders/internal/domain/product"
)

// ItemRequest is one requested product and quantity.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

func validateItems(items []ItemRequest) error {
	if len(items) == 0 {
		return domain.ErrNoItems
	}
	for i, it := range items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 {
			return apperr.Validation("items[%d]: each item must have a productId and a positive integer quantity", i)
		}
	}
	return nil
}

func stockLines(items []ItemRequest) []domproduct.StockLine {
	lines := make([]domproduct.StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domproduct.StockLine{ProductID: strings.TrimSpace(it.ProductID), Quantity: it.Quantity})
	}
	return lines
}

// reserve takes stock for every line as one batch and freezes prices from the
// snapshots taken under the reservation locks.
func (s *Service) reserve(ctx context.Context, items []ItemRequest) ([]domain.LineItem, []domproduct.StockLevel, error) {
	lines := stockLines(items)
	snapshots, err := s.products.Reserve(ctx, lines)
	if err != nil {
		return nil, nil, err
	}

	lineItems := make([]domain.LineItem, 0, len(lines))
	levels := make([]domproduct.StockLevel, 0, len(lines))
	for i, l := range lines {
		p := snapshots[i]
		lineItems = append(lineItems, domain.LineItem{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PriceAtPurchase: p.Price,
		})
		levels = append(levels, domproduct.StockLevel{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Remaining: p.Stock,
		})
	}
	return lineItems, levels, nil
}

// Release gives the stock of items back. Products that no longer exist are skipped.
func (s *Service) Release(ctx context.Context, items []domain.LineItem) error {
	lines := make([]domproduct.StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domproduct.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return s.products.Release(ctx, lines)
}
