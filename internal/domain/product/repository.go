package product

import "context"

// StockLine asks for quantity units of one product.
type StockLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Repository interface {
	Insert(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	// UpdateStock overwrites the stock counter of one product.
	UpdateStock(ctx context.Context, id string, stock int) error

	// Reserve checks every line (existence, active flag, available stock)
	// and only then decrements all of them. It either applies the whole batch
	// or nothing. The returned snapshots are taken under the same locks and
	// are in line order.
	Reserve(ctx context.Context, lines []StockLine) ([]*Product, error)
	// Release returns stock for every line. Unknown products are skipped.
	Release(ctx context.Context, lines []StockLine) error
}
